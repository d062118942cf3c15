package blog

import "embed"

// EmbeddedAssets contains static assets shipped with the engine. The
// stylesheet is served at /public/blog.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
