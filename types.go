package blog

import (
	"time"

	"github.com/a-h/templ"

	"github.com/meettilavat/blog-project/richtext"
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ParseStatus maps form and query values to a Status. Anything unknown is a draft.
func ParseStatus(s string) Status {
	if Status(s) == StatusPublished {
		return StatusPublished
	}
	return StatusDraft
}

// Post is the core content type stored in SQLite. Content is the rich-text
// document as persisted by the editor.
type Post struct {
	ID            string
	Slug          string
	Title         string
	Excerpt       string
	Content       *richtext.Node
	CoverImageURL string
	Status        Status
	Author        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Published reports whether the post is publicly visible.
func (p Post) Published() bool {
	return p.Status == StatusPublished
}

// Link is the public path of the post.
func (p Post) Link() string {
	return "/posts/" + p.Slug + "/"
}

// Image is an uploaded image stored under the static uploads directory.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}

// URL is the public path of the uploaded file.
func (i Image) URL() string {
	return "/public/" + uploadsSubdir + "/" + i.Filename
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// PostSummary is a post as listed on the home page.
type PostSummary struct {
	Post
	Description string
	Reading     richtext.Reading
}

// HomePage is the data behind the post list.
type HomePage struct {
	Site  SiteConfig
	Meta  PageMeta
	Posts []PostSummary
}

// Cover is a resolved cover image.
type Cover struct {
	Src       string
	Alt       string
	Optimized bool
}

// PostPage is everything the post template needs. Body renders the
// sanitized document; its image dimensions are resolved before the page is
// built, so rendering does no I/O.
type PostPage struct {
	Site        SiteConfig
	Meta        PageMeta
	Post        Post
	Cover       *Cover
	Headings    []richtext.Heading
	Reading     richtext.Reading
	ShowUpdated bool
	Body        templ.Component
	JSONLD      string
}

// DashboardPage is the admin post list.
type DashboardPage struct {
	Site    SiteConfig
	Posts   []Post
	Filter  string
	Message string
	CSRF    string
}

// EditorPage is the admin post form. ContentJSON is the document as
// editable JSON.
type EditorPage struct {
	Site        SiteConfig
	Post        Post
	ContentJSON string
	IsNew       bool
	Message     string
	CSRF        string
}
