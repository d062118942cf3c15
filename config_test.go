package blog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Blog", cfg.Name)
	assert.Equal(t, "http://localhost:3000", cfg.URL)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "data/blog.db", cfg.DatabasePath)
	assert.Equal(t, 5*time.Minute, cfg.PostCacheTTL)
	assert.True(t, cfg.ProbeImages)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 8, cfg.ProbeConcurrency)
}

func TestLoadConfigLayersFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: File Blog
url: https://file.example.com/
admin_password: from-file
session_secret: s3cret
probe_timeout: 2s
image_hosts: [cdn.example.com]
`), 0o644))

	t.Setenv("SITE_NAME", "Env Blog")
	t.Setenv("BLOG_PROBE_CONCURRENCY", "3")
	t.Setenv("BLOG_PROBE_IMAGES", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Env Blog", cfg.Name, "env overrides file")
	assert.Equal(t, "https://file.example.com", cfg.URL, "trailing slash trimmed")
	assert.Equal(t, "from-file", cfg.AdminPassword)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 3, cfg.ProbeConcurrency)
	assert.False(t, cfg.ProbeImages)
	assert.Equal(t, []string{"cdn.example.com"}, cfg.ImageHosts)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigInvalidEnv(t *testing.T) {
	t.Setenv("BLOG_PROBE_TIMEOUT", "soon")
	t.Setenv("BLOG_COOKIE_SECURE", "maybe")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLOG_PROBE_TIMEOUT")
	assert.Contains(t, err.Error(), "BLOG_COOKIE_SECURE")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	err := SiteConfig{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AdminPassword")
	assert.Contains(t, err.Error(), "SessionSecret")
}
