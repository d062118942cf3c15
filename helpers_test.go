package blog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base     string
		segments []string
		want     string
	}{
		{"https://example.com", nil, "https://example.com"},
		{"https://example.com", []string{"posts", "hello"}, "https://example.com/posts/hello/"},
		{"https://example.com/blog", []string{"posts", "a"}, "https://example.com/blog/posts/a/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildURL(tt.base, tt.segments...))
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world", StripHTML("<p>Hello\n <b>world</b></p>"))
	assert.Equal(t, "", StripHTML("<script>alert(1)</script>"))
}

func TestFilterEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, FilterEmpty([]string{" a ", "", "  ", "b"}))
	assert.Nil(t, FilterEmpty(nil))
}

func TestDescription(t *testing.T) {
	doc := docJSON(t, `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Body text"}]}]}`)
	assert.Equal(t, "Excerpt", Description(Post{Excerpt: "  Excerpt ", Content: doc}))
	assert.Equal(t, "Body text", Description(Post{Content: doc}))
}

func TestShowUpdated(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		updated time.Time
		want    bool
	}{
		{"same instant", created, false},
		{"exactly one day", created.Add(24 * time.Hour), false},
		{"just over a day", created.Add(24*time.Hour + time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShowUpdated(Post{CreatedAt: created, UpdatedAt: tt.updated}))
		})
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "March 1, 2024", FormatDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestOptimizedImagePath(t *testing.T) {
	assert.Equal(t, "/_img/?url=https%3A%2F%2Fimages.pexels.com%2Fa.jpg&w=800",
		OptimizedImagePath("https://images.pexels.com/a.jpg", 800))
}

func TestBlogPostingJsonLD(t *testing.T) {
	cfg := SiteConfig{Name: "Blog", URL: "https://example.com", Author: "Site Author"}
	post := Post{
		Slug:          "hello",
		Title:         "Hello",
		Excerpt:       "Greeting",
		CoverImageURL: "https://images.unsplash.com/x",
		CreatedAt:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(BlogPostingJsonLD(post, cfg)), &got))
	assert.Equal(t, "BlogPosting", got["@type"])
	assert.Equal(t, "https://example.com/posts/hello/", got["url"])
	assert.Equal(t, "Greeting", got["description"])
	assert.Equal(t, "2024-03-01T10:00:00Z", got["datePublished"])
	assert.Equal(t, "2024-03-02T10:00:00Z", got["dateModified"])
	assert.Equal(t, "https://images.unsplash.com/x", got["image"])
	assert.Equal(t, map[string]any{"@type": "Person", "name": "Site Author"}, got["author"])
}
