package views

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blog "github.com/meettilavat/blog-project"
	"github.com/meettilavat/blog-project/richtext"
)

var testSite = blog.SiteConfig{Name: "Test Blog", URL: "https://blog.example.com", Author: "Ada"}

func renderDoc(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestEveryPageParses(t *testing.T) {
	for _, name := range []string{
		"home.html", "post.html", "admin_login.html", "admin_dashboard.html",
		"admin_editor.html", "admin_images.html", "not_found.html", "server_error.html",
	} {
		assert.Contains(t, pages, name)
	}
}

func TestPostPage(t *testing.T) {
	content, err := richtext.Decode([]byte(`{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Intro"}]},
		{"type":"paragraph","content":[{"type":"text","text":"Hello <world>"}]}
	]}`))
	require.NoError(t, err)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	post := blog.Post{Slug: "hello", Title: "Hello", Content: content, CreatedAt: created, UpdatedAt: created.Add(72 * time.Hour)}

	renderer := &richtext.Renderer{}
	page := blog.PostPage{
		Site:        testSite,
		Meta:        blog.PageMeta{Title: "Hello | Test Blog", Description: "Hello world", OGType: "article"},
		Post:        post,
		Cover:       &blog.Cover{Src: "https://cdn.example.net/c.jpg", Alt: "Hello"},
		Headings:    richtext.ExtractHeadings(content),
		Reading:     richtext.ReadingTime(content),
		ShowUpdated: true,
		Body:        renderer.Component(content),
		JSONLD:      blog.BlogPostingJsonLD(post, testSite),
	}

	doc := renderDoc(t, Default(testSite).Post(page))
	assert.Equal(t, "Hello | Test Blog", doc.Find("title").Text())
	assert.Equal(t, "Intro", doc.Find(".post-body h2#intro").Text())
	assert.Equal(t, "Hello <world>", doc.Find(".post-body p").Text())
	assert.Equal(t, "#intro", doc.Find(".toc a").AttrOr("href", ""))
	assert.Equal(t, "level-2", doc.Find(".toc li").AttrOr("class", ""))
	assert.Contains(t, doc.Find(".updated").Text(), "March 4, 2024")
	assert.Equal(t, "true", doc.Find(".cover img").AttrOr("data-unoptimized", ""))

	ld := doc.Find(`script[type="application/ld+json"]`).Text()
	assert.True(t, strings.HasPrefix(ld, `{"@context"`), "JSON-LD is written unquoted: %s", ld)
}

func TestHomePage(t *testing.T) {
	doc := renderDoc(t, Default(testSite).Home(blog.HomePage{
		Site: testSite,
		Meta: blog.PageMeta{Title: "Test Blog"},
		Posts: []blog.PostSummary{{
			Post:        blog.Post{Slug: "first", Title: "First"},
			Description: "About the first post",
			Reading:     richtext.Reading{Minutes: 3},
		}},
	}))
	link := doc.Find(".post-list h2 a")
	assert.Equal(t, "First", link.Text())
	assert.Equal(t, "/posts/first/", link.AttrOr("href", ""))
	assert.Contains(t, doc.Find(".post-meta").Text(), "3 min read")

	empty := renderDoc(t, Default(testSite).Home(blog.HomePage{Site: testSite}))
	assert.Contains(t, empty.Find("main").Text(), "No posts yet.")
}

func TestAdminPagesCarryCSRF(t *testing.T) {
	views := Default(testSite)
	components := map[string]templ.Component{
		"login":     views.AdminLogin(true, "tok"),
		"dashboard": views.AdminDashboard(blog.DashboardPage{Site: testSite, CSRF: "tok", Posts: []blog.Post{{ID: "1", Title: "A"}}}),
		"editor":    views.AdminEditor(blog.EditorPage{Site: testSite, CSRF: "tok", ContentJSON: `{"type":"doc"}`, IsNew: true}),
		"images":    views.AdminImages([]blog.Image{{Filename: "a.jpg", Width: 10, Height: 10}}, "tok"),
	}
	for name, c := range components {
		t.Run(name, func(t *testing.T) {
			doc := renderDoc(t, c)
			assert.Equal(t, "noindex", doc.Find(`meta[name="robots"]`).AttrOr("content", ""))
			doc.Find("form").Each(func(_ int, f *goquery.Selection) {
				assert.Equal(t, "tok", f.Find(`input[name="_csrf"]`).AttrOr("value", ""), "form %s", f.AttrOr("action", ""))
			})
		})
	}
}

func TestEditorKeepsDocumentJSON(t *testing.T) {
	doc := renderDoc(t, Default(testSite).AdminEditor(blog.EditorPage{Site: testSite, ContentJSON: `{"type":"doc","content":[]}`}))
	assert.Equal(t, `{"type":"doc","content":[]}`, doc.Find("textarea#content").Text())
	assert.Equal(t, "Edit post", doc.Find("main h1").Text())
}

func TestErrorPages(t *testing.T) {
	assert.Equal(t, "Not found", renderDoc(t, Default(testSite).NotFound()).Find("main h1").Text())
	assert.Equal(t, "Something went wrong", renderDoc(t, Default(testSite).ServerError()).Find("main h1").Text())
}
