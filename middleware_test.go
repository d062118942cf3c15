package blog

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want routeClass
	}{
		{"/", routePage},
		{"/posts/hello/", routePage},
		{"/public/blog.css", routeStatic},
		{"/feed.xml", routeFeed},
		{"/sitemap.xml", routeFeed},
		{"/robots.txt", routeFeed},
		{"/posts/hello/index.md", routeMarkdown},
		{"/_img/", routeImage},
		{"/admin/", routeAdmin},
		{"/admin/posts/new/", routeAdmin},
		{"/metrics", routeMetrics},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.path), tt.path)
	}
}

func TestCacheControlHeaders(t *testing.T) {
	app := newTestApp(t, nil)
	c := newClient(t, app)

	tests := []struct {
		path string
		want string
	}{
		{"/", "public, max-age=3600"},
		{"/feed.xml", "public, max-age=86400"},
		{"/admin/", "no-store"},
		{"/metrics", "no-store"},
	}
	for _, tt := range tests {
		rec := c.do(http.MethodGet, tt.path, nil)
		assert.Equal(t, tt.want, rec.Header().Get("Cache-Control"), tt.path)
	}
}

func TestTrailingSlashRedirect(t *testing.T) {
	app := newTestApp(t, nil)
	c := newClient(t, app)

	rec := c.do(http.MethodGet, "/posts/hello", nil)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/posts/hello/", rec.Header().Get("Location"))

	rec = c.do(http.MethodGet, "/feed.xml", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t, nil)
	rec := newClient(t, app).do(http.MethodGet, "/", nil)

	assert.Equal(t, contentSecurityPolicy, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
