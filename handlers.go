package blog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meettilavat/blog-project/richtext"
)

// coverWidth is the width cover images are optimized to.
const coverWidth = 1600

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts()
	if err != nil {
		return err
	}
	summaries := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, PostSummary{
			Post:        p,
			Description: Description(p),
			Reading:     richtext.ReadingTime(p.Content),
		})
	}
	return Render(c, a.Views.Home(HomePage{
		Site: a.Config,
		Meta: PageMeta{
			Title:       a.Config.Name,
			Description: a.Config.Description,
			URL:         BuildURL(a.Config.URL),
			OGType:      "website",
		},
		Posts: summaries,
	}))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	return Render(c, a.Views.Post(a.buildPostPage(c, post)))
}

// buildPostPage resolves unknown image sizes and assembles the page. The
// body component renders from the prepared sizes without further I/O.
func (a *App) buildPostPage(c echo.Context, post Post) PostPage {
	var res richtext.Resolver
	if a.Prober != nil {
		res = a.Prober
	}
	renderer := a.renderer.Prepare(c.Request().Context(), post.Content, res)

	return PostPage{
		Site: a.Config,
		Meta: PageMeta{
			Title:       post.Title + " | " + a.Config.Name,
			Description: Description(post),
			URL:         BuildURL(a.Config.URL, "posts", post.Slug),
			OGType:      "article",
			Image:       post.CoverImageURL,
		},
		Post:        post,
		Cover:       a.cover(post),
		Headings:    richtext.ExtractHeadings(post.Content),
		Reading:     richtext.ReadingTime(post.Content),
		ShowUpdated: ShowUpdated(post),
		Body:        renderer.Component(post.Content),
		JSONLD:      BlogPostingJsonLD(post, a.Config),
	}
}

// cover returns nil when the post has no usable cover image. Allow-listed
// hosts are served through the optimizer; anything else is linked as is.
func (a *App) cover(post Post) *Cover {
	src := strings.TrimSpace(post.CoverImageURL)
	if src == "" || !richtext.SafeImageSrc(src) {
		return nil
	}
	if a.Hosts.IsAllowed(src) {
		return &Cover{Src: OptimizedImagePath(src, coverWidth), Alt: post.Title, Optimized: true}
	}
	return &Cover{Src: src, Alt: post.Title}
}

func (a *App) handlePostMarkdown(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	body, err := richtext.ToMarkdown(post.Content)
	if err != nil {
		return fmt.Errorf("blog: export %s: %w", post.Slug, err)
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte("# "+post.Title+"\n\n"+body))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts()
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handlePostsRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /_img/\n")
	b.WriteString("\nSitemap: " + a.Config.URL + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
