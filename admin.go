package blog

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meettilavat/blog-project/richtext"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	c.Logger().Warnf("failed admin login from %s", ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminNew(c echo.Context) error {
	post := Post{Status: StatusDraft, Author: a.Config.Author, Content: richtext.EmptyDoc()}
	return a.renderEditor(c, post, true, "")
}

func (a *App) handleAdminEdit(c echo.Context) error {
	post, err := a.Store.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	return a.renderEditor(c, post, false, c.QueryParam("msg"))
}

// formError is a validation message shown back to the editor.
type formError string

func (e formError) Error() string { return string(e) }

// postFromForm reads the editor form. The body arrives as document JSON, or
// as HTML when format=html.
func postFromForm(c echo.Context) (Post, error) {
	post := Post{
		ID:            strings.TrimSpace(c.FormValue("id")),
		Title:         strings.TrimSpace(c.FormValue("title")),
		Slug:          strings.TrimSpace(c.FormValue("slug")),
		Excerpt:       StripHTML(c.FormValue("excerpt")),
		CoverImageURL: strings.TrimSpace(c.FormValue("cover_image_url")),
		Status:        ParseStatus(c.FormValue("status")),
		Author:        strings.TrimSpace(c.FormValue("author")),
	}
	if post.CoverImageURL != "" && !richtext.SafeImageSrc(post.CoverImageURL) {
		return post, formError("Cover image URL must be http(s) or a site path.")
	}

	body := c.FormValue("content")
	switch c.FormValue("format") {
	case "html":
		doc, err := richtext.FromHTML(strings.NewReader(body))
		if err != nil {
			return post, formError("Content is not valid HTML.")
		}
		post.Content = doc
	default:
		if strings.TrimSpace(body) == "" {
			post.Content = richtext.EmptyDoc()
			break
		}
		doc, err := richtext.Decode([]byte(body))
		if err != nil {
			return post, formError("Content is not a valid document.")
		}
		post.Content = doc
	}
	return post, nil
}

func (a *App) handleAdminSave(c echo.Context) error {
	post, err := postFromForm(c)
	if err != nil {
		return a.renderEditor(c, post, post.ID == "", err.Error())
	}
	if post.Title == "" {
		return a.renderEditor(c, post, post.ID == "", "Title is required.")
	}

	saved, err := a.Store.Save(post)
	switch {
	case errors.Is(err, ErrSlugTaken):
		return a.renderEditor(c, post, post.ID == "", "Another post already uses that slug.")
	case errors.Is(err, ErrNotFound):
		return echo.ErrNotFound
	case err != nil:
		return err
	}
	a.Cache.Invalidate()
	return c.Redirect(http.StatusSeeOther, "/admin/posts/"+saved.ID+"/?msg="+url.QueryEscape("Saved."))
}

func (a *App) handleAdminStatus(c echo.Context) error {
	id := c.Param("id")
	status := ParseStatus(c.FormValue("status"))
	if err := a.Store.UpdateStatus(id, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	a.Cache.Invalidate()
	msg := "Post unpublished."
	if status == StatusPublished {
		msg = "Post published."
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if err := a.Store.Delete(c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	a.Cache.Invalidate()
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape("Post deleted."))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	filter := c.QueryParam("status")
	var status Status
	if filter != "" {
		status = ParseStatus(filter)
		filter = string(status)
	}
	posts, err := a.Store.ListAll(status)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(DashboardPage{
		Site:    a.Config,
		Posts:   posts,
		Filter:  filter,
		Message: msg,
		CSRF:    CsrfToken(c),
	}))
}

func (a *App) renderEditor(c echo.Context, post Post, isNew bool, msg string) error {
	content := post.Content
	if content == nil {
		content = richtext.EmptyDoc()
	}
	raw, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return err
	}
	code := http.StatusOK
	if msg != "" && c.Request().Method == http.MethodPost {
		code = http.StatusUnprocessableEntity
	}
	return RenderStatus(c, code, a.Views.AdminEditor(EditorPage{
		Site:        a.Config,
		Post:        post,
		ContentJSON: string(raw),
		IsNew:       isNew,
		Message:     msg,
		CSRF:        CsrfToken(c),
	}))
}
