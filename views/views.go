// Package views provides the default page components for a blog.App.
//
// Pages are html/template files embedded in the binary and exposed as
// templ.Components, so they plug into blog.ViewFuncs next to hand-written
// templ components.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/a-h/templ"

	blog "github.com/meettilavat/blog-project"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages maps a page file name to its template set, each parsed together
// with the shared layout.
var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	base := template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html"))
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		name = strings.TrimPrefix(name, "templates/")
		if name == "layout.html" {
			continue
		}
		t := template.Must(base.Clone())
		out[name] = template.Must(t.ParseFS(templateFS, "templates/"+name))
	}
	return out
}

// layoutData is what layout.html receives. Page is the page-specific value
// the "main" block renders. Ctx is the request context, used to render
// embedded components.
type layoutData struct {
	Ctx    context.Context
	Site   blog.SiteConfig
	Meta   blog.PageMeta
	JSONLD string
	Admin  bool
	Page   any
}

func page(name string, data layoutData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := pages[name]
		if !ok {
			return fmt.Errorf("views: unknown page %s", name)
		}
		d := data
		d.Ctx = ctx
		return t.ExecuteTemplate(w, "layout", d)
	})
}

// Default returns view functions backed by the embedded templates. site
// fills the layout of pages whose data does not carry the config.
func Default(site blog.SiteConfig) blog.ViewFuncs {
	adminMeta := func(title string) blog.PageMeta {
		return blog.PageMeta{Title: title + " | " + site.Name}
	}
	return blog.ViewFuncs{
		Home: func(p blog.HomePage) templ.Component {
			return page("home.html", layoutData{Site: p.Site, Meta: p.Meta, JSONLD: blog.WebsiteJsonLD(p.Site), Page: p})
		},
		Post: func(p blog.PostPage) templ.Component {
			return page("post.html", layoutData{Site: p.Site, Meta: p.Meta, JSONLD: p.JSONLD, Page: p})
		},
		AdminLogin: func(showError bool, csrf string) templ.Component {
			return page("admin_login.html", layoutData{Site: site, Meta: adminMeta("Sign in"), Admin: true, Page: loginPage{ShowError: showError, CSRF: csrf}})
		},
		AdminDashboard: func(p blog.DashboardPage) templ.Component {
			return page("admin_dashboard.html", layoutData{Site: p.Site, Meta: adminMeta("Posts"), Admin: true, Page: p})
		},
		AdminEditor: func(p blog.EditorPage) templ.Component {
			title := "Edit post"
			if p.IsNew {
				title = "New post"
			}
			return page("admin_editor.html", layoutData{Site: p.Site, Meta: adminMeta(title), Admin: true, Page: p})
		},
		AdminImages: func(images []blog.Image, csrf string) templ.Component {
			return page("admin_images.html", layoutData{Site: site, Meta: adminMeta("Images"), Admin: true, Page: imagesPage{Images: images, CSRF: csrf}})
		},
		NotFound: func() templ.Component {
			return page("not_found.html", layoutData{Site: site, Meta: blog.PageMeta{Title: "Not found | " + site.Name}})
		},
		ServerError: func() templ.Component {
			return page("server_error.html", layoutData{Site: site, Meta: blog.PageMeta{Title: "Error | " + site.Name}})
		},
	}
}

type loginPage struct {
	ShowError bool
	CSRF      string
}

type imagesPage struct {
	Images []blog.Image
	CSRF   string
}
