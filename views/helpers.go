package views

import (
	"context"
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	blog "github.com/meettilavat/blog-project"
)

var funcs = template.FuncMap{
	"render":     render,
	"jsonld":     jsonLD,
	"date":       blog.FormatDate,
	"isoDate":    isoDate,
	"pathEscape": url.PathEscape,
	"tocClass":   TOCClass,
	"minutes":    Minutes,
}

// render writes c into the page. Errors abort template execution.
func render(ctx context.Context, c templ.Component) (template.HTML, error) {
	if c == nil {
		return "", nil
	}
	return templ.ToGoHTML(ctx, c)
}

// jsonLD marks a JSON-LD document built by the blog package as trusted
// script content.
func jsonLD(s string) template.JS {
	return template.JS(s)
}

func isoDate(t time.Time) string {
	return t.Format(time.RFC3339)
}

// TOCClass returns the table-of-contents class for a heading level.
func TOCClass(level int) string {
	return "level-" + strconv.Itoa(min(max(level, 1), 6))
}

// Minutes formats a reading time estimate.
func Minutes(n int) string {
	return strconv.Itoa(n) + " min read"
}
