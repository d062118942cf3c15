package blog

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/meettilavat/blog-project/richtext"
)

// DescriptionLength is how much plain text stands in for a missing excerpt.
const DescriptionLength = 160

var strictPolicy = bluemonday.StrictPolicy()

// StripHTML removes all markup from s and collapses whitespace.
func StripHTML(s string) string {
	return strings.Join(strings.Fields(strictPolicy.Sanitize(s)), " ")
}

// BuildURL appends path segments to base. Page URLs always end in a slash,
// matching the trailing-slash redirect.
func BuildURL(base string, segments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if len(segments) == 0 {
		return u.String()
	}
	u.Path = path.Join(append([]string{"/", u.Path}, segments...)...)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterEmpty trims each value and drops the blank ones.
func FilterEmpty(vals []string) []string {
	out := vals[:0:0]
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Description returns the post's excerpt, or the start of its plain text.
func Description(p Post) string {
	if e := strings.TrimSpace(p.Excerpt); e != "" {
		return e
	}
	return richtext.Excerpt(p.Content, DescriptionLength)
}

// ShowUpdated reports whether a post was edited more than a day after it
// was created.
func ShowUpdated(p Post) bool {
	return p.UpdatedAt.Sub(p.CreatedAt) > 24*time.Hour
}

// FormatDate formats t for display, "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// OptimizedImagePath is the optimizer path serving src scaled to width.
func OptimizedImagePath(src string, width int) string {
	v := url.Values{}
	v.Set("url", src)
	v.Set("w", strconv.Itoa(width))
	return "/_img/?" + v.Encode()
}

// schemaThing is the subset of schema.org vocabulary the JSON-LD blocks use.
type schemaThing struct {
	Context       string       `json:"@context,omitempty"`
	Type          string       `json:"@type"`
	ID            string       `json:"@id,omitempty"`
	Name          string       `json:"name,omitempty"`
	Headline      string       `json:"headline,omitempty"`
	Description   string       `json:"description,omitempty"`
	URL           string       `json:"url,omitempty"`
	Image         string       `json:"image,omitempty"`
	DatePublished string       `json:"datePublished,omitempty"`
	DateModified  string       `json:"dateModified,omitempty"`
	Author        *schemaThing `json:"author,omitempty"`
	Publisher     *schemaThing `json:"publisher,omitempty"`
	MainEntity    *schemaThing `json:"mainEntityOfPage,omitempty"`
}

func person(name string) *schemaThing {
	if name == "" {
		return nil
	}
	return &schemaThing{Type: "Person", Name: name}
}

func marshalJSONLD(v schemaThing) string {
	v.Context = "https://schema.org"
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// WebsiteJsonLD returns the WebSite JSON-LD block for the home page.
func WebsiteJsonLD(cfg SiteConfig) string {
	return marshalJSONLD(schemaThing{
		Type:        "WebSite",
		Name:        cfg.Name,
		URL:         BuildURL(cfg.URL),
		Description: cfg.Description,
		Author:      person(cfg.Author),
	})
}

// BlogPostingJsonLD returns the BlogPosting JSON-LD block for a post page.
// The post author falls back to the site author.
func BlogPostingJsonLD(post Post, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "posts", post.Slug)
	author := post.Author
	if author == "" {
		author = cfg.Author
	}
	ld := schemaThing{
		Type:          "BlogPosting",
		Headline:      post.Title,
		Description:   Description(post),
		URL:           postURL,
		Image:         post.CoverImageURL,
		DatePublished: post.CreatedAt.Format(time.RFC3339),
		DateModified:  post.UpdatedAt.Format(time.RFC3339),
		Author:        person(author),
		MainEntity:    &schemaThing{Type: "WebPage", ID: postURL},
	}
	if cfg.Name != "" {
		ld.Publisher = &schemaThing{Type: "Organization", Name: cfg.Name}
	}
	return marshalJSONLD(ld)
}
