package richtext

import (
	"fmt"
	"net/url"
	"strings"
)

// SafeHref reports whether a link target is site-relative or an absolute
// http, https or mailto URL.
func SafeHref(raw string) bool {
	if raw == "" {
		return false
	}
	if siteRelative(raw) {
		return true
	}
	switch scheme(raw) {
	case "http", "https", "mailto":
		return true
	}
	return false
}

// SafeImageSrc reports whether an image source is site-relative, an absolute
// http or https URL, or a non-SVG data:image URI.
func SafeImageSrc(raw string) bool {
	if raw == "" {
		return false
	}
	if siteRelative(raw) {
		return true
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:image/") {
		return !strings.HasPrefix(lower, "data:image/svg")
	}
	switch scheme(raw) {
	case "http", "https":
		return true
	}
	return false
}

// siteRelative matches "/path" but not protocol-relative "//host/path",
// which browsers resolve against a foreign host.
func siteRelative(raw string) bool {
	return strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, `/\`)
}

// scheme returns the lowercased scheme of an absolute URL, "" if raw does
// not parse or has none.
func scheme(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "mailto" && u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// SanitizeValue sanitizes a decoded JSON value. It returns nil when v is nil
// or not a JSON object.
func SanitizeValue(v any) *Node {
	return Sanitize(FromValue(v))
}

// Sanitize returns a copy of doc without unsafe link targets or image
// sources. Image nodes with an unsafe src are removed, link marks with an
// unsafe href are removed, and link nodes lose an unsafe href attribute but
// keep their content. The input is not modified.
func Sanitize(doc *Node) *Node {
	if doc == nil {
		return nil
	}
	return sanitizeNode(doc)
}

// rawImageSrc returns the src attribute as text. Falsy JSON values count as
// no src; any other non-string value is formatted so it fails SafeImageSrc.
func rawImageSrc(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	}
	return fmt.Sprint(v)
}

func sanitizeNode(n *Node) *Node {
	kind := n.Kind()
	if kind == KindImage {
		if src := rawImageSrc(n.Attrs["src"]); src != "" && !SafeImageSrc(src) {
			return nil
		}
	}

	out := &Node{
		Type:  n.Type,
		Text:  n.Text,
		Attrs: cloneAttrs(n.Attrs),
	}

	if kind == KindLink {
		if href, ok := out.Attrs["href"].(string); ok && !SafeHref(href) {
			delete(out.Attrs, "href")
		}
	}

	if n.Marks != nil {
		out.Marks = make([]Mark, 0, len(n.Marks))
		for _, m := range n.Marks {
			if m.Type == "link" {
				href, ok := m.Href()
				if !ok || !SafeHref(href) {
					continue
				}
			}
			out.Marks = append(out.Marks, Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)})
		}
	}

	if n.Content != nil {
		out.Content = make([]*Node, 0, len(n.Content))
		for _, child := range n.Content {
			if child == nil {
				continue
			}
			if clean := sanitizeNode(child); clean != nil {
				out.Content = append(out.Content, clean)
			}
		}
	}
	return out
}
