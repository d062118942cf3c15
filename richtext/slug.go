package richtext

import "strings"

// Slugify converts text to a URL-safe slug: lowercase ASCII letters and
// digits, with every other run collapsed to a single hyphen.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// headingText joins the direct text children of a heading with single
// spaces. Both the renderer and ExtractHeadings derive ids from it.
func headingText(n *Node) string {
	var parts []string
	for _, child := range n.Content {
		if child.Kind() == KindText {
			parts = append(parts, strings.Fields(child.Text)...)
		}
	}
	return strings.Join(parts, " ")
}

// HeadingID returns the anchor id for a heading node: an explicit id
// attribute when present, otherwise the slug of its text.
func HeadingID(n *Node) string {
	if id := strings.TrimSpace(n.Attr("id")); id != "" {
		return id
	}
	return Slugify(headingText(n))
}
