package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/meettilavat/blog-project/imagesize"
)

// Placeholder size for images whose dimensions are unknown.
const (
	DefaultImageWidth  = 1200
	DefaultImageHeight = 800
)

const fallbackAlt = "Embedded image"

// Renderer renders documents to HTML. The zero value renders every image
// unoptimized with explicit or placeholder dimensions.
type Renderer struct {
	// Hosts gates which images go through Optimize.
	Hosts *HostAllowList
	// Dimensions holds intrinsic sizes by image src, usually filled by Prepare.
	Dimensions map[string]imagesize.Dimensions
	// Optimize rewrites the src of an allow-listed image for the given width.
	Optimize func(src string, width int) string
}

// Component returns a templ.Component that renders doc as HTML.
func (r *Renderer) Component(doc *Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.Render(w, doc)
	})
}

// HTML renders doc to a string.
func (r *Renderer) HTML(doc *Node) string {
	var buf bytes.Buffer
	r.render(&buf, doc)
	return buf.String()
}

// Render writes the HTML of doc to w. The document is sanitized first, so
// the output never carries an unsafe href or src.
func (r *Renderer) Render(w io.Writer, doc *Node) error {
	var buf bytes.Buffer
	r.render(&buf, doc)
	_, err := w.Write(buf.Bytes())
	return err
}

func (r *Renderer) render(buf *bytes.Buffer, doc *Node) {
	clean := Sanitize(doc)
	if clean == nil {
		return
	}
	s := &renderState{r: r, buf: buf}
	s.node(clean)
}

type renderState struct {
	r      *Renderer
	buf    *bytes.Buffer
	images int
}

func (s *renderState) children(n *Node) {
	for _, child := range n.Content {
		s.node(child)
	}
}

func (s *renderState) wrap(tag string, n *Node) {
	s.buf.WriteString("<" + tag + ">")
	s.children(n)
	s.buf.WriteString("</" + tag + ">")
}

func (s *renderState) node(n *Node) {
	switch n.Kind() {
	case KindDoc:
		s.children(n)
	case KindParagraph:
		s.wrap("p", n)
	case KindHeading:
		s.heading(n)
	case KindText:
		s.text(n)
	case KindBulletList:
		s.wrap("ul", n)
	case KindOrderedList:
		if start := n.OrderedListStart(); start > 1 {
			s.buf.WriteString(`<ol start="` + strconv.Itoa(start) + `">`)
		} else {
			s.buf.WriteString("<ol>")
		}
		s.children(n)
		s.buf.WriteString("</ol>")
	case KindListItem:
		s.wrap("li", n)
	case KindBlockquote:
		s.wrap("blockquote", n)
	case KindHardBreak:
		s.buf.WriteString("<br/>")
	case KindHorizontalRule:
		s.buf.WriteString("<hr/>")
	case KindCodeBlock:
		s.codeBlock(n)
	case KindTable:
		s.table(n)
	case KindTableRow:
		s.row(n)
	case KindTableCell, KindTableHeader:
		s.cell(n)
	case KindImage:
		s.image(n)
	case KindLink:
		s.link(n)
	default:
		s.buf.WriteString(`<div data-node-type="` + html.EscapeString(n.Type) + `">`)
		s.children(n)
		s.buf.WriteString("</div>")
	}
}

func (s *renderState) heading(n *Node) {
	tag := "h" + strconv.Itoa(n.HeadingLevel())
	if id := HeadingID(n); id != "" {
		s.buf.WriteString("<" + tag + ` id="` + html.EscapeString(id) + `">`)
	} else {
		s.buf.WriteString("<" + tag + ">")
	}
	s.children(n)
	s.buf.WriteString("</" + tag + ">")
}

// text applies marks left to right, the first mark being the outermost wrapper.
func (s *renderState) text(n *Node) {
	if n.Text == "" {
		return
	}
	open := make([]string, 0, len(n.Marks))
	closeTags := make([]string, 0, len(n.Marks))
	for _, m := range n.Marks {
		o, c := markTags(m)
		if o == "" {
			continue
		}
		open = append(open, o)
		closeTags = append(closeTags, c)
	}
	for _, o := range open {
		s.buf.WriteString(o)
	}
	s.buf.WriteString(html.EscapeString(n.Text))
	for i := len(closeTags) - 1; i >= 0; i-- {
		s.buf.WriteString(closeTags[i])
	}
}

func markTags(m Mark) (string, string) {
	switch m.Type {
	case "bold", "strong":
		return "<strong>", "</strong>"
	case "italic", "em":
		return "<em>", "</em>"
	case "strike", "strikethrough":
		return "<s>", "</s>"
	case "code":
		return "<code>", "</code>"
	case "underline":
		return "<u>", "</u>"
	case "link":
		href, ok := m.Href()
		if !ok || !SafeHref(href) {
			return "", ""
		}
		return `<a href="` + html.EscapeString(href) + `" target="_blank" rel="noopener noreferrer nofollow">`, "</a>"
	}
	return "", ""
}

func (s *renderState) link(n *Node) {
	href := n.Attr("href")
	if href == "" || !SafeHref(href) {
		s.children(n)
		return
	}
	s.buf.WriteString(`<a href="` + html.EscapeString(href) + `" target="_blank" rel="noopener noreferrer nofollow">`)
	s.children(n)
	s.buf.WriteString("</a>")
}

func (s *renderState) codeBlock(n *Node) {
	var code strings.Builder
	walk(n, func(c *Node) {
		if c.Kind() == KindText {
			code.WriteString(c.Text)
		}
	})
	if lang := codeLanguage(n.Attr("language")); lang != "" {
		s.buf.WriteString(`<pre class="code-block"><code class="language-` + lang + `">`)
	} else {
		s.buf.WriteString(`<pre class="code-block"><code>`)
	}
	s.buf.WriteString(html.EscapeString(code.String()))
	s.buf.WriteString("</code></pre>")
}

// codeLanguage keeps only characters that are safe inside a class name.
func codeLanguage(lang string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(lang)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '+', r == '#', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *renderState) table(n *Node) {
	rows := n.Content
	s.buf.WriteString("<table>")
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		s.buf.WriteString("<thead>")
		s.row(rows[0])
		s.buf.WriteString("</thead>")
		rows = rows[1:]
	}
	if len(rows) > 0 {
		s.buf.WriteString("<tbody>")
		for _, row := range rows {
			s.row(row)
		}
		s.buf.WriteString("</tbody>")
	}
	s.buf.WriteString("</table>")
}

// isHeaderRow reports whether every cell of row is a tableHeader.
func isHeaderRow(row *Node) bool {
	if len(row.Content) == 0 {
		return false
	}
	for _, cell := range row.Content {
		if cell.Kind() != KindTableHeader {
			return false
		}
	}
	return true
}

func (s *renderState) row(n *Node) {
	if n.Kind() != KindTableRow {
		s.node(n)
		return
	}
	s.buf.WriteString("<tr>")
	for _, cell := range n.Content {
		s.cell(cell)
	}
	s.buf.WriteString("</tr>")
}

func (s *renderState) cell(n *Node) {
	tag := "td"
	if n.Kind() == KindTableHeader {
		tag = "th"
	}
	s.buf.WriteString("<" + tag)
	if span := positiveInt(n.Attrs["colspan"]); span > 1 {
		s.buf.WriteString(` colspan="` + strconv.Itoa(span) + `"`)
	}
	if span := positiveInt(n.Attrs["rowspan"]); span > 1 {
		s.buf.WriteString(` rowspan="` + strconv.Itoa(span) + `"`)
	}
	s.buf.WriteString(">")
	s.children(n)
	s.buf.WriteString("</" + tag + ">")
}

func (s *renderState) image(n *Node) {
	img := n.Image()
	if img.Src == "" || !SafeImageSrc(img.Src) {
		return
	}
	caption := strings.TrimSpace(img.Caption)
	alt := strings.TrimSpace(img.Alt)
	if alt == "" {
		alt = caption
	}
	if alt == "" {
		alt = fallbackAlt
	}
	width, height := s.r.imageSize(img)

	src := img.Src
	optimized := s.r.Hosts.IsAllowed(src)
	if optimized && s.r.Optimize != nil {
		src = s.r.Optimize(src, width)
	}

	s.images++
	loadAttr := `loading="lazy"`
	if s.images == 1 {
		loadAttr = `fetchpriority="high"`
	}

	s.buf.WriteString(`<figure class="tiptap-figure"><img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(alt) + `"`)
	s.buf.WriteString(` width="` + strconv.Itoa(width) + `" height="` + strconv.Itoa(height) + `" ` + loadAttr + ` decoding="async"`)
	if !optimized {
		s.buf.WriteString(` data-unoptimized="true"`)
	}
	s.buf.WriteString("/>")
	if caption != "" {
		s.buf.WriteString("<figcaption>" + html.EscapeString(caption) + "</figcaption>")
	}
	s.buf.WriteString("</figure>")
}

// imageSize resolves dimensions: explicit attributes, then probed
// dimensions, then the placeholder.
func (r *Renderer) imageSize(img ImageAttrs) (int, int) {
	if img.Width > 0 && img.Height > 0 {
		return img.Width, img.Height
	}
	if d, ok := r.Dimensions[img.Src]; ok && d.Width > 0 && d.Height > 0 {
		return d.Width, d.Height
	}
	return DefaultImageWidth, DefaultImageHeight
}
