package richtext

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var importPolicy = newImportPolicy()

func newImportPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	p.AllowElements("figure", "figcaption")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[a-zA-Z0-9_+#-]+$`)).OnElements("code")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	return p
}

// FromHTML converts an HTML fragment or page into a sanitized document.
// Elements without a document equivalent are unwrapped and their content kept.
func FromHTML(r io.Reader) (*Node, error) {
	clean := importPolicy.SanitizeReader(r)
	root, err := html.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("richtext: parse html: %w", err)
	}
	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}
	doc := &Node{Type: "doc", Content: blocks(body)}
	if len(doc.Content) == 0 {
		return EmptyDoc(), nil
	}
	return Sanitize(doc), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func isBlockElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Blockquote, atom.Pre, atom.Hr,
		atom.Table, atom.Figure, atom.Figcaption, atom.Img,
		atom.Div, atom.Section, atom.Article, atom.Main, atom.Header,
		atom.Footer, atom.Aside, atom.Nav, atom.Dl, atom.Dd, atom.Dt:
		return true
	}
	return false
}

// blocks converts the children of parent into block nodes, gathering runs of
// inline content into paragraphs.
func blocks(parent *html.Node) []*Node {
	var out, run []*Node
	flush := func() {
		if p := paragraph(run); p != nil {
			out = append(out, p)
		}
		run = nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if isBlockElement(c) {
			flush()
			out = append(out, block(c)...)
			continue
		}
		run = append(run, inline(c, nil)...)
	}
	flush()
	return out
}

func block(n *html.Node) []*Node {
	switch n.DataAtom {
	case atom.P:
		return blocks(n)
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		content := trimInline(inlineChildren(n, nil))
		if len(content) == 0 {
			return nil
		}
		return []*Node{{Type: "heading", Attrs: map[string]any{"level": level}, Content: content}}
	case atom.Ul, atom.Ol:
		return list(n)
	case atom.Blockquote:
		content := blocks(n)
		if len(content) == 0 {
			return nil
		}
		return []*Node{{Type: "blockquote", Content: content}}
	case atom.Pre:
		return []*Node{codeBlock(n)}
	case atom.Hr:
		return []*Node{{Type: "horizontalRule"}}
	case atom.Table:
		if t := table(n); t != nil {
			return []*Node{t}
		}
		return nil
	case atom.Figure:
		return figure(n)
	case atom.Img:
		if img := imageNode(n, ""); img != nil {
			return []*Node{img}
		}
		return nil
	}
	return blocks(n)
}

func list(n *html.Node) []*Node {
	l := &Node{Type: "bulletList"}
	if n.DataAtom == atom.Ol {
		l.Type = "orderedList"
		if start, err := strconv.Atoi(attr(n, "start")); err == nil && start > 0 {
			l.Attrs = map[string]any{"start": start}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		content := blocks(c)
		if c.DataAtom != atom.Li {
			content = block(c)
		}
		if len(content) == 0 {
			continue
		}
		l.Content = append(l.Content, &Node{Type: "listItem", Content: content})
	}
	if len(l.Content) == 0 {
		return nil
	}
	return []*Node{l}
}

func codeBlock(n *html.Node) *Node {
	cb := &Node{Type: "codeBlock"}
	if code := findElement(n, atom.Code); code != nil {
		for _, class := range strings.Fields(attr(code, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				cb.Attrs = map[string]any{"language": lang}
				break
			}
		}
	}
	if text := strings.TrimSuffix(textContent(n), "\n"); text != "" {
		cb.Content = []*Node{{Type: "text", Text: text}}
	}
	return cb
}

func table(n *html.Node) *Node {
	t := &Node{Type: "table"}
	var rows func(*html.Node)
	rows = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				rows(c)
			case atom.Tr:
				if row := tableRow(c); row != nil {
					t.Content = append(t.Content, row)
				}
			}
		}
	}
	rows(n)
	if len(t.Content) == 0 {
		return nil
	}
	return t
}

func tableRow(n *html.Node) *Node {
	row := &Node{Type: "tableRow"}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		cell := &Node{Type: "tableCell"}
		if c.DataAtom == atom.Th {
			cell.Type = "tableHeader"
		}
		for _, key := range []string{"colspan", "rowspan"} {
			if span, err := strconv.Atoi(attr(c, key)); err == nil && span > 1 {
				if cell.Attrs == nil {
					cell.Attrs = map[string]any{}
				}
				cell.Attrs[key] = span
			}
		}
		cell.Content = blocks(c)
		if len(cell.Content) == 0 {
			cell.Content = []*Node{{Type: "paragraph"}}
		}
		row.Content = append(row.Content, cell)
	}
	if len(row.Content) == 0 {
		return nil
	}
	return row
}

// figure maps <figure><img><figcaption> to a captioned image. A figure
// without an image is unwrapped.
func figure(n *html.Node) []*Node {
	img := findElement(n, atom.Img)
	if img == nil {
		return blocks(n)
	}
	var caption string
	if fc := findElement(n, atom.Figcaption); fc != nil {
		caption = collapseSpace(textContent(fc))
	}
	if node := imageNode(img, strings.TrimSpace(caption)); node != nil {
		return []*Node{node}
	}
	return nil
}

func imageNode(n *html.Node, caption string) *Node {
	src := strings.TrimSpace(attr(n, "src"))
	if src == "" {
		return nil
	}
	attrs := map[string]any{"src": src}
	if alt := strings.TrimSpace(attr(n, "alt")); alt != "" {
		attrs["alt"] = alt
	}
	if caption != "" {
		attrs["caption"] = caption
	}
	for _, key := range []string{"width", "height"} {
		if v := positiveInt(attr(n, key)); v > 0 {
			attrs[key] = v
		}
	}
	return &Node{Type: "image", Attrs: attrs}
}

func inlineChildren(n *html.Node, marks []Mark) []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, inline(c, marks)...)
	}
	return out
}

func inline(n *html.Node, marks []Mark) []*Node {
	switch n.Type {
	case html.TextNode:
		text := collapseSpace(n.Data)
		if text == "" {
			return nil
		}
		return []*Node{{Type: "text", Text: text, Marks: marks}}
	case html.ElementNode:
	default:
		return nil
	}

	var m *Mark
	switch n.DataAtom {
	case atom.Br:
		return []*Node{{Type: "hardBreak"}}
	case atom.Img:
		if img := imageNode(n, ""); img != nil {
			return []*Node{img}
		}
		return nil
	case atom.Strong, atom.B:
		m = &Mark{Type: "bold"}
	case atom.Em, atom.I:
		m = &Mark{Type: "italic"}
	case atom.S, atom.Del, atom.Strike:
		m = &Mark{Type: "strike"}
	case atom.Code:
		m = &Mark{Type: "code"}
	case atom.U:
		m = &Mark{Type: "underline"}
	case atom.A:
		if href := strings.TrimSpace(attr(n, "href")); href != "" {
			m = &Mark{Type: "link", Attrs: map[string]any{"href": href}}
		}
	}
	if m != nil {
		marks = append(marks[:len(marks):len(marks)], *m)
	}
	return inlineChildren(n, marks)
}

// paragraph wraps an inline run, or returns nil when the run has no
// visible content.
func paragraph(run []*Node) *Node {
	run = trimInline(run)
	if len(run) == 0 {
		return nil
	}
	return &Node{Type: "paragraph", Content: run}
}

// trimInline strips whitespace at the edges of an inline run.
func trimInline(run []*Node) []*Node {
	for len(run) > 0 && isBlankText(run[0]) {
		run = run[1:]
	}
	for len(run) > 0 && isBlankText(run[len(run)-1]) {
		run = run[:len(run)-1]
	}
	if len(run) == 0 {
		return nil
	}
	if first := run[0]; first.Kind() == KindText {
		cp := *first
		cp.Text = strings.TrimLeft(cp.Text, " ")
		run[0] = &cp
	}
	if last := run[len(run)-1]; last.Kind() == KindText {
		cp := *last
		cp.Text = strings.TrimRight(cp.Text, " ")
		run[len(run)-1] = &cp
	}
	return run
}

func isBlankText(n *Node) bool {
	return n.Kind() == KindText && strings.TrimSpace(n.Text) == ""
}

// collapseSpace folds runs of HTML whitespace into single spaces. A string
// of only whitespace becomes one space so inline siblings stay separated.
func collapseSpace(s string) string {
	fields := strings.FieldsFunc(s, isHTMLSpace)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if isHTMLSpace(rune(s[0])) {
		out = " " + out
	}
	if isHTMLSpace(rune(s[len(s)-1])) {
		out += " "
	}
	return out
}

func isHTMLSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
