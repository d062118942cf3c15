package richtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.24: what's new?  ", "go-1-24-what-s-new"},
		{"Crème brûlée", "cr-me-br-l-e"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractHeadings(t *testing.T) {
	doc := mustDecode(t, `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Intro"}]},
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Set"},{"type":"text","text":"up","marks":[{"type":"bold"}]}]},
		{"type":"heading","content":[{"type":"text","text":"No level"}]},
		{"type":"heading","attrs":{"level":3}},
		{"type":"heading","attrs":{"level":3},"content":[{"type":"text","text":"   "}]},
		{"type":"heading","attrs":{"level":7,"id":"custom"},"content":[{"type":"text","text":"Deep"}]},
		{"type":"blockquote","content":[{"type":"heading","attrs":{"level":4},"content":[{"type":"text","text":"Nested"}]}]}
	]}`)

	assert.Equal(t, []Heading{
		{ID: "intro", Text: "Intro", Level: 1},
		{ID: "set-up", Text: "Set up", Level: 2},
		{ID: "custom", Text: "Deep", Level: 7},
		{ID: "nested", Text: "Nested", Level: 4},
	}, ExtractHeadings(doc))
}

func TestExtractHeadingsMatchRenderedIDs(t *testing.T) {
	doc := mustDecode(t, `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Hello, "},{"type":"text","text":"World","marks":[{"type":"italic"}]}]}
	]}`)
	var r Renderer
	out := r.HTML(doc)
	headings := ExtractHeadings(doc)
	require.Len(t, headings, 1)
	assert.Equal(t, Heading{ID: "hello-world", Text: "Hello, World", Level: 2}, headings[0])
	assert.Contains(t, out, `id="hello-world"`)
}

func TestPlainText(t *testing.T) {
	doc := mustDecode(t, `{"type":"doc","content":[
		{"type":"paragraph","content":[{"type":"text","text":"one"},{"type":"text","text":"two"}]},
		{"type":"paragraph","content":[{"type":"text","text":"three"}]}
	]}`)
	assert.Equal(t, "one two three", PlainText(doc))
	assert.Equal(t, "", PlainText(nil))
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		words int
		want  Reading
	}{
		{0, Reading{Minutes: 1, Words: 0}},
		{1, Reading{Minutes: 1, Words: 1}},
		{200, Reading{Minutes: 1, Words: 200}},
		{201, Reading{Minutes: 2, Words: 201}},
		{1000, Reading{Minutes: 5, Words: 1000}},
	}
	for _, tt := range tests {
		doc := &Node{Type: "doc"}
		if tt.words > 0 {
			text := strings.TrimSpace(strings.Repeat("word ", tt.words))
			doc.Content = []*Node{{Type: "paragraph", Content: []*Node{{Type: "text", Text: text}}}}
		}
		if got := ReadingTime(doc); got != tt.want {
			t.Errorf("ReadingTime(%d words) = %+v, want %+v", tt.words, got, tt.want)
		}
	}
}

func TestExcerpt(t *testing.T) {
	doc := &Node{Type: "doc", Content: []*Node{{Type: "paragraph", Content: []*Node{{Type: "text", Text: "héllo wörld again"}}}}}
	tests := []struct {
		n    int
		want string
	}{
		{5, "héllo"},
		{6, "héllo"},
		{11, "héllo wörld"},
		{100, "héllo wörld again"},
		{0, "héllo wörld again"},
	}
	for _, tt := range tests {
		if got := Excerpt(doc, tt.n); got != tt.want {
			t.Errorf("Excerpt(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
