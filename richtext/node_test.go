package richtext

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, s string) *Node {
	t.Helper()
	n, err := Decode([]byte(s))
	require.NoError(t, err)
	return n
}

func TestKind(t *testing.T) {
	tests := []struct {
		typ  string
		want Kind
	}{
		{"doc", KindDoc},
		{"paragraph", KindParagraph},
		{"image", KindImage},
		{"img", KindImage},
		{"tableHeader", KindTableHeader},
		{"callout", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		if got := (&Node{Type: tt.typ}).Kind(); got != tt.want {
			t.Errorf("Kind(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
	var nilNode *Node
	assert.Equal(t, KindUnknown, nilNode.Kind())
}

func TestDecodeIsLenient(t *testing.T) {
	doc := mustDecode(t, `{
		"type": "doc",
		"content": [
			"stray string",
			42,
			{"type": "paragraph", "content": [
				{"type": "text", "text": "hi", "marks": [{"type": "bold"}, {"attrs": {}}, "x", {"type": ""}]},
				{"type": "text", "text": 7}
			]},
			{"type": "heading", "content": "not an array"}
		]
	}`)

	require.Len(t, doc.Content, 2)
	para := doc.Content[0]
	require.Len(t, para.Content, 2)
	assert.Equal(t, "hi", para.Content[0].Text)
	assert.Equal(t, []Mark{{Type: "bold"}}, para.Content[0].Marks)
	assert.Equal(t, "", para.Content[1].Text)
	assert.Nil(t, doc.Content[1].Content)
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestFromValueNonObject(t *testing.T) {
	for _, v := range []any{nil, "doc", 1.0, []any{}} {
		assert.Nil(t, FromValue(v))
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		attrs    map[string]any
		declared int
		render   int
	}{
		{nil, 0, 2},
		{map[string]any{"level": 3.0}, 3, 3},
		{map[string]any{"level": "4"}, 4, 4},
		{map[string]any{"level": 9.0}, 9, 6},
		{map[string]any{"level": 0.0}, 0, 1},
		{map[string]any{"level": "big"}, 0, 2},
		{map[string]any{"level": 1e300}, 0, 2},
		{map[string]any{"level": -1e300}, 0, 2},
		{map[string]any{"level": "1e40"}, 0, 2},
	}
	for _, tt := range tests {
		n := &Node{Type: "heading", Attrs: tt.attrs}
		if got := n.DeclaredLevel(); got != tt.declared {
			t.Errorf("DeclaredLevel(%v) = %d, want %d", tt.attrs, got, tt.declared)
		}
		if got := n.HeadingLevel(); got != tt.render {
			t.Errorf("HeadingLevel(%v) = %d, want %d", tt.attrs, got, tt.render)
		}
	}
}

func TestImageAttrs(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]any
		want  ImageAttrs
	}{
		{"numbers", map[string]any{"src": "/a.png", "width": 640.0, "height": 480.0}, ImageAttrs{Src: "/a.png", Width: 640, Height: 480}},
		{"units stripped", map[string]any{"src": " /a.png ", "width": "120px", "height": "12.6"}, ImageAttrs{Src: "/a.png", Width: 120, Height: 13}},
		{"non-positive absent", map[string]any{"src": "/a.png", "width": -5.0, "height": "0"}, ImageAttrs{Src: "/a.png"}},
		{"out of range absent", map[string]any{"src": "/a.png", "width": 1e300, "height": "9e18"}, ImageAttrs{Src: "/a.png"}},
		{"garbage absent", map[string]any{"src": "/a.png", "width": true, "height": "tall"}, ImageAttrs{Src: "/a.png"}},
		{"text attrs", map[string]any{"src": "/a.png", "alt": "A", "caption": "C"}, ImageAttrs{Src: "/a.png", Alt: "A", Caption: "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, (&Node{Type: "image", Attrs: tt.attrs}).Image())
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := `{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Hi"}]},{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"link","attrs":{"href":"/a"}}]}]}]}`
	doc := mustDecode(t, in)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))

	again := mustDecode(t, string(out))
	assert.Equal(t, doc, again)
}
