// Package richtext implements the portable rich-text document format used by
// post bodies: decoding, sanitizing, rendering to HTML, and deriving
// navigation and reading metadata from the same tree.
package richtext

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the closed set of node types the renderer understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindDoc
	KindParagraph
	KindHeading
	KindText
	KindBulletList
	KindOrderedList
	KindListItem
	KindBlockquote
	KindHardBreak
	KindHorizontalRule
	KindCodeBlock
	KindTable
	KindTableRow
	KindTableCell
	KindTableHeader
	KindImage
	KindLink
)

var kindByType = map[string]Kind{
	"doc":            KindDoc,
	"paragraph":      KindParagraph,
	"heading":        KindHeading,
	"text":           KindText,
	"bulletList":     KindBulletList,
	"orderedList":    KindOrderedList,
	"listItem":       KindListItem,
	"blockquote":     KindBlockquote,
	"hardBreak":      KindHardBreak,
	"horizontalRule": KindHorizontalRule,
	"codeBlock":      KindCodeBlock,
	"table":          KindTable,
	"tableRow":       KindTableRow,
	"tableCell":      KindTableCell,
	"tableHeader":    KindTableHeader,
	"image":          KindImage,
	"img":            KindImage,
	"link":           KindLink,
}

// Node is one element of a document tree.
type Node struct {
	Type    string
	Attrs   map[string]any
	Content []*Node
	Marks   []Mark
	Text    string
}

// Mark is an inline formatting annotation on a text node.
type Mark struct {
	Type  string
	Attrs map[string]any
}

// Kind returns the node's variant, KindUnknown for unrecognized types.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindUnknown
	}
	return kindByType[n.Type]
}

// Attr returns a string attribute, or "" if absent or not a string.
func (n *Node) Attr(key string) string {
	if n == nil {
		return ""
	}
	s, _ := n.Attrs[key].(string)
	return s
}

// DeclaredLevel returns the heading level exactly as stored, 0 if absent or not numeric.
func (n *Node) DeclaredLevel() int {
	if n == nil {
		return 0
	}
	v, ok := intAttr(n.Attrs["level"])
	if !ok {
		return 0
	}
	return v
}

// HeadingLevel returns the level used for rendering: 2 when absent or
// invalid, otherwise clamped into [1,6].
func (n *Node) HeadingLevel() int {
	v, ok := intAttr(n.Attrs["level"])
	if !ok {
		return 2
	}
	return min(max(v, 1), 6)
}

// OrderedListStart returns the explicit start of an ordered list, 0 when
// absent or not a positive integer.
func (n *Node) OrderedListStart() int {
	return positiveInt(n.Attrs["start"])
}

// ImageAttrs are the typed attributes of an image node.
type ImageAttrs struct {
	Src     string
	Alt     string
	Caption string
	Width   int
	Height  int
}

// Image returns the node's image attributes. Width and Height are zero when
// absent or not positive.
func (n *Node) Image() ImageAttrs {
	return ImageAttrs{
		Src:     strings.TrimSpace(n.Attr("src")),
		Alt:     n.Attr("alt"),
		Caption: n.Attr("caption"),
		Width:   positiveInt(n.Attrs["width"]),
		Height:  positiveInt(n.Attrs["height"]),
	}
}

// Href returns the mark's href attribute.
func (m Mark) Href() (string, bool) {
	s, ok := m.Attrs["href"].(string)
	return s, ok
}

// intAttr converts a JSON number or numeric string to an int. Values
// outside the int32 range are rejected.
func intAttr(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		t = math.Round(t)
		if math.IsNaN(t) || t < math.MinInt32 || t > math.MaxInt32 {
			return 0, false
		}
		return int(t), true
	case int:
		return intAttr(float64(t))
	case int64:
		return intAttr(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return intAttr(f)
	case string:
		s := strings.TrimSpace(t)
		for _, unit := range []string{"px", "rem", "em", "pt"} {
			s = strings.TrimSuffix(s, unit)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return intAttr(f)
	}
	return 0, false
}

func positiveInt(v any) int {
	i, ok := intAttr(v)
	if !ok || i <= 0 {
		return 0
	}
	return i
}

// Decode parses persisted document JSON. Malformed entries inside the tree
// are dropped; only invalid JSON is an error.
func Decode(data []byte) (*Node, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return FromValue(v), nil
}

// FromValue builds a node from a decoded JSON value. It returns nil when v
// is not an object.
func FromValue(v any) *Node {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	n := &Node{}
	n.Type, _ = obj["type"].(string)
	n.Text, _ = obj["text"].(string)
	if attrs, ok := obj["attrs"].(map[string]any); ok {
		n.Attrs = cloneAttrs(attrs)
	}
	if items, ok := obj["content"].([]any); ok {
		n.Content = make([]*Node, 0, len(items))
		for _, item := range items {
			if child := FromValue(item); child != nil {
				n.Content = append(n.Content, child)
			}
		}
	}
	if items, ok := obj["marks"].([]any); ok {
		n.Marks = make([]Mark, 0, len(items))
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			typ, ok := m["type"].(string)
			if !ok || typ == "" {
				continue
			}
			mark := Mark{Type: typ}
			if attrs, ok := m["attrs"].(map[string]any); ok {
				mark.Attrs = cloneAttrs(attrs)
			}
			n.Marks = append(n.Marks, mark)
		}
	}
	return n
}

type nodeJSON struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

type markJSON struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// MarshalJSON encodes the node in its persisted shape.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		Type:    n.Type,
		Attrs:   n.Attrs,
		Content: n.Content,
		Marks:   n.Marks,
		Text:    n.Text,
	})
}

// UnmarshalJSON decodes leniently, see FromValue.
func (n *Node) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	if decoded == nil {
		*n = Node{}
		return nil
	}
	*n = *decoded
	return nil
}

// MarshalJSON encodes the mark in its persisted shape.
func (m Mark) MarshalJSON() ([]byte, error) {
	return json.Marshal(markJSON(m))
}

// cloneAttrs copies attrs deeply enough that nested maps and slices are not
// shared with the caller.
func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneAttrs(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	}
	return v
}

// EmptyDoc is the document shown for posts without content.
func EmptyDoc() *Node {
	return &Node{
		Type: "doc",
		Content: []*Node{
			{Type: "paragraph"},
		},
	}
}
