package richtext

import (
	"strings"
	"unicode/utf8"
)

// WordsPerMinute is the reading speed used by ReadingTime.
const WordsPerMinute = 200

// Heading is one entry of a document's table of contents.
type Heading struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Reading is the reading-time estimate of a document.
type Reading struct {
	Minutes int `json:"minutes"`
	Words   int `json:"words"`
}

// ExtractHeadings returns the document's headings in document order.
// Headings without a declared level or without text are skipped. Levels
// are reported as declared, without the clamping applied when rendering.
// Ids match the ones the Renderer assigns.
func ExtractHeadings(doc *Node) []Heading {
	var out []Heading
	walk(doc, func(n *Node) {
		if n.Kind() != KindHeading || len(n.Content) == 0 {
			return
		}
		level := n.DeclaredLevel()
		if level == 0 {
			return
		}
		text := headingText(n)
		if text == "" {
			return
		}
		out = append(out, Heading{ID: HeadingID(n), Text: text, Level: level})
	})
	return out
}

// PlainText concatenates the text of every text node, each followed by a
// single space, and trims the result.
func PlainText(doc *Node) string {
	var b strings.Builder
	walk(doc, func(n *Node) {
		if n.Kind() == KindText && n.Text != "" {
			b.WriteString(n.Text)
			b.WriteByte(' ')
		}
	})
	return strings.TrimSpace(b.String())
}

// ReadingTime estimates reading time from the document's plain text. Every
// document reports at least one minute.
func ReadingTime(doc *Node) Reading {
	words := len(strings.Fields(PlainText(doc)))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	return Reading{Minutes: max(1, minutes), Words: words}
}

// Excerpt returns the document's plain text cut to at most n runes.
func Excerpt(doc *Node, n int) string {
	text := PlainText(doc)
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n]))
}

// walk visits n and its descendants depth-first in document order.
func walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Content {
		walk(child, fn)
	}
}
