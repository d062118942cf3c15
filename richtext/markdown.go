package richtext

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// ToMarkdown renders doc to HTML with a zero Renderer and converts the result
// to CommonMark.
func ToMarkdown(doc *Node) (string, error) {
	var r Renderer
	md, err := htmltomarkdown.ConvertString(r.HTML(doc))
	if err != nil {
		return "", fmt.Errorf("richtext: convert to markdown: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}
