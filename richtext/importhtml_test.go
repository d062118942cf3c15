package richtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTML(t *testing.T) {
	src := `<h2>Title</h2>` +
		`<p>Hello <strong>bold</strong> <a href="https://example.com">link</a></p>` +
		`<script>alert(1)</script>` +
		`<figure><img src="https://images.unsplash.com/a.jpg" alt="A" width="640" height="480"><figcaption> The   caption </figcaption></figure>` +
		`<ul><li>one</li><li>two</li></ul>` +
		`<pre><code class="language-go">fmt.Println()</code></pre>`

	doc, err := FromHTML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, doc.Content, 5)

	h := doc.Content[0]
	assert.Equal(t, KindHeading, h.Kind())
	assert.Equal(t, 2, h.DeclaredLevel())
	assert.Equal(t, "Title", headingText(h))

	p := doc.Content[1]
	require.Len(t, p.Content, 4)
	assert.Equal(t, "Hello ", p.Content[0].Text)
	assert.Equal(t, "bold", p.Content[1].Text)
	assert.Equal(t, []Mark{{Type: "bold"}}, p.Content[1].Marks)
	assert.Equal(t, " ", p.Content[2].Text)
	href, ok := p.Content[3].Marks[0].Href()
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", href)

	img := doc.Content[2].Image()
	assert.Equal(t, ImageAttrs{Src: "https://images.unsplash.com/a.jpg", Alt: "A", Caption: "The caption", Width: 640, Height: 480}, img)

	list := doc.Content[3]
	assert.Equal(t, KindBulletList, list.Kind())
	require.Len(t, list.Content, 2)
	assert.Equal(t, "two", PlainText(list.Content[1]))

	code := doc.Content[4]
	assert.Equal(t, KindCodeBlock, code.Kind())
	assert.Equal(t, "go", code.Attr("language"))
	assert.Equal(t, "fmt.Println()", PlainText(code))

	assert.NotContains(t, PlainText(doc), "alert")
}

func TestFromHTMLDropsUnsafeContent(t *testing.T) {
	src := `<p><a href="javascript:alert(1)">click</a><img src="javascript:alert(2)" onerror="x()"></p><div><p>inside div</p></div>`
	doc, err := FromHTML(strings.NewReader(src))
	require.NoError(t, err)

	var r Renderer
	out := r.HTML(doc)
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "onerror")
	assert.Contains(t, out, "click")
	assert.Contains(t, out, "<p>inside div</p>")
}

func TestFromHTMLTableAndOrderedList(t *testing.T) {
	src := `<table><thead><tr><th>A</th><th>B</th></tr></thead><tbody><tr><td colspan="2">x</td></tr></tbody></table>` +
		`<ol start="4"><li><p>four</p></li></ol>`
	doc, err := FromHTML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, doc.Content, 2)

	table := doc.Content[0]
	require.Len(t, table.Content, 2)
	assert.Equal(t, KindTableHeader, table.Content[0].Content[0].Kind())
	assert.Equal(t, 2, positiveInt(table.Content[1].Content[0].Attrs["colspan"]))

	assert.Equal(t, 4, doc.Content[1].OrderedListStart())
}

func TestFromHTMLEmpty(t *testing.T) {
	doc, err := FromHTML(strings.NewReader("   "))
	require.NoError(t, err)
	assert.Equal(t, EmptyDoc(), doc)
}

func TestToMarkdown(t *testing.T) {
	doc := mustDecode(t, `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Title"}]},
		{"type":"paragraph","content":[{"type":"text","text":"some "},{"type":"text","text":"bold","marks":[{"type":"bold"}]}]}
	]}`)
	md, err := ToMarkdown(doc)
	require.NoError(t, err)
	assert.Contains(t, md, "## Title")
	assert.Contains(t, md, "**bold**")
	assert.True(t, strings.HasSuffix(md, "\n"))
}
