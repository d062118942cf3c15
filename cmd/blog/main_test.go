package main

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{"type":"doc","content":[
	{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Title"}]},
	{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Part One"}]},
	{"type":"paragraph","content":[{"type":"text","text":"Some ","marks":[]},{"type":"text","text":"bold","marks":[{"type":"bold"}]},{"type":"text","text":" words here."}]},
	{"type":"image","attrs":{"src":"https://images.unsplash.com/photo","alt":"A photo"}},
	{"type":"image","attrs":{"src":"javascript:alert(1)"}}
]}`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRenderToStdout(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "post.json", sampleDoc)

	out := run(t, "render", path)
	assert.Contains(t, out, `<h1 id="title">Title</h1>`)
	assert.Contains(t, out, `<strong>bold</strong>`)
	assert.Contains(t, out, `width="1200" height="800"`)
	assert.NotContains(t, out, "javascript:")
}

func TestRenderGlobToDir(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a/one.json", sampleDoc)
	writeDoc(t, dir, "a/b/two.json", sampleDoc)
	outDir := filepath.Join(dir, "out")

	run(t, "render", "--out", outDir, filepath.Join(dir, "**", "*.json"))

	for _, name := range []string{"one.html", "two.html"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), `<h2 id="part-one">Part One</h2>`)
	}
}

func TestExpandPatternsNoMatch(t *testing.T) {
	_, err := expandPatterns([]string{filepath.Join(t.TempDir(), "*.json")})
	assert.ErrorContains(t, err, "no files match")
}

func TestHeadings(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "post.json", sampleDoc)

	assert.Equal(t, "- Title (#title)\n  - Part One (#part-one)\n", run(t, "headings", path))

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(run(t, "headings", "--json", path)), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "part-one", got[1]["id"])
}

func TestStats(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "post.json", sampleDoc)

	var got []docStats
	require.NoError(t, json.Unmarshal([]byte(run(t, "stats", "--json", path)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, docStats{File: path, Words: 7, Minutes: 1, Headings: 2, Images: 1, Unresolved: 1}, got[0])
}

func TestExportFile(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "post.json", sampleDoc)

	out := run(t, "export", path)
	assert.True(t, strings.HasPrefix(out, "# Title\n\n## Part One"), out)
	assert.Contains(t, out, "**bold**")
}

func TestProbeDataURI(t *testing.T) {
	header := []byte("GIF89a")
	header = binary.LittleEndian.AppendUint16(header, 32)
	header = binary.LittleEndian.AppendUint16(header, 16)
	uri := "data:image/gif;base64," + base64.StdEncoding.EncodeToString(header)

	var got map[string]*struct{ Width, Height int }
	require.NoError(t, json.Unmarshal([]byte(run(t, "probe", uri, "data:image/png;base64,AAAA")), &got))
	require.NotNil(t, got[uri])
	assert.Equal(t, 32, got[uri].Width)
	assert.Equal(t, 16, got[uri].Height)
	assert.Nil(t, got["data:image/png;base64,AAAA"])
}

func TestParseArticle(t *testing.T) {
	page := `<!DOCTYPE html><html><head>
<title>Learning Go Slowly</title>
<meta property="og:image" content="/img/cover.jpg">
</head><body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Learning Go Slowly</h1>
<p>Go rewards patience. Programs written in it tend to be plain, and plain code is easy to read months later when the details are long forgotten.</p>
<p>This article walks through a few habits that make Go code pleasant to maintain, from small interfaces to explicit error handling and table driven tests.</p>
<p>None of these habits are new, but together they add up to code that reviewers can understand in one pass, which is the point of the whole exercise.</p>
</article>
<footer>Copyright</footer>
</body></html>`
	pageURL, err := url.Parse("https://example.com/posts/go")
	require.NoError(t, err)

	art, err := parseArticle([]byte(page), pageURL)
	require.NoError(t, err)
	assert.Equal(t, "Learning Go Slowly", art.Title)
	assert.Equal(t, "https://example.com/img/cover.jpg", art.Cover)
	require.NotNil(t, art.Content)
	assert.Equal(t, "doc", art.Content.Type)
	body, err := json.Marshal(art.Content)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Go rewards patience.")
	assert.NotContains(t, string(body), "Copyright")
}

func TestPickCover(t *testing.T) {
	base, err := url.Parse("https://example.com/a/b")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/c.png", pickCover(base, []string{"", "javascript:x", "/c.png"}))
	assert.Equal(t, "", pickCover(base, nil))
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "blog dev\n", run(t, "version"))
}
