package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/spf13/cobra"

	blog "github.com/meettilavat/blog-project"
	"github.com/meettilavat/blog-project/richtext"
)

const (
	importTimeout  = 30 * time.Second
	maxImportBytes = 10 << 20
)

// importedArticle is a fetched page reduced to a post draft.
type importedArticle struct {
	Title   string
	Excerpt string
	Byline  string
	Cover   string
	Content *richtext.Node
}

func importCmd(c *cli) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Extract an article from a web page as a document",
		Long: `Fetch a web page, extract its main article and convert it into a
document. The document JSON is printed; with --save it is stored as a
draft post instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := fetchArticle(cmd.Context(), http.DefaultClient, args[0])
			if err != nil {
				return err
			}
			if !save {
				return writeJSON(cmd.OutOrStdout(), art.Content)
			}

			store, err := blog.NewStore(c.cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			author := art.Byline
			if author == "" {
				author = c.cfg.Author
			}
			post, err := store.Save(blog.Post{
				Title:         art.Title,
				Excerpt:       art.Excerpt,
				CoverImageURL: art.Cover,
				Content:       art.Content,
				Status:        blog.StatusDraft,
				Author:        author,
			})
			if err != nil {
				return fmt.Errorf("save draft: %w", err)
			}
			c.logger.Info("imported draft", "id", post.ID, "slug", post.Slug, "source", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", post.ID, post.Slug)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Store the article as a draft post")
	return cmd
}

func fetchArticle(ctx context.Context, client *http.Client, rawURL string) (importedArticle, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return importedArticle{}, fmt.Errorf("import: not an http(s) url: %s", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return importedArticle{}, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := client.Do(req)
	if err != nil {
		return importedArticle{}, fmt.Errorf("import: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return importedArticle{}, fmt.Errorf("import: fetch: status %d", resp.StatusCode)
	}
	page, err := io.ReadAll(io.LimitReader(resp.Body, maxImportBytes))
	if err != nil {
		return importedArticle{}, fmt.Errorf("import: read: %w", err)
	}
	return parseArticle(page, pageURL)
}

// parseArticle extracts the article of page. The cover is the page's
// social preview image, falling back to the first image of the article.
func parseArticle(page []byte, pageURL *url.URL) (importedArticle, error) {
	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		return importedArticle{}, fmt.Errorf("import: extract: %w", err)
	}
	content, err := richtext.FromHTML(strings.NewReader(article.Content))
	if err != nil {
		return importedArticle{}, fmt.Errorf("import: convert: %w", err)
	}

	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return importedArticle{}, fmt.Errorf("import: parse: %w", err)
	}
	var candidates []string
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if v, ok := dom.Find(sel).First().Attr("content"); ok {
			candidates = append(candidates, v)
		}
	}
	candidates = append(candidates, article.Image)
	if v, ok := dom.Find("article img, main img").First().Attr("src"); ok {
		candidates = append(candidates, v)
	}

	return importedArticle{
		Title:   strings.TrimSpace(article.Title),
		Excerpt: blog.StripHTML(article.Excerpt),
		Byline:  strings.TrimSpace(article.Byline),
		Cover:   pickCover(pageURL, candidates),
		Content: content,
	}, nil
}

// pickCover returns the first candidate that resolves to a safe absolute
// image URL.
func pickCover(base *url.URL, candidates []string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		ref, err := url.Parse(c)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()
		if richtext.SafeImageSrc(abs) {
			return abs
		}
	}
	return ""
}
