package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	blog "github.com/meettilavat/blog-project"
	"github.com/meettilavat/blog-project/richtext"
)

func exportCmd(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <slug|file.json>",
		Short: "Export a post or document file as Markdown",
		Long: `Export as Markdown. An argument ending in .json is read as a document
file; anything else is looked up as a post slug in the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := exportMarkdown(c, args[0])
			if err != nil {
				return err
			}
			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}
			return os.WriteFile(output, []byte(md), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func exportMarkdown(c *cli, arg string) (string, error) {
	if strings.HasSuffix(arg, ".json") {
		doc, err := readDoc(arg)
		if err != nil {
			return "", err
		}
		return richtext.ToMarkdown(doc)
	}

	store, err := blog.NewStore(c.cfg.DatabasePath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	post, err := store.GetBySlug(arg)
	if errors.Is(err, blog.ErrNotFound) {
		return "", fmt.Errorf("no post with slug %q", arg)
	}
	if err != nil {
		return "", err
	}
	body, err := richtext.ToMarkdown(post.Content)
	if err != nil {
		return "", err
	}
	return "# " + post.Title + "\n\n" + body, nil
}
