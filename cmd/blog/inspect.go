package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meettilavat/blog-project/imagesize"
	"github.com/meettilavat/blog-project/richtext"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func headingsCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "headings <file>",
		Short: "Print a document's table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDoc(args[0])
			if err != nil {
				return err
			}
			headings := richtext.ExtractHeadings(doc)
			if asJSON {
				if headings == nil {
					headings = []richtext.Heading{}
				}
				return writeJSON(cmd.OutOrStdout(), headings)
			}
			for _, h := range headings {
				indent := strings.Repeat("  ", max(h.Level-1, 0))
				fmt.Fprintf(cmd.OutOrStdout(), "%s- %s (#%s)\n", indent, h.Text, h.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// docStats summarizes a document.
type docStats struct {
	File       string `json:"file"`
	Words      int    `json:"words"`
	Minutes    int    `json:"minutes"`
	Headings   int    `json:"headings"`
	Images     int    `json:"images"`
	Unresolved int    `json:"unresolved_images"`
}

func statsCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats <file|glob>...",
		Short: "Print word counts, reading times and image counts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandPatterns(args)
			if err != nil {
				return err
			}
			stats := make([]docStats, 0, len(files))
			for _, f := range files {
				doc, err := readDoc(f)
				if err != nil {
					return err
				}
				reading := richtext.ReadingTime(doc)
				stats = append(stats, docStats{
					File:       f,
					Words:      reading.Words,
					Minutes:    reading.Minutes,
					Headings:   len(richtext.ExtractHeadings(doc)),
					Images:     countImages(richtext.Sanitize(doc)),
					Unresolved: len(richtext.CollectImageSources(doc)),
				})
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tWORDS\tMIN\tHEADINGS\tIMAGES\tUNSIZED")
			for _, s := range stats {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.File, s.Words, s.Minutes, s.Headings, s.Images, s.Unresolved)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func countImages(n *richtext.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Kind() == richtext.KindImage {
		count++
	}
	for _, child := range n.Content {
		count += countImages(child)
	}
	return count
}

func probeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <url>...",
		Short: "Read image dimensions from remote headers or data URIs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var remote []string
			out := make(map[string]*imagesize.Dimensions, len(args))
			for _, src := range args {
				out[src] = nil
				if strings.HasPrefix(strings.ToLower(src), "data:") {
					if d, ok := imagesize.ProbeDataURI(src); ok {
						out[src] = &d
					}
					continue
				}
				remote = append(remote, src)
			}
			for src, d := range newProber(c).Resolve(cmd.Context(), remote) {
				out[src] = &d
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	return cmd
}
