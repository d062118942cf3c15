// Command blog serves the blog and works with rich-text documents from the
// command line: rendering, inspection, image probing, import and export.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	blog "github.com/meettilavat/blog-project"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the persistent flags and what they resolve to.
type cli struct {
	configPath string
	logLevel   string

	logger *slog.Logger
	cfg    blog.SiteConfig
}

func rootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "blog",
		Short: "A blog engine for rich-text documents",
		Long: `blog serves a blog whose posts are rich-text documents, and renders,
inspects, imports and exports those documents from the command line.

Configuration is read from an optional YAML file and then from the
environment (SITE_*, BLOG_*, ADMIN_PASSWORD, ADMIN_SESSION_SECRET,
STORAGE_URL, REDIS_URL).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(c),
		renderCmd(c),
		headingsCmd(c),
		statsCmd(c),
		probeCmd(c),
		importCmd(c),
		exportCmd(c),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "blog %s\n", version)
			},
		},
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	switch strings.ToLower(c.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)

	cfg, err := blog.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return nil
}
