package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	blog "github.com/meettilavat/blog-project"
	"github.com/meettilavat/blog-project/views"
)

func serveCmd(c *cli) *cobra.Command {
	var (
		addr      string
		staticDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the blog web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app := blog.New(cfg, views.Default(cfg),
				blog.WithLogger(c.logger),
				blog.WithStaticDir(staticDir),
			)
			return app.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides BLOG_ADDR)")
	cmd.Flags().StringVar(&staticDir, "static", "public", "Directory of static assets and uploads")
	return cmd
}
