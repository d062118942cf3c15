package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	blog "github.com/meettilavat/blog-project"
	"github.com/meettilavat/blog-project/imagesize"
	"github.com/meettilavat/blog-project/richtext"
)

// watchDebounce is how long render --watch waits for writes to settle.
const watchDebounce = 200 * time.Millisecond

type renderOptions struct {
	outDir   string
	probe    bool
	optimize bool
	watch    bool
}

func renderCmd(c *cli) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render <file|glob>...",
		Short: "Render document JSON files to HTML",
		Long: `Render document JSON files to HTML. Arguments may be glob patterns,
including ** (e.g. "content/**/*.json").

Without --out the HTML is written to stdout. With --out each file is
written to <dir>/<name>.html.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandPatterns(args)
			if err != nil {
				return err
			}
			r := newFileRenderer(c, opts, cmd.OutOrStdout())
			ctx := cmd.Context()
			for _, f := range files {
				if err := r.render(ctx, f); err != nil {
					return err
				}
			}
			if !opts.watch {
				return nil
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return r.watch(ctx, files)
		},
	}
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Output directory (default stdout)")
	cmd.Flags().BoolVar(&opts.probe, "probe", false, "Probe remote images for their dimensions")
	cmd.Flags().BoolVar(&opts.optimize, "optimize", false, "Route allow-listed images through /_img/")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-render files when they change")
	return cmd
}

// expandPatterns resolves file arguments and glob patterns to a deduplicated
// list of files in argument order.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", pattern)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func readDoc(path string) (*richtext.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := richtext.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

type fileRenderer struct {
	cli      *cli
	opts     renderOptions
	stdout   io.Writer
	renderer *richtext.Renderer
	resolver richtext.Resolver
}

func newFileRenderer(c *cli, opts renderOptions, stdout io.Writer) *fileRenderer {
	r := &fileRenderer{
		cli:    c,
		opts:   opts,
		stdout: stdout,
		renderer: &richtext.Renderer{
			Hosts: richtext.NewHostAllowList(c.cfg.StorageURL, c.cfg.ImageHosts...),
		},
	}
	if opts.optimize {
		r.renderer.Optimize = blog.OptimizedImagePath
	}
	if opts.probe {
		r.resolver = newProber(c)
	}
	return r
}

func newProber(c *cli) *imagesize.Prober {
	return imagesize.NewProber(
		imagesize.WithLogger(c.logger),
		imagesize.WithTimeout(c.cfg.ProbeTimeout),
		imagesize.WithConcurrency(c.cfg.ProbeConcurrency),
	)
}

func (r *fileRenderer) render(ctx context.Context, path string) error {
	doc, err := readDoc(path)
	if err != nil {
		return err
	}
	html := r.renderer.Prepare(ctx, doc, r.resolver).HTML(doc)

	if r.opts.outDir == "" {
		_, err := fmt.Fprintln(r.stdout, html)
		return err
	}
	if err := os.MkdirAll(r.opts.outDir, 0o755); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".html"
	dst := filepath.Join(r.opts.outDir, name)
	if err := os.WriteFile(dst, []byte(html+"\n"), 0o644); err != nil {
		return err
	}
	r.cli.logger.Info("rendered", "src", path, "dst", dst)
	return nil
}

// watch re-renders files as they change until ctx is done. Editors often
// write a file several times in a row, so changes are debounced.
func (r *fileRenderer) watch(ctx context.Context, files []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	wanted := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// Watching directories survives editors that replace files on save.
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	r.cli.logger.Info("watching for changes", "files", len(files))

	pending := make(map[string]bool)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !wanted[ev.Name] || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.cli.logger.Warn("watch error", "error", err)
		case <-timer.C:
			for path := range pending {
				if err := r.render(ctx, path); err != nil {
					r.cli.logger.Error("render failed", "path", path, "error", err)
				}
			}
			clear(pending)
		}
	}
}
