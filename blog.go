// Package blog is a blog publishing engine built with Go, Echo, and templ.
// Posts are rich-text documents that are sanitized on save and on render,
// with image sizes resolved before the page is written.
//
// Users provide their own templ templates via the ViewFuncs struct,
// and the package handles handler logic, middleware, and database operations.
package blog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meettilavat/blog-project/imagesize"
	"github.com/meettilavat/blog-project/richtext"
)

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages.
type ViewFuncs struct {
	Home           func(page HomePage) templ.Component
	Post           func(page PostPage) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(page DashboardPage) templ.Component
	AdminEditor    func(page EditorPage) templ.Component
	AdminImages    func(images []Image, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App is the central blog application. It wires together the store,
// cache, document pipeline, handlers, middleware, and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache
	Views  ViewFuncs
	Hosts  *richtext.HostAllowList
	Prober *imagesize.Prober

	logger       *slog.Logger
	loginLimiter *LoginLimiter
	probeCache   imagesize.Cache
	renderer     *richtext.Renderer
	imageClient  *http.Client
	customRoutes []func(*App)
	staticDir    string
	closers      []func() error
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		Hosts:     richtext.NewHostAllowList(cfg.StorageURL, cfg.ImageHosts...),
		logger:    slog.Default(),
		staticDir: "public",
		imageClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	a.renderer = &richtext.Renderer{
		Hosts:    a.Hosts,
		Optimize: OptimizedImagePath,
	}
	return a
}

// Init opens the store and probe cache and registers middleware and routes.
// Start calls it; tests call it directly and drive a.Echo.
func (a *App) Init(ctx context.Context) error {
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("blog: init store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	}

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.closers = append(a.closers, func() error { a.loginLimiter.Stop(); return nil })

	if err := a.initProber(ctx); err != nil {
		return err
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) initProber(ctx context.Context) error {
	if !a.Config.ProbeImages {
		return nil
	}
	if a.probeCache == nil {
		if a.Config.RedisURL != "" {
			rc, err := imagesize.NewRedisCache(ctx, a.Config.RedisURL, a.Config.ProbeCacheTTL, a.logger)
			if err != nil {
				return fmt.Errorf("blog: init probe cache: %w", err)
			}
			a.probeCache = rc
			a.closers = append(a.closers, rc.Close)
		} else {
			a.probeCache = imagesize.NewMemoryCache(a.Config.ProbeCacheTTL)
		}
	}
	a.Prober = imagesize.NewProber(
		imagesize.WithCache(a.probeCache),
		imagesize.WithLogger(a.logger),
		imagesize.WithTimeout(a.Config.ProbeTimeout),
		imagesize.WithConcurrency(a.Config.ProbeConcurrency),
	)
	return nil
}

// Start initializes the app and serves until ctx is canceled, then shuts the
// server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	defer a.Close()

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("blog listening", "addr", a.Config.Addr, "url", a.Config.URL)
		errc <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("blog: shutdown: %w", err)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework stylesheet, falling through to the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/blog.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	// User's static assets, uploads included
	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/", a.handleHome)
	e.GET("/posts", handlePostsRedirect)
	e.GET("/posts/:slug/", a.handlePost)
	e.GET("/posts/:slug/index.md", a.handlePostMarkdown)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/_img/", a.handleImageOptimize)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", requireAdmin)
	admin.GET("/posts/new/", a.handleAdminNew)
	admin.GET("/posts/:id/", a.handleAdminEdit)
	admin.POST("/save/", a.handleAdminSave)
	admin.POST("/posts/:id/status/", a.handleAdminStatus)
	admin.DELETE("/posts/:id/", a.handleAdminDelete)
	admin.POST("/posts/:id/delete/", a.handleAdminDelete)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/upload/", a.handleImageUpload)
	admin.DELETE("/images/:filename/", a.handleImageDelete)
	admin.POST("/images/:filename/delete/", a.handleImageDelete)
}

// Close runs the registered closers in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("blog: required environment variable %s is not set", key)
	}
	return v
}
