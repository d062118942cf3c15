package blog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meettilavat/blog-project/imagesize"
)

// SiteConfig holds all configuration for a blog site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for new posts and JSON-LD

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/blog.db")

	AdminPassword string `yaml:"admin_password"` // Required: admin login password
	SessionSecret string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	PostCacheTTL time.Duration `yaml:"post_cache_ttl"` // Post cache TTL (default 5m)

	// StorageURL is the base URL of first-party image storage. Its host is
	// added to the image allow-list.
	StorageURL string   `yaml:"storage_url"`
	ImageHosts []string `yaml:"image_hosts"` // Extra optimizable image hosts

	ProbeImages      bool          `yaml:"probe_images"`      // Resolve unknown image sizes on render (default true)
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`     // Per-image probe timeout (default 5s)
	ProbeConcurrency int           `yaml:"probe_concurrency"` // Concurrent probes per page (default 8)
	ProbeCacheTTL    time.Duration `yaml:"probe_cache_ttl"`   // Probe cache TTL (default 24h)
	RedisURL         string        `yaml:"redis_url"`         // Shares the probe cache through Redis when set
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() SiteConfig {
	cfg := SiteConfig{ProbeImages: true}
	cfg.setDefaults()
	return cfg
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = imagesize.DefaultTimeout
	}
	if c.ProbeConcurrency == 0 {
		c.ProbeConcurrency = imagesize.DefaultConcurrency
	}
	if c.ProbeCacheTTL == 0 {
		c.ProbeCacheTTL = 24 * time.Hour
	}
}

// LoadConfig layers defaults, the YAML file at path (skipped when path is
// empty) and environment variables, in that order.
func LoadConfig(path string) (SiteConfig, error) {
	cfg := SiteConfig{ProbeImages: true}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("blog: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("blog: parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv() error {
	strs := map[string]*string{
		"SITE_NAME":            &c.Name,
		"SITE_URL":             &c.URL,
		"SITE_DESCRIPTION":     &c.Description,
		"SITE_AUTHOR":          &c.Author,
		"BLOG_ADDR":            &c.Addr,
		"BLOG_DATABASE_PATH":   &c.DatabasePath,
		"ADMIN_PASSWORD":       &c.AdminPassword,
		"ADMIN_SESSION_SECRET": &c.SessionSecret,
		"STORAGE_URL":          &c.StorageURL,
		"REDIS_URL":            &c.RedisURL,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("BLOG_IMAGE_HOSTS"); v != "" {
		c.ImageHosts = FilterEmpty(strings.Split(v, ","))
	}

	var errs []error
	if v := os.Getenv("BLOG_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("BLOG_COOKIE_SECURE", err))
		c.CookieSecure = b
	}
	if v := os.Getenv("BLOG_PROBE_IMAGES"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("BLOG_PROBE_IMAGES", err))
		c.ProbeImages = b
	}
	durations := map[string]*time.Duration{
		"BLOG_POST_CACHE_TTL":  &c.PostCacheTTL,
		"BLOG_PROBE_TIMEOUT":   &c.ProbeTimeout,
		"BLOG_PROBE_CACHE_TTL": &c.ProbeCacheTTL,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			errs = append(errs, envErr(key, err))
			*dst = d
		}
	}
	if v := os.Getenv("BLOG_PROBE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("BLOG_PROBE_CONCURRENCY", err))
		c.ProbeConcurrency = n
	}
	return errors.Join(errs...)
}

func envErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("blog: invalid %s: %w", key, err)
}

// Validate reports missing required settings.
func (c SiteConfig) Validate() error {
	var errs []error
	if c.AdminPassword == "" {
		errs = append(errs, errors.New("blog: AdminPassword is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("blog: SessionSecret is required"))
	}
	if c.ProbeConcurrency < 0 {
		errs = append(errs, errors.New("blog: ProbeConcurrency must not be negative"))
	}
	return errors.Join(errs...)
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger sets the logger used outside request handling.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithStore uses an already opened store instead of opening DatabasePath.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithProbeCache overrides the image probe cache chosen from the config.
func WithProbeCache(c imagesize.Cache) Option {
	return func(a *App) {
		a.probeCache = c
	}
}
