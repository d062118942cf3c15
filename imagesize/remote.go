package imagesize

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxProbeBytes is how much of a remote image is requested and read.
const MaxProbeBytes = 64 << 10

// Defaults for a Prober.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 8
)

const userAgent = "blog-imagesize/1.0"

// Prober fetches the first bytes of remote images and reads their
// dimensions. It is safe for concurrent use.
type Prober struct {
	client      *http.Client
	cache       Cache
	logger      *slog.Logger
	timeout     time.Duration
	concurrency int
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithHTTPClient sets the client used for probes.
func WithHTTPClient(c *http.Client) ProberOption {
	return func(p *Prober) {
		if c != nil {
			p.client = c
		}
	}
}

// WithCache enables caching of successful probes.
func WithCache(c Cache) ProberOption {
	return func(p *Prober) { p.cache = c }
}

// WithLogger sets the logger. Probe failures are logged at debug level.
func WithLogger(l *slog.Logger) ProberOption {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTimeout bounds each probe, including reading the body.
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithConcurrency bounds how many probes Resolve runs at once.
func WithConcurrency(n int) ProberOption {
	return func(p *Prober) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProber creates a Prober with a 5s per-probe timeout and no cache.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   DefaultTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: DefaultTimeout,
				MaxIdleConnsPerHost: DefaultConcurrency,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:      slog.Default(),
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProbeRemote requests the first MaxProbeBytes of url and reads the image
// dimensions from them. Any failure reports false. Failures are not cached,
// so a later call retries.
func (p *Prober) ProbeRemote(ctx context.Context, url string) (Dimensions, bool) {
	if p.cache != nil {
		if d, ok := p.cache.Get(ctx, url); ok {
			probeTotal.WithLabelValues(resultHit).Inc()
			return d, true
		}
	}

	start := time.Now()
	d, ok := p.fetch(ctx, url)
	probeDuration.Observe(time.Since(start).Seconds())
	if !ok {
		return Dimensions{}, false
	}
	probeTotal.WithLabelValues(resultOK).Inc()
	if p.cache != nil {
		p.cache.Set(ctx, url, d)
	}
	return d, true
}

func (p *Prober) fetch(ctx context.Context, url string) (Dimensions, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.fail(url, "build request", err)
		return Dimensions{}, false
	}
	req.Header.Set("Range", "bytes=0-65535")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		p.fail(url, "request", err)
		return Dimensions{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		p.logger.Debug("image probe: unexpected status", "url", url, "status", resp.StatusCode)
		probeTotal.WithLabelValues(resultFailed).Inc()
		return Dimensions{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxProbeBytes))
	if err != nil {
		p.fail(url, "read body", err)
		return Dimensions{}, false
	}

	d, ok := Probe(body)
	if !ok {
		p.logger.Debug("image probe: unrecognized header", "url", url, "bytes", len(body))
		probeTotal.WithLabelValues(resultInvalid).Inc()
		return Dimensions{}, false
	}
	return d, true
}

func (p *Prober) fail(url, stage string, err error) {
	p.logger.Debug("image probe failed", "url", url, "stage", stage, "error", err)
	probeTotal.WithLabelValues(resultFailed).Inc()
}

// Resolve probes every distinct url concurrently and waits for all of them.
// The result holds only the urls that resolved; one failure never affects
// the others.
func (p *Prober) Resolve(ctx context.Context, urls []string) map[string]Dimensions {
	out := make(map[string]Dimensions, len(urls))
	if len(urls) == 0 {
		return out
	}

	var (
		mu   sync.Mutex
		g    errgroup.Group
		seen = make(map[string]struct{}, len(urls))
	)
	g.SetLimit(p.concurrency)
	for _, url := range urls {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		g.Go(func() error {
			d, ok := p.ProbeRemote(ctx, url)
			if !ok {
				return nil
			}
			mu.Lock()
			out[url] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
