package imagesize

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/photo.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "bytes=0-65535", r.Header.Get("Range"))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(pngHeader(100, 50))
	})
	mux.HandleFunc("/full.jpg", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body := jpegHeader(1024, 768)
		body = append(body, make([]byte, 2*MaxProbeBytes)...)
		w.Write(body)
	})
	mux.HandleFunc("/text.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("not an image"))
	})
	mux.HandleFunc("/slow.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestProbeRemote(t *testing.T) {
	srv, _ := newImageServer(t)
	p := NewProber(WithTimeout(200 * time.Millisecond))

	tests := []struct {
		path string
		want Dimensions
		ok   bool
	}{
		{"/photo.png", Dimensions{100, 50}, true},
		{"/full.jpg", Dimensions{1024, 768}, true},
		{"/text.png", Dimensions{}, false},
		{"/missing.png", Dimensions{}, false},
		{"/slow.png", Dimensions{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := p.ProbeRemote(context.Background(), srv.URL+tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbeRemoteBadURL(t *testing.T) {
	p := NewProber()
	_, ok := p.ProbeRemote(context.Background(), "://nope")
	assert.False(t, ok)
}

func TestProbeRemoteCache(t *testing.T) {
	srv, hits := newImageServer(t)
	cache := NewMemoryCache(time.Minute)
	p := NewProber(WithCache(cache), WithTimeout(200*time.Millisecond))

	for range 3 {
		d, ok := p.ProbeRemote(context.Background(), srv.URL+"/photo.png")
		require.True(t, ok)
		assert.Equal(t, Dimensions{100, 50}, d)
	}
	assert.Equal(t, int32(1), hits.Load())

	for range 2 {
		_, ok := p.ProbeRemote(context.Background(), srv.URL+"/missing.png")
		assert.False(t, ok)
	}
	assert.Equal(t, int32(3), hits.Load(), "failed probes must not be cached")
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()
	c.Set(ctx, "a", Dimensions{1, 2})

	d, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, Dimensions{1, 2}, d)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheSweepsOnSet(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()
	c.Set(ctx, "a", Dimensions{1, 2})
	c.Set(ctx, "b", Dimensions{3, 4})
	require.Equal(t, 2, c.Len())

	time.Sleep(20 * time.Millisecond)
	c.Set(ctx, "c", Dimensions{5, 6})
	assert.Equal(t, 1, c.Len(), "expired entries are swept without being read")
}

func TestRedisCacheLogsWriteErrors(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheFromClient(client, time.Minute, logger)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	c.Set(ctx, "https://images.example/a.png", Dimensions{1, 2})
	assert.Contains(t, logs.String(), "image size cache write failed")
	assert.Contains(t, logs.String(), "https://images.example/a.png")

	_, ok := c.Get(ctx, "https://images.example/a.png")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	srv, hits := newImageServer(t)
	p := NewProber(WithTimeout(200*time.Millisecond), WithConcurrency(2))

	got := p.Resolve(context.Background(), []string{
		srv.URL + "/photo.png",
		srv.URL + "/missing.png",
		srv.URL + "/full.jpg",
		srv.URL + "/photo.png",
		srv.URL + "/slow.png",
	})

	assert.Equal(t, map[string]Dimensions{
		srv.URL + "/photo.png": {100, 50},
		srv.URL + "/full.jpg":  {1024, 768},
	}, got)
	assert.Equal(t, int32(4), hits.Load(), "duplicates are probed once")
}

func TestResolveEmpty(t *testing.T) {
	p := NewProber()
	assert.Empty(t, p.Resolve(context.Background(), nil))
}
