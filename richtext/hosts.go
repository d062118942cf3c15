package richtext

import (
	"net/url"
	"strings"
)

// DefaultImageHosts are image hosts served through the optimizer.
var DefaultImageHosts = []string{
	"images.unsplash.com",
	"images.pexels.com",
	"lh3.googleusercontent.com",
	"localhost",
	"127.0.0.1",
}

// DefaultStorageSuffixes are domain suffixes of the first-party storage provider.
var DefaultStorageSuffixes = []string{".supabase.co", ".supabase.in"}

// HostAllowList decides which image hosts are first-party or optimizable.
// It is immutable after construction and safe for concurrent use.
type HostAllowList struct {
	hosts    map[string]struct{}
	suffixes []string
}

// NewHostAllowList builds the allow-list. The hostname of storageBaseURL is
// added when it parses; an empty or invalid value only leaves it out.
func NewHostAllowList(storageBaseURL string, extra ...string) *HostAllowList {
	l := &HostAllowList{
		hosts:    make(map[string]struct{}, len(DefaultImageHosts)+len(extra)+1),
		suffixes: DefaultStorageSuffixes,
	}
	for _, h := range DefaultImageHosts {
		l.hosts[h] = struct{}{}
	}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			l.hosts[h] = struct{}{}
		}
	}
	if storageBaseURL != "" {
		if u, err := url.Parse(storageBaseURL); err == nil && u.Hostname() != "" {
			l.hosts[strings.ToLower(u.Hostname())] = struct{}{}
		}
	}
	return l
}

// IsAllowed reports whether rawURL is an absolute URL on an allowed host.
func (l *HostAllowList) IsAllowed(rawURL string) bool {
	if l == nil || rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, suffix := range l.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	_, ok := l.hosts[host]
	return ok
}
