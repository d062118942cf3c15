package blog

import (
	"sync"
	"time"
)

// PostCache keeps the published posts in memory for ttl. Admin writes call
// Invalidate so readers never wait out the TTL after an edit.
type PostCache struct {
	store *Store
	ttl   time.Duration

	mu   sync.RWMutex
	snap *postSnapshot
}

// postSnapshot is one load of the published posts. It is never modified
// after construction.
type postSnapshot struct {
	posts   []Post
	bySlug  map[string]int
	fetched time.Time
}

func (s *postSnapshot) fresh(ttl time.Duration) bool {
	return s != nil && time.Since(s.fetched) < ttl
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

// Invalidate drops the current snapshot.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

func (c *PostCache) snapshot() (*postSnapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap.fresh(c.ttl) {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another reader may have reloaded while we waited for the lock.
	if c.snap.fresh(c.ttl) {
		return c.snap, nil
	}
	posts, err := c.store.ListPublished()
	if err != nil {
		return nil, err
	}
	snap = &postSnapshot{
		posts:   posts,
		bySlug:  make(map[string]int, len(posts)),
		fetched: time.Now(),
	}
	for i, p := range posts {
		snap.bySlug[p.Slug] = i
	}
	c.snap = snap
	return snap, nil
}

// ListPosts returns published posts, newest first.
func (c *PostCache) ListPosts() ([]Post, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.posts, nil
}

// GetPost returns a published post by slug.
func (c *PostCache) GetPost(slug string) (Post, error) {
	snap, err := c.snapshot()
	if err != nil {
		return Post{}, err
	}
	i, ok := snap.bySlug[slug]
	if !ok {
		return Post{}, ErrNotFound
	}
	return snap.posts[i], nil
}
