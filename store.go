package blog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/meettilavat/blog-project/richtext"
)

// ErrNotFound is returned when a requested post or image does not exist.
var ErrNotFound = sql.ErrNoRows

// ErrSlugTaken is returned when a slug belongs to another post.
var ErrSlugTaken = errors.New("blog: slug already in use")

// Store wraps a SQLite database and provides CRUD operations for posts and
// uploaded images.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during writes; busy_timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    cover_image_url TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published')),
    author TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_status_created ON posts (status, created_at DESC);
CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	return err
}

const postColumns = `id, slug, title, excerpt, content, cover_image_url, status, author, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var p Post
	var content, status, created, updated string
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &content, &p.CoverImageURL, &status, &p.Author, &created, &updated); err != nil {
		return Post{}, err
	}
	p.Status = ParseStatus(status)
	p.Content = decodeContent(content)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return p, nil
}

// decodeContent never fails: stored content that is not a document reads
// back as an empty document.
func decodeContent(s string) *richtext.Node {
	doc, err := richtext.Decode([]byte(s))
	if err != nil || doc == nil {
		return richtext.EmptyDoc()
	}
	return doc
}

func (s *Store) queryPosts(query string, args ...any) ([]Post, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPublished returns published posts, newest first.
func (s *Store) ListPublished() ([]Post, error) {
	return s.queryPosts(`SELECT `+postColumns+` FROM posts WHERE status = 'published' ORDER BY created_at DESC`)
}

// ListAll returns every post, newest first. A non-empty status filters the list.
func (s *Store) ListAll(status Status) ([]Post, error) {
	if status == "" {
		return s.queryPosts(`SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC`)
	}
	return s.queryPosts(`SELECT `+postColumns+` FROM posts WHERE status = ? ORDER BY created_at DESC`, string(status))
}

// GetPublished returns a published post by slug.
func (s *Store) GetPublished(slug string) (Post, error) {
	return scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ? AND status = 'published'`, slug))
}

// GetBySlug returns a post by slug regardless of status.
func (s *Store) GetBySlug(slug string) (Post, error) {
	return scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug))
}

// GetByID returns a post by id regardless of status.
func (s *Store) GetByID(id string) (Post, error) {
	return scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
}

// Save inserts p when it has no ID and updates it otherwise. The slug is
// derived from the title when empty, falling back to "untitled". The content
// is sanitized before it is stored. Save returns the stored post.
func (s *Store) Save(p Post) (Post, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Slug = richtext.Slugify(p.Slug)
	if p.Slug == "" {
		p.Slug = richtext.Slugify(p.Title)
	}
	if p.Slug == "" {
		p.Slug = "untitled"
	}
	if p.Status != StatusPublished {
		p.Status = StatusDraft
	}
	p.Content = richtext.Sanitize(p.Content)
	if p.Content == nil {
		p.Content = richtext.EmptyDoc()
	}
	content, err := json.Marshal(p.Content)
	if err != nil {
		return Post{}, fmt.Errorf("blog: encode content: %w", err)
	}

	if owner, err := s.slugOwner(p.Slug); err != nil {
		return Post{}, err
	} else if owner != "" && owner != p.ID {
		return Post{}, ErrSlugTaken
	}

	now := s.now()
	p.UpdatedAt = now
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = now
		_, err = s.db.Exec(`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Slug, p.Title, p.Excerpt, string(content), p.CoverImageURL, string(p.Status), p.Author,
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
		if err != nil {
			return Post{}, err
		}
		return p, nil
	}

	res, err := s.db.Exec(`UPDATE posts SET slug = ?, title = ?, excerpt = ?, content = ?, cover_image_url = ?, status = ?, author = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.Title, p.Excerpt, string(content), p.CoverImageURL, string(p.Status), p.Author, formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return Post{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Post{}, ErrNotFound
	}
	return s.GetByID(p.ID)
}

func (s *Store) slugOwner(slug string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM posts WHERE slug = ?`, slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// UpdateStatus publishes or unpublishes a post.
func (s *Store) UpdateStatus(id string, status Status) error {
	res, err := s.db.Exec(`UPDATE posts SET status = ?, updated_at = ? WHERE id = ?`, string(status), formatTime(s.now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post by id. It returns ErrNotFound when no post has id.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages() ([]Image, error) {
	rows, err := s.db.Query(`SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ImageExists reports whether an image with filename is recorded.
func (s *Store) ImageExists(filename string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM images WHERE filename = ?`, filename).Scan(&n)
	return n > 0, err
}

// SaveImage records an uploaded image.
func (s *Store) SaveImage(img Image) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO images (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt)
	return err
}

// DeleteImage removes an image record by filename.
func (s *Store) DeleteImage(filename string) error {
	_, err := s.db.Exec(`DELETE FROM images WHERE filename = ?`, filename)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
