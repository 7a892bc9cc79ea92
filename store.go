package shortpost

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/shortpost/composer"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = sql.ErrNoRows

// PostRepository is the post database behind the publisher and the feed.
// Store (SQLite) and postgres.Store both satisfy it.
type PostRepository interface {
	CreatePost(ctx context.Context, p composer.Post) error
	GetPost(ctx context.Context, id string) (composer.Post, error)
	ListPublicPosts(ctx context.Context, tag string, limit int) ([]composer.Post, error)
	ListPostsByUser(ctx context.Context, userID string, limit int) ([]composer.Post, error)
	ListHashtags(ctx context.Context) ([]string, error)
	Close() error
}

// Store wraps a SQLite database and provides operations for video posts.
type Store struct {
	db *sql.DB
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
	// WAL lets the feed read while a submission writes; writers wait on
	// busy_timeout instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
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
CREATE TABLE IF NOT EXISTS video_posts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    video_url TEXT NOT NULL,
    description TEXT NOT NULL,
    hashtags TEXT NOT NULL,
    is_private INTEGER NOT NULL DEFAULT 0,
    allow_comments INTEGER NOT NULL DEFAULT 1,
    allow_duet INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS video_posts_created ON video_posts (created_at DESC);
CREATE INDEX IF NOT EXISTS video_posts_user ON video_posts (user_id, created_at DESC);
`)
	return err
}

// timeLayout has fixed-width fractions so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const postColumns = `id, user_id, video_url, description, hashtags, is_private, allow_comments, allow_duet, created_at`

// CreatePost inserts a post. Hashtags are normalized to lowercase and stored
// as a comma-delimited string (",go,web,") so a tag lookup is a substring match.
func (s *Store) CreatePost(ctx context.Context, p composer.Post) error {
	normalized := make([]string, len(p.Hashtags))
	for i, t := range p.Hashtags {
		normalized[i] = normalizeTag(t)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO video_posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.VideoURL, p.Description, JoinTags(normalized),
		boolInt(p.IsPrivate), boolInt(p.AllowComments), boolInt(p.AllowDuet),
		p.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert post %s: %w", p.ID, err)
	}
	return nil
}

// GetPost returns a single post by id, or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id string) (composer.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM video_posts WHERE id = ?`, id)
	return scanPost(row)
}

// ListPublicPosts returns public posts ordered by creation time descending.
// If tag is non-empty, results are filtered to posts containing that tag.
func (s *Store) ListPublicPosts(ctx context.Context, tag string, limit int) ([]composer.Post, error) {
	var rows *sql.Rows
	var err error
	if tag == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM video_posts WHERE is_private = 0 ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM video_posts WHERE is_private = 0 AND instr(hashtags, ',' || ? || ',') > 0 ORDER BY created_at DESC LIMIT ?`,
			normalizeTag(tag), limit)
	}
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

// ListPostsByUser returns every post of userID, private ones included.
func (s *Store) ListPostsByUser(ctx context.Context, userID string, limit int) ([]composer.Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM video_posts WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

// ListHashtags returns a sorted, deduplicated slice of all hashtags of public posts.
func (s *Store) ListHashtags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hashtags FROM video_posts WHERE is_private = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range ParseTags(tags) {
			set[t] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result := make([]string, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (composer.Post, error) {
	var p composer.Post
	var tags, created string
	var private, comments, duet int
	if err := r.Scan(&p.ID, &p.UserID, &p.VideoURL, &p.Description, &tags, &private, &comments, &duet, &created); err != nil {
		return composer.Post{}, err
	}
	p.Hashtags = ParseTags(tags)
	p.IsPrivate = private == 1
	p.AllowComments = comments == 1
	p.AllowDuet = duet == 1
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return composer.Post{}, fmt.Errorf("post %s: bad created_at %q: %w", p.ID, created, err)
	}
	p.CreatedAt = t
	return p, nil
}

func scanPosts(rows *sql.Rows) ([]composer.Post, error) {
	defer rows.Close()
	var posts []composer.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// JoinTags builds the delimited form ParseTags reads back.
func JoinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "," + strings.Join(tags, ",") + ","
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return []string{}
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
