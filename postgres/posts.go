// Package postgres stores video posts in PostgreSQL (including Supabase
// databases) through sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eringen/shortpost/composer"
)

// Config holds connection settings.
type Config struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

func (c *Config) setDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

// Store is a post repository on PostgreSQL.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects, pings and ensures the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.setDefaults()
	if cfg.DSN == "" {
		return nil, errors.New("postgres: DSN is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := New(db, cfg.QueryTimeout)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the posts table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS video_posts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    video_url TEXT NOT NULL,
    description TEXT NOT NULL,
    hashtags TEXT[] NOT NULL DEFAULT '{}',
    is_private BOOLEAN NOT NULL DEFAULT FALSE,
    allow_comments BOOLEAN NOT NULL DEFAULT TRUE,
    allow_duet BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

type postRow struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	VideoURL      string         `db:"video_url"`
	Description   string         `db:"description"`
	Hashtags      pq.StringArray `db:"hashtags"`
	IsPrivate     bool           `db:"is_private"`
	AllowComments bool           `db:"allow_comments"`
	AllowDuet     bool           `db:"allow_duet"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r postRow) post() composer.Post {
	tags := []string(r.Hashtags)
	if tags == nil {
		tags = []string{}
	}
	return composer.Post{
		ID:            r.ID,
		UserID:        r.UserID,
		VideoURL:      r.VideoURL,
		Description:   r.Description,
		Hashtags:      tags,
		IsPrivate:     r.IsPrivate,
		AllowComments: r.AllowComments,
		AllowDuet:     r.AllowDuet,
		CreatedAt:     r.CreatedAt,
	}
}

const selectColumns = `id, user_id, video_url, description, hashtags, is_private, allow_comments, allow_duet, created_at`

// CreatePost inserts p. Hashtags are stored lowercased.
func (s *Store) CreatePost(ctx context.Context, p composer.Post) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	tags := make([]string, len(p.Hashtags))
	for i, t := range p.Hashtags {
		tags[i] = strings.ToLower(strings.TrimSpace(t))
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO video_posts (id, user_id, video_url, description, hashtags, is_private, allow_comments, allow_duet, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.UserID, p.VideoURL, p.Description, pq.Array(tags), p.IsPrivate, p.AllowComments, p.AllowDuet, p.CreatedAt.UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate post %s: %w", p.ID, err)
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetPost returns a post by id, or sql.ErrNoRows.
func (s *Store) GetPost(ctx context.Context, id string) (composer.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var row postRow
	err := s.db.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM video_posts WHERE id = $1`, id)
	if err != nil {
		return composer.Post{}, err
	}
	return row.post(), nil
}

// ListPublicPosts returns public posts, newest first. A non-empty tag filters
// to posts carrying it.
func (s *Store) ListPublicPosts(ctx context.Context, tag string, limit int) ([]composer.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var rows []postRow
	var err error
	if tag == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM video_posts WHERE is_private = FALSE ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		err = s.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM video_posts WHERE is_private = FALSE AND $1 = ANY(hashtags) ORDER BY created_at DESC LIMIT $2`,
			strings.ToLower(strings.TrimSpace(tag)), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list public posts: %w", err)
	}
	return toPosts(rows), nil
}

// ListPostsByUser returns every post of userID, newest first.
func (s *Store) ListPostsByUser(ctx context.Context, userID string, limit int) ([]composer.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM video_posts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit); err != nil {
		return nil, fmt.Errorf("list user posts: %w", err)
	}
	return toPosts(rows), nil
}

// ListHashtags returns the distinct hashtags of public posts, sorted.
func (s *Store) ListHashtags(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var tags []string
	if err := s.db.SelectContext(ctx, &tags, `SELECT DISTINCT unnest(hashtags) AS tag FROM video_posts WHERE is_private = FALSE ORDER BY tag`); err != nil {
		return nil, fmt.Errorf("list hashtags: %w", err)
	}
	return tags, nil
}

func toPosts(rows []postRow) []composer.Post {
	posts := make([]composer.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.post())
	}
	return posts
}

// IsNotFound reports whether err means the post does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
