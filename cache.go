package shortpost

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/shortpost/composer"
)

// FeedCache is an in-memory cache of the home feed with TTL. Each tag filter
// is its own entry queried from the repository, so a tag page is never limited
// to the posts of the unfiltered window. Publishing a post invalidates it.
type FeedCache struct {
	mu     sync.RWMutex
	feeds  map[string]feedEntry
	tags   []string
	tagsAt time.Time
	ttl    time.Duration
	limit  int
	repo   PostRepository
}

type feedEntry struct {
	posts   []composer.Post
	fetched time.Time
}

// NewFeedCache creates a FeedCache holding up to limit posts per feed from repo.
func NewFeedCache(repo PostRepository, ttl time.Duration, limit int) *FeedCache {
	return &FeedCache{repo: repo, ttl: ttl, limit: limit, feeds: make(map[string]feedEntry)}
}

func (c *FeedCache) fresh(t time.Time) bool {
	return !t.IsZero() && time.Since(t) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *FeedCache) Invalidate() {
	c.mu.Lock()
	c.feeds = make(map[string]feedEntry)
	c.tags = nil
	c.tagsAt = time.Time{}
	c.mu.Unlock()
}

// ListPosts returns the most recent public posts, optionally filtered by tag.
func (c *FeedCache) ListPosts(ctx context.Context, tag string) ([]composer.Post, error) {
	key := normalizeTag(tag)

	c.mu.RLock()
	e, ok := c.feeds[key]
	c.mu.RUnlock()
	if ok && c.fresh(e.fetched) {
		return e.posts, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.feeds[key]; ok && c.fresh(e.fetched) {
		return e.posts, nil
	}
	posts, err := c.repo.ListPublicPosts(ctx, key, c.limit)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []composer.Post{}
	}
	c.feeds[key] = feedEntry{posts: posts, fetched: time.Now()}
	return posts, nil
}

// ListTags returns all unique hashtags of public posts.
func (c *FeedCache) ListTags(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	if c.fresh(c.tagsAt) {
		tags := c.tags
		c.mu.RUnlock()
		return tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh(c.tagsAt) {
		return c.tags, nil
	}
	tags, err := c.repo.ListHashtags(ctx)
	if err != nil {
		return nil, err
	}
	c.tags = tags
	c.tagsAt = time.Now()
	return tags, nil
}
