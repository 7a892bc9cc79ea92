package shortpost

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/shortpost/composer"
)

// memRepo is an in-memory PostRepository.
type memRepo struct {
	mu        sync.Mutex
	posts     []composer.Post
	createErr error
}

func (r *memRepo) CreatePost(_ context.Context, p composer.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.posts = append(r.posts, p)
	return nil
}

func (r *memRepo) GetPost(_ context.Context, id string) (composer.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return composer.Post{}, ErrNotFound
}

func (r *memRepo) ListPublicPosts(_ context.Context, tag string, limit int) ([]composer.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []composer.Post
	for i := len(r.posts) - 1; i >= 0 && len(out) < limit; i-- {
		p := r.posts[i]
		if p.IsPrivate {
			continue
		}
		if tag != "" && !strings.Contains(JoinTags(p.Hashtags), ","+normalizeTag(tag)+",") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memRepo) ListPostsByUser(_ context.Context, userID string, limit int) ([]composer.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []composer.Post
	for i := len(r.posts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.posts[i].UserID == userID {
			out = append(out, r.posts[i])
		}
	}
	return out, nil
}

func (r *memRepo) ListHashtags(ctx context.Context) ([]string, error) {
	posts, _ := r.ListPublicPosts(ctx, "", 1<<20)
	seen := map[string]bool{}
	var tags []string
	for _, p := range posts {
		for _, t := range p.Hashtags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	return tags, nil
}

func (r *memRepo) Close() error { return nil }

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts)
}

// memStorage is an in-memory media.Storage.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
	puts    int
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStorage) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return "", s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	s.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

func memFile(name, mediaType string, data []byte) *composer.File {
	return &composer.File{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestPublisherUploadVideo(t *testing.T) {
	storage := newMemStorage()
	m := NewMetrics()
	p := NewPublisher(storage, &memRepo{}, WithPublisherMetrics(m))

	res, err := p.UploadVideo(context.Background(), memFile("My Clip.MP4", "video/mp4", []byte("frames")), "test-user-1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.URL, "https://cdn.test/test-user-1/"), res.URL)
	assert.True(t, strings.HasSuffix(res.URL, "-my-clip.mp4"), res.URL)

	key := strings.TrimPrefix(res.URL, "https://cdn.test/")
	assert.Equal(t, []byte("frames"), storage.objects[key])
	assert.Equal(t, "video/mp4", storage.types[key])
	assert.Equal(t, 1, testutil.CollectAndCount(m.StepDuration))
}

func TestPublisherUploadVideoErrors(t *testing.T) {
	storage := newMemStorage()
	p := NewPublisher(storage, &memRepo{})

	_, err := p.UploadVideo(context.Background(), nil, "u")
	assert.ErrorIs(t, err, ErrNoFile)

	broken := &composer.File{Name: "x.mp4", MediaType: "video/mp4", Open: func() (io.ReadCloser, error) {
		return nil, errors.New("gone")
	}}
	_, err = p.UploadVideo(context.Background(), broken, "u")
	assert.ErrorContains(t, err, "gone")

	storage.putErr = errors.New("bucket unavailable")
	_, err = p.UploadVideo(context.Background(), memFile("a.mp4", "video/mp4", nil), "u")
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestPublisherCreateVideoPost(t *testing.T) {
	repo := &memRepo{}
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("KST", 9*3600))
	var created []composer.Post
	p := NewPublisher(newMemStorage(), repo,
		WithClock(func() time.Time { return now }),
		OnPostCreated(func(post composer.Post) { created = append(created, post) }),
	)

	req := composer.CreatePostRequest{
		UserID:        "test-user-1",
		VideoURL:      "https://cdn.test/v.mp4",
		Description:   "Hello #Go #서울",
		Hashtags:      []string{"Go", "서울"},
		IsPrivate:     true,
		AllowComments: false,
		AllowDuet:     true,
	}
	post, err := p.CreateVideoPost(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, []string{"go", "서울"}, post.Hashtags)
	assert.Equal(t, []string{"Go", "서울"}, req.Hashtags, "request hashtags keep the user's casing")
	assert.True(t, post.IsPrivate)
	assert.False(t, post.AllowComments)
	assert.True(t, post.AllowDuet)
	assert.True(t, post.CreatedAt.Equal(now))
	assert.Equal(t, time.UTC, post.CreatedAt.Location())
	require.Equal(t, 1, repo.count())
	assert.Equal(t, post, repo.posts[0])
	assert.Equal(t, []composer.Post{post}, created)
}

func TestPublisherCreateVideoPostFailure(t *testing.T) {
	repo := &memRepo{createErr: errors.New("disk full")}
	called := false
	p := NewPublisher(newMemStorage(), repo, OnPostCreated(func(composer.Post) { called = true }))

	_, err := p.CreateVideoPost(context.Background(), composer.CreatePostRequest{UserID: "u"})
	assert.ErrorContains(t, err, "disk full")
	assert.False(t, called)
}

func TestPublisherBreakerOpens(t *testing.T) {
	storage := newMemStorage()
	storage.putErr = errors.New("timeout")
	p := NewPublisher(storage, &memRepo{}, WithBreakerSettings(time.Minute, time.Minute, 2))
	file := memFile("a.mp4", "video/mp4", []byte("x"))

	for i := 0; i < 2; i++ {
		_, err := p.UploadVideo(context.Background(), file, "u")
		require.ErrorContains(t, err, "timeout")
	}
	_, err := p.UploadVideo(context.Background(), file, "u")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, storage.puts, "open breaker must not reach storage")
}

func TestPublisherThroughComposer(t *testing.T) {
	storage := newMemStorage()
	repo := &memRepo{}
	p := NewPublisher(storage, repo)

	var progress []int
	sub := composer.NewSubmission("test-user-1", composer.State{
		File:          memFile("clip.webm", "video/webm", []byte("data")),
		Caption:       "first #clip",
		Hashtags:      []string{"clip"},
		Privacy:       composer.PrivacyPublic,
		AllowComments: true,
		AllowDuet:     true,
	}, func(_ string, pct int) { progress = append(progress, pct) })

	post, err := composer.Publish(context.Background(), p, sub)
	require.NoError(t, err)
	assert.Equal(t, []int{30, 80, 100}, progress)
	assert.True(t, strings.HasPrefix(post.VideoURL, "https://cdn.test/test-user-1/"))
	assert.Equal(t, "first #clip", post.Description)
	assert.Len(t, storage.objects, 1)
	assert.Equal(t, 1, repo.count())
}
