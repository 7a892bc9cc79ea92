package shortpost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eringen/shortpost/composer"
	"github.com/eringen/shortpost/media"
)

const tracerName = "github.com/eringen/shortpost"

// ErrNoFile is returned when an upload is requested without readable content.
var ErrNoFile = errors.New("shortpost: no file to upload")

// Publisher uploads videos to media storage and writes post records. Each
// step runs behind its own circuit breaker so a failing backend fails fast.
type Publisher struct {
	storage media.Storage
	posts   PostRepository

	mediaBreaker *gobreaker.CircuitBreaker
	postBreaker  *gobreaker.CircuitBreaker
	tracer       trace.Tracer
	metrics      *Metrics
	log          zerolog.Logger
	now          func() time.Time
	onCreated    []func(composer.Post)
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherMetrics records step timings on m.
func WithPublisherMetrics(m *Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

// WithPublisherLogger sets the logger.
func WithPublisherLogger(l zerolog.Logger) PublisherOption {
	return func(p *Publisher) { p.log = l }
}

// WithClock overrides the post creation clock.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

// OnPostCreated registers fn to run after every stored post.
func OnPostCreated(fn func(composer.Post)) PublisherOption {
	return func(p *Publisher) { p.onCreated = append(p.onCreated, fn) }
}

// WithBreakerSettings replaces the trip policy of both breakers.
func WithBreakerSettings(interval, timeout time.Duration, consecutiveFailures uint32) PublisherOption {
	return func(p *Publisher) {
		p.mediaBreaker = newBreaker("media", interval, timeout, consecutiveFailures, p)
		p.postBreaker = newBreaker("posts", interval, timeout, consecutiveFailures, p)
	}
}

// NewPublisher creates a Publisher over storage and posts.
func NewPublisher(storage media.Storage, posts PostRepository, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		storage: storage,
		posts:   posts,
		tracer:  otel.Tracer(tracerName),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	p.mediaBreaker = newBreaker("media", time.Minute, 30*time.Second, 5, p)
	p.postBreaker = newBreaker("posts", time.Minute, 30*time.Second, 5, p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newBreaker(name string, interval, timeout time.Duration, consecutive uint32, p *Publisher) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: interval,
		Timeout:  timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutive
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// UploadVideo stores the file under a per-user key and returns its public URL.
func (p *Publisher) UploadVideo(ctx context.Context, file *composer.File, userID string) (composer.UploadResult, error) {
	if file == nil || file.Open == nil {
		return composer.UploadResult{}, ErrNoFile
	}
	key := media.ObjectKey(userID, file.Name)
	ctx, span := p.tracer.Start(ctx, "shortpost.upload_video", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("media.key", key),
		attribute.String("media.type", file.MediaType),
		attribute.Int64("media.size", file.Size),
	))
	defer span.End()
	start := time.Now()

	res, err := p.mediaBreaker.Execute(func() (any, error) {
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file.Name, err)
		}
		defer rc.Close()
		return p.storage.Put(ctx, key, file.MediaType, rc)
	})
	p.metrics.ObserveStep("upload", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return composer.UploadResult{}, fmt.Errorf("media storage: %w", err)
	}
	url := res.(string)
	span.SetAttributes(attribute.String("media.url", url))
	p.logger(ctx).Info().Str("key", key).Int64("size", file.Size).Dur("took", time.Since(start)).Msg("video uploaded")
	return composer.UploadResult{URL: url}, nil
}

// CreateVideoPost writes the post record. Hashtags are stored lowercased.
func (p *Publisher) CreateVideoPost(ctx context.Context, req composer.CreatePostRequest) (composer.Post, error) {
	post := composer.Post{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		VideoURL:      req.VideoURL,
		Description:   req.Description,
		Hashtags:      lowerTags(req.Hashtags),
		IsPrivate:     req.IsPrivate,
		AllowComments: req.AllowComments,
		AllowDuet:     req.AllowDuet,
		CreatedAt:     p.now().UTC(),
	}
	ctx, span := p.tracer.Start(ctx, "shortpost.create_post", trace.WithAttributes(
		attribute.String("post.id", post.ID),
		attribute.String("user.id", post.UserID),
		attribute.Bool("post.private", post.IsPrivate),
		attribute.Int("post.hashtags", len(post.Hashtags)),
	))
	defer span.End()
	start := time.Now()

	_, err := p.postBreaker.Execute(func() (any, error) {
		return nil, p.posts.CreatePost(ctx, post)
	})
	p.metrics.ObserveStep("create", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return composer.Post{}, fmt.Errorf("post database: %w", err)
	}
	for _, fn := range p.onCreated {
		fn(post)
	}
	p.logger(ctx).Info().Str("post", post.ID).Bool("private", post.IsPrivate).Msg("post created")
	return post, nil
}

func (p *Publisher) logger(ctx context.Context) *zerolog.Logger {
	l := p.log
	if sub, ok := composer.SubmissionFrom(ctx); ok {
		l = l.With().Str("submission", sub.ID).Logger()
	}
	return &l
}

func lowerTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.ToLower(t)
	}
	return out
}
