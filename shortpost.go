// Package shortpost serves the "create post" screen of a short-video app.
// It hosts one composer.Form per browser session behind Echo, uploads
// videos to disk or S3 storage and keeps posts in SQLite or PostgreSQL.
package shortpost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eringen/shortpost/composer"
	"github.com/eringen/shortpost/media"
	"github.com/eringen/shortpost/postgres"
	"github.com/eringen/shortpost/preview"
	"github.com/eringen/shortpost/views"
)

// App is the central shortpost application. It wires together the post
// database, media storage, previews, drafts, handlers and middleware.
type App struct {
	Config    Config
	Echo      *echo.Echo
	Logger    zerolog.Logger
	Posts     PostRepository
	Media     media.Storage
	Previews  *preview.Store
	Publisher *Publisher
	Cache     *FeedCache
	Drafts    *DraftRegistry
	Progress  *ProgressHub
	Metrics   *Metrics

	submitLimiter *SubmitLimiter
	customRoutes  []func(*App)
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New creates a new App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	a := &App{
		Config: cfg,
		Echo:   e,
		Logger: NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the stores, starts the background workers and registers
// middleware and routes. Start calls it; tests call it directly.
func (a *App) Init(ctx context.Context) error {
	if err := a.Config.validate(); err != nil {
		return err
	}

	if a.Posts == nil {
		repo, err := OpenRepository(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("shortpost: init post database: %w", err)
		}
		a.Posts = repo
	}

	if a.Media == nil {
		storage, err := a.openStorage()
		if err != nil {
			return fmt.Errorf("shortpost: init media storage: %w", err)
		}
		a.Media = storage
	}

	previews, err := preview.NewStore(a.Config.PreviewDir, "/preview/")
	if err != nil {
		return fmt.Errorf("shortpost: init previews: %w", err)
	}
	a.Previews = previews

	a.Metrics = NewMetrics()
	a.Cache = NewFeedCache(a.Posts, a.Config.FeedCacheTTL, a.Config.FeedLimit)
	a.Publisher = NewPublisher(a.Media, a.Posts,
		WithPublisherMetrics(a.Metrics),
		WithPublisherLogger(a.Logger),
		OnPostCreated(func(composer.Post) { a.Cache.Invalidate() }),
	)
	a.submitLimiter = NewSubmitLimiter(a.Config.SubmitsPerMinute, time.Minute)

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Progress = NewProgressHub(a.Metrics)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Progress.Run(runCtx)
	}()

	a.Drafts = NewDraftRegistry(a.Config.DraftTTL, a.Metrics, a.mountForm)
	a.Drafts.StartSweeper(sweepInterval(a.Config.DraftTTL))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sweepPreviews(runCtx)
	}()

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.Logger.Info().Str("addr", a.Config.Addr).Str("user", a.Config.UserID).Msg("shortpost listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// OpenRepository opens the post database cfg points at: PostgreSQL when
// DatabaseURL is set, SQLite otherwise.
func OpenRepository(ctx context.Context, cfg Config) (PostRepository, error) {
	cfg.setDefaults()
	if cfg.DatabaseURL != "" {
		return postgres.Open(ctx, postgres.Config{DSN: cfg.DatabaseURL})
	}
	return NewStore(cfg.DatabasePath)
}

func (a *App) openStorage() (media.Storage, error) {
	if a.Config.S3.Bucket != "" {
		client, err := media.NewS3Client(a.Config.S3)
		if err != nil {
			return nil, err
		}
		return media.NewS3Storage(client, a.Config.S3), nil
	}
	return media.NewDiskStorage(a.Config.MediaDir, a.Config.MediaBaseURL)
}

// mountForm creates the form of a new draft. The draft collects notices and
// navigation for the response; renders feed the draft's progress topic.
func (a *App) mountForm(d *draft) *composer.Form {
	return composer.New(a.Publisher, a.Previews,
		composer.WithID(d.id),
		composer.WithUserID(a.Config.UserID),
		composer.WithLogger(a.Logger),
		composer.WithNotifier(d),
		composer.WithNavigator(d),
		composer.WithRenderer(composer.RendererFunc(func(s composer.State, view *views.Node) {
			a.Progress.PublishState(d.id, s, view)
		})),
	)
}

func sweepInterval(ttl time.Duration) time.Duration {
	iv := ttl / 4
	if iv < time.Second {
		iv = time.Second
	}
	if iv > 5*time.Minute {
		iv = 5 * time.Minute
	}
	return iv
}

// sweepPreviews releases preview handles older than PreviewTTL that no
// evicted draft released, e.g. after a crash mid-request.
func (a *App) sweepPreviews(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval(a.Config.PreviewTTL))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Previews.Cleanup(a.Config.PreviewTTL); n > 0 {
				a.Logger.Info().Int("released", n).Msg("swept stale previews")
			}
		}
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Serve embedded client assets under /public/, ahead of the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/app.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/app.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	// User's static assets, and locally stored videos
	e.Static("/public", a.Config.StaticDir)
	if _, ok := a.Media.(*media.DiskStorage); ok && strings.HasPrefix(a.Config.MediaBaseURL, "/") &&
		!strings.HasPrefix(a.Config.MediaBaseURL, "/public/") {
		e.Static(a.Config.MediaBaseURL, a.Config.MediaDir)
	}
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/", a.handleHome)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))

	// Composer routes
	e.GET("/upload/", a.handleUploadPage)
	e.POST("/upload/file/", a.handleSelectFile)
	e.POST("/upload/caption/", a.handleCaption)
	e.POST("/upload/toggle/:setting/", a.handleToggle)
	e.POST("/upload/remove/", a.handleRemoveVideo)
	e.POST("/upload/cancel/", a.handleCancel)
	e.POST("/upload/submit/", a.handleSubmit)
	e.GET("/upload/progress/", a.handleProgress)
	e.GET("/preview/:id/", a.handlePreview)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Drafts != nil {
		a.Drafts.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.Progress != nil {
		a.Progress.Stop()
	}
	if a.submitLimiter != nil {
		a.submitLimiter.Stop()
	}
	a.wg.Wait()
	if a.Posts != nil {
		return a.Posts.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatal().Str("key", key).Msg("shortpost: required environment variable is not set")
	}
	return v
}
