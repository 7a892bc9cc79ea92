package shortpost

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/eringen/shortpost/media"
)

// Config holds all configuration for a shortpost server.
type Config struct {
	Name        string `yaml:"name"`        // Site name (default "shortpost")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/shortpost.db")
	DatabaseURL  string `yaml:"database_url"`  // PostgreSQL DSN; takes precedence over DatabasePath

	StaticDir    string         `yaml:"static_dir"`     // User static assets (default "public")
	MediaDir     string         `yaml:"media_dir"`      // Disk media storage (default "<static>/videos")
	MediaBaseURL string         `yaml:"media_base_url"` // Public prefix of MediaDir (default "/public/videos")
	S3           media.S3Config `yaml:"s3"`             // Used instead of MediaDir when S3.Bucket is set

	PreviewDir string        `yaml:"preview_dir"` // Preview handle files (default "data/previews")
	PreviewTTL time.Duration `yaml:"preview_ttl"` // Leaked previews are swept after this (default 24h)
	DraftTTL   time.Duration `yaml:"draft_ttl"`   // Idle drafts are evicted after this (default 2h)

	UserID        string `yaml:"user_id"`        // Acting user uploads are keyed by (default "test-user-1")
	SessionSecret string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	FeedCacheTTL     time.Duration `yaml:"feed_cache_ttl"`     // Home feed cache TTL (default 1min)
	FeedLimit        int           `yaml:"feed_limit"`         // Posts on the home feed (default 50)
	SubmitsPerMinute int           `yaml:"submits_per_minute"` // Per-IP submit rate (default 6)

	LogLevel  string `yaml:"log_level"`  // zerolog level (default "info")
	LogFormat string `yaml:"log_format"` // "console" or "json" (default "console")
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "shortpost"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/shortpost.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.MediaDir == "" {
		c.MediaDir = c.StaticDir + "/videos"
	}
	if c.MediaBaseURL == "" {
		c.MediaBaseURL = "/public/videos"
	}
	if c.PreviewDir == "" {
		c.PreviewDir = "data/previews"
	}
	if c.PreviewTTL == 0 {
		c.PreviewTTL = 24 * time.Hour
	}
	if c.DraftTTL == 0 {
		c.DraftTTL = 2 * time.Hour
	}
	if c.UserID == "" {
		c.UserID = "test-user-1"
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = time.Minute
	}
	if c.FeedLimit == 0 {
		c.FeedLimit = 50
	}
	if c.SubmitsPerMinute == 0 {
		c.SubmitsPerMinute = 6
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

func (c Config) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("shortpost: SessionSecret is required")
	}
	if c.FeedLimit < 0 || c.SubmitsPerMinute < 0 {
		return fmt.Errorf("shortpost: limits must not be negative")
	}
	return nil
}

// LoadConfigFile reads a YAML config file. Missing keys keep their zero value
// and are defaulted when the App is created.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any SHORTPOST_* environment variables that are set.
func ApplyEnv(cfg *Config) {
	str := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str(&cfg.Name, "SITE_NAME")
	str(&cfg.URL, "SITE_URL")
	str(&cfg.Description, "SITE_DESCRIPTION")
	str(&cfg.Addr, "SHORTPOST_ADDR")
	str(&cfg.DatabasePath, "SHORTPOST_DATABASE_PATH")
	str(&cfg.DatabaseURL, "SHORTPOST_DATABASE_URL")
	str(&cfg.StaticDir, "SHORTPOST_STATIC_DIR")
	str(&cfg.MediaDir, "SHORTPOST_MEDIA_DIR")
	str(&cfg.MediaBaseURL, "SHORTPOST_MEDIA_BASE_URL")
	str(&cfg.PreviewDir, "SHORTPOST_PREVIEW_DIR")
	str(&cfg.UserID, "SHORTPOST_USER_ID")
	str(&cfg.SessionSecret, "SHORTPOST_SESSION_SECRET")
	str(&cfg.LogLevel, "SHORTPOST_LOG_LEVEL")
	str(&cfg.LogFormat, "SHORTPOST_LOG_FORMAT")
	str(&cfg.S3.Bucket, "SHORTPOST_S3_BUCKET")
	str(&cfg.S3.Region, "SHORTPOST_S3_REGION")
	str(&cfg.S3.Endpoint, "SHORTPOST_S3_ENDPOINT")
	str(&cfg.S3.PublicURL, "SHORTPOST_S3_PUBLIC_URL")
	str(&cfg.S3.AccessKeyID, "SHORTPOST_S3_ACCESS_KEY_ID")
	str(&cfg.S3.SecretAccessKey, "SHORTPOST_S3_SECRET_ACCESS_KEY")
	if v := os.Getenv("SHORTPOST_COOKIE_SECURE"); v != "" {
		cfg.CookieSecure, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SHORTPOST_S3_PATH_STYLE"); v != "" {
		cfg.S3.PathStyle, _ = strconv.ParseBool(v)
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithRepository replaces the configured post database.
func WithRepository(repo PostRepository) Option {
	return func(a *App) {
		a.Posts = repo
	}
}

// WithStorage replaces the configured media storage.
func WithStorage(s media.Storage) Option {
	return func(a *App) {
		a.Media = s
	}
}

// WithLogger replaces the logger built from LogLevel and LogFormat.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}
