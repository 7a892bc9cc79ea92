package shortpost

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.setDefaults()

	assert.Equal(t, "shortpost", cfg.Name)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "public/videos", cfg.MediaDir)
	assert.Equal(t, "test-user-1", cfg.UserID)
	assert.Equal(t, 2*time.Hour, cfg.DraftTTL)
	assert.Equal(t, 6, cfg.SubmitsPerMinute)
	assert.Error(t, cfg.validate(), "session secret is required")
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortpost.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: clips
addr: ":8080"
session_secret: s3cret
draft_ttl: 30m
s3:
  bucket: videos
  endpoint: http://localhost:9000
  path_style: true
`), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "clips", cfg.Name)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Minute, cfg.DraftTTL)
	assert.Equal(t, "videos", cfg.S3.Bucket)
	assert.True(t, cfg.S3.PathStyle)
	assert.NoError(t, cfg.validate())
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unclosed"), 0o644))
	_, err = LoadConfigFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SITE_NAME", "from-env")
	t.Setenv("SHORTPOST_USER_ID", "user-42")
	t.Setenv("SHORTPOST_COOKIE_SECURE", "true")
	t.Setenv("SHORTPOST_S3_BUCKET", "bucket")

	cfg := Config{Name: "from-file"}
	ApplyEnv(&cfg)
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, "user-42", cfg.UserID)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "bucket", cfg.S3.Bucket)
}
