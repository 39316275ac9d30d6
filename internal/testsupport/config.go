package testsupport

import (
	"path/filepath"
	"testing"

	"chanmirror/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.DownloadsDir = filepath.Join(base, "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Bind = "127.0.0.1:0"
	cfg.Remote.RetryBackoff = 0
	cfg.Remote.RateLimitInterval = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithCacheSizeMB sets the blob cache size bound on the test config.
func WithCacheSizeMB(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cache.MaxSizeMB = size
	}
}

// WithThreadTTLMinutes sets the thread cache TTL on the test config.
func WithThreadTTLMinutes(minutes int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cache.TTLMinutes = minutes
	}
}

// WithRemoteBase points the remote client at a test server.
func WithRemoteBase(apiURL, imageURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Remote.APIBaseURL = apiURL
		cfg.Remote.ImageBaseURL = imageURL
	}
}
