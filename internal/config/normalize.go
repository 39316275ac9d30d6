package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeCache()
	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = defaultHistoryMaxEntries
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		c.Paths.DownloadsDir = defaultDownloadsDir
	}
	if c.Paths.DownloadsDir, err = expandPath(c.Paths.DownloadsDir); err != nil {
		return fmt.Errorf("paths.downloads_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.Bind = strings.TrimSpace(c.Paths.Bind)
	if value, ok := os.LookupEnv("CHANMIRROR_BIND"); ok {
		c.Paths.Bind = strings.TrimSpace(value)
	}
	if c.Paths.Bind == "" {
		c.Paths.Bind = defaultBind
	}
	return nil
}

func (c *Config) normalizeRemote() {
	c.Remote.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.APIBaseURL), "/")
	if c.Remote.APIBaseURL == "" {
		c.Remote.APIBaseURL = defaultAPIBaseURL
	}
	c.Remote.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.ImageBaseURL), "/")
	if c.Remote.ImageBaseURL == "" {
		c.Remote.ImageBaseURL = defaultImageBaseURL
	}
	c.Remote.UserAgent = strings.TrimSpace(c.Remote.UserAgent)
	if c.Remote.UserAgent == "" {
		c.Remote.UserAgent = defaultUserAgent
	}
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRequestTimeout
	}
	if c.Remote.DownloadTimeout <= 0 {
		c.Remote.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Remote.HealthTimeout <= 0 {
		c.Remote.HealthTimeout = defaultHealthTimeout
	}
	if c.Remote.MaxRetries <= 0 {
		c.Remote.MaxRetries = defaultMaxRetries
	}
	if c.Remote.RetryBackoff < 0 {
		c.Remote.RetryBackoff = defaultRetryBackoff
	}
	if c.Remote.RateLimitInterval <= 0 {
		c.Remote.RateLimitInterval = defaultRateLimitInterval
	}
}

func (c *Config) normalizeCache() {
	if value := envInt("CHANMIRROR_CACHE_TTL"); value > 0 {
		c.Cache.TTLMinutes = value
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = defaultCacheTTLMinutes
	}
	if value := envInt("CHANMIRROR_MAX_CACHE_SIZE"); value > 0 {
		c.Cache.MaxSizeMB = value
	}
	if c.Cache.MaxSizeMB <= 0 {
		c.Cache.MaxSizeMB = defaultMaxCacheSizeMB
	}
	if c.Cache.MaxAgeHours <= 0 {
		c.Cache.MaxAgeHours = defaultMaxAgeHours
	}
	if c.Cache.CleanupInterval <= 0 {
		c.Cache.CleanupInterval = defaultCleanupInterval
	}
	if c.Cache.PrefetchLimit <= 0 {
		c.Cache.PrefetchLimit = defaultPrefetchLimit
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "auto":
		c.Logging.Format = "auto"
	case "console", "json":
	default:
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envInt(key string) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return 0
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return parsed
}
