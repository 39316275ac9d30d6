package config

const (
	defaultDataDir      = "~/.local/share/chanmirror"
	defaultCacheDir     = "~/.local/share/chanmirror/cache"
	defaultDownloadsDir = "~/.local/share/chanmirror/downloads"
	defaultLogDir       = "~/.local/share/chanmirror/logs"
	defaultBind         = "127.0.0.1:5000"

	defaultAPIBaseURL        = "https://a.4cdn.org"
	defaultImageBaseURL      = "https://i.4cdn.org"
	defaultUserAgent         = "Mozilla/5.0 (chanmirror)"
	defaultRequestTimeout    = 10
	defaultDownloadTimeout   = 15
	defaultHealthTimeout     = 5
	defaultMaxRetries        = 3
	defaultRetryBackoff      = 1
	defaultRateLimitInterval = 1

	defaultCacheTTLMinutes = 10
	defaultMaxCacheSizeMB  = 500
	defaultMaxAgeHours     = 24
	defaultCleanupInterval = 3600
	defaultPrefetchLimit   = 20

	defaultHistoryMaxEntries = 50

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			CacheDir:     defaultCacheDir,
			DownloadsDir: defaultDownloadsDir,
			LogDir:       defaultLogDir,
			Bind:         defaultBind,
		},
		Remote: Remote{
			APIBaseURL:        defaultAPIBaseURL,
			ImageBaseURL:      defaultImageBaseURL,
			UserAgent:         defaultUserAgent,
			RequestTimeout:    defaultRequestTimeout,
			DownloadTimeout:   defaultDownloadTimeout,
			HealthTimeout:     defaultHealthTimeout,
			MaxRetries:        defaultMaxRetries,
			RetryBackoff:      defaultRetryBackoff,
			RateLimitInterval: defaultRateLimitInterval,
		},
		Cache: Cache{
			TTLMinutes:      defaultCacheTTLMinutes,
			MaxSizeMB:       defaultMaxCacheSizeMB,
			MaxAgeHours:     defaultMaxAgeHours,
			CleanupInterval: defaultCleanupInterval,
			PrefetchLimit:   defaultPrefetchLimit,
		},
		History: History{
			MaxEntries: defaultHistoryMaxEntries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
