package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	CacheDir     string `toml:"cache_dir"`
	DownloadsDir string `toml:"downloads_dir"`
	LogDir       string `toml:"log_dir"`
	Bind         string `toml:"bind"`
}

// Remote contains configuration for the upstream imageboard API.
type Remote struct {
	APIBaseURL        string `toml:"api_base_url"`
	ImageBaseURL      string `toml:"image_base_url"`
	UserAgent         string `toml:"user_agent"`
	RequestTimeout    int    `toml:"request_timeout"`
	DownloadTimeout   int    `toml:"download_timeout"`
	HealthTimeout     int    `toml:"health_timeout"`
	MaxRetries        int    `toml:"max_retries"`
	RetryBackoff      int    `toml:"retry_backoff"`
	RateLimitInterval int    `toml:"rate_limit_interval"`
}

// Cache contains configuration for the metadata and blob caches.
type Cache struct {
	TTLMinutes      int `toml:"ttl_minutes"`
	MaxSizeMB       int `toml:"max_size_mb"`
	MaxAgeHours     int `toml:"max_age_hours"`
	CleanupInterval int `toml:"cleanup_interval"`
	PrefetchLimit   int `toml:"prefetch_limit"`
}

// History contains configuration for the visit history store.
type History struct {
	MaxEntries int `toml:"max_entries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for chanmirror.
//
// Configuration sections by subsystem:
//   - Paths: data/cache/downloads directories and HTTP bind address
//   - Remote: upstream API endpoints, timeouts, retry and rate-limit knobs
//   - Cache: metadata TTL, blob cache size bound, expiry sweep settings
//   - History: visit history cap
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Remote  Remote  `toml:"remote"`
	Cache   Cache   `toml:"cache"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/chanmirror/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The bool reports
// whether a config file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("chanmirror.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
// Unless overwrite is set, an existing file is left untouched.
func WriteSample(path string, overwrite bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if !overwrite {
		if _, err := os.Stat(expanded); err == nil {
			return fmt.Errorf("config file already exists at %s", expanded)
		}
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.CacheDir, c.Paths.DownloadsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the metadata cache database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "chan.db")
}

// SettingsPath returns the location of the user settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Paths.DataDir, "settings.json")
}

// HistoryPath returns the location of the visit history file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.json")
}

// FiltersPath returns the location of the thread filters file.
func (c *Config) FiltersPath() string {
	return filepath.Join(c.Paths.DataDir, "filters.json")
}

// ThreadTTL returns the thread cache TTL as a duration.
func (c *Config) ThreadTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
