package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config file")
	}
	if cfg.Cache.TTLMinutes != defaultCacheTTLMinutes {
		t.Fatalf("expected default ttl, got %d", cfg.Cache.TTLMinutes)
	}
	if cfg.Remote.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected api base url %q", cfg.Remote.APIBaseURL)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[cache]",
		"ttl_minutes = 5",
		"max_size_mb = 100",
		"[remote]",
		"max_retries = 7",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatalf("expected config file at %s", resolved)
	}
	if cfg.Cache.TTLMinutes != 5 || cfg.Cache.MaxSizeMB != 100 {
		t.Fatalf("override not applied: %+v", cfg.Cache)
	}
	if cfg.Remote.MaxRetries != 7 {
		t.Fatalf("override not applied: %+v", cfg.Remote)
	}
}

func TestEnvOverridesTakePriority(t *testing.T) {
	t.Setenv("CHANMIRROR_CACHE_TTL", "3")
	t.Setenv("CHANMIRROR_MAX_CACHE_SIZE", "250")

	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.TTLMinutes != 3 {
		t.Fatalf("expected ttl 3, got %d", cfg.Cache.TTLMinutes)
	}
	if cfg.Cache.MaxSizeMB != 250 {
		t.Fatalf("expected max size 250, got %d", cfg.Cache.MaxSizeMB)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	cfg.Cache.MaxSizeMB = 1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for tiny cache size")
	}

	cfg = Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Remote.APIBaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}

func TestTildeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	expanded, err := expandPath("~/mirror")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if expanded != filepath.Join(home, "mirror") {
		t.Fatalf("unexpected expansion %q", expanded)
	}
}
