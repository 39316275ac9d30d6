package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"chanmirror/internal/config"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.DownloadsDir = filepath.Join(base, "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Bind = "127.0.0.1:0"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("output %q does not contain %q", out, want)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigInitOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	if _, err := runCLI(t, "", "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if err := os.WriteFile(target, []byte("# edited\n"), 0o644); err != nil {
		t.Fatalf("edit config: %v", err)
	}

	out, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "wrote sample configuration")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(data), "# edited") {
		t.Fatal("--overwrite left the old file in place")
	}
}

func TestConfigShowCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[remote]")
	requireContains(t, out, "api_base_url")
}

func TestFiltersCommands(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "filters", "add", "g", "crypto", "--scope", "both")
	if err != nil {
		t.Fatalf("filters add: %v", err)
	}
	requireContains(t, out, "added filter 1 to /g/")

	out, err = runCLI(t, configPath, "filters", "list")
	if err != nil {
		t.Fatalf("filters list: %v", err)
	}
	requireContains(t, out, "crypto")
	requireContains(t, out, "both")

	out, err = runCLI(t, configPath, "filters", "remove", "g", "1")
	if err != nil {
		t.Fatalf("filters remove: %v", err)
	}
	requireContains(t, out, "removed filter 1 from /g/")

	out, err = runCLI(t, configPath, "filters", "list")
	if err != nil {
		t.Fatalf("filters list after remove: %v", err)
	}
	requireContains(t, out, "no filters configured")
}

func TestHistoryListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "history is empty")
}

func TestCacheStatsCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Cached boards")
	requireContains(t, out, "Cache size")
}
