package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"chanmirror/internal/logging"
)

// Defaults returns the settings applied when a key has never been saved.
func Defaults() map[string]any {
	return map[string]any{
		"enableDownloadButton": false,
		"theme":                "dark",
		"quickBoards":          []any{"g", "pol", "v", "tv", "b", "x"},
	}
}

// Manager stores user settings as a JSON object on disk. Reads always merge
// the stored values over the defaults, so new keys pick up their default
// without a migration.
type Manager struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
	values map[string]any
}

// NewManager loads the settings file at path, starting from defaults when it
// does not exist or cannot be parsed.
func NewManager(path string, logger *slog.Logger) *Manager {
	m := &Manager{
		path:   path,
		logger: logging.NewComponentLogger(logger, "settings"),
		values: make(map[string]any),
	}
	if err := m.load(); err != nil {
		m.logger.Warn("failed to load settings file, using defaults", logging.Error(err))
	}
	return m
}

// Get returns the effective settings: saved values merged over defaults.
func (m *Manager) Get() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := Defaults()
	for key, value := range m.values {
		merged[key] = value
	}
	return merged
}

// Save merges the given values into the stored settings and persists them.
func (m *Manager) Save(values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range values {
		m.values[key] = value
	}
	return m.save()
}

// DownloadsEnabled reports whether the user has turned on image downloads.
func (m *Manager) DownloadsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values["enableDownloadButton"]
	if !ok {
		return false
	}
	enabled, ok := value.(bool)
	return ok && enabled
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read settings file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	values := make(map[string]any)
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse settings file: %w", err)
	}
	m.values = values
	return nil
}

// save writes the settings file atomically. Caller holds the lock.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
