package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chanmirror/internal/logging"
)

// Entry records one visited thread.
type Entry struct {
	Board     string    `json:"board"`
	ThreadID  int64     `json:"thread_id"`
	Title     string    `json:"title"`
	VisitedAt time.Time `json:"visited_at"`
}

// Manager keeps a most-recent-first list of visited threads persisted as a
// JSON file. The list holds at most maxEntries entries and one entry per
// (board, thread) pair.
type Manager struct {
	path       string
	maxEntries int
	logger     *slog.Logger
	mu         sync.Mutex
	entries    []Entry
}

// NewManager loads the history file at path, starting empty when it does not
// exist or cannot be parsed.
func NewManager(path string, maxEntries int, logger *slog.Logger) *Manager {
	if maxEntries <= 0 {
		maxEntries = 50
	}
	m := &Manager{
		path:       path,
		maxEntries: maxEntries,
		logger:     logging.NewComponentLogger(logger, "history"),
	}
	if err := m.load(); err != nil {
		m.logger.Warn("failed to load history file, starting empty", logging.Error(err))
	}
	return m
}

// Add records a thread visit. Revisiting a thread moves its entry to the
// front and refreshes the title rather than adding a duplicate.
func (m *Manager) Add(board string, threadID int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := Entry{
		Board:     board,
		ThreadID:  threadID,
		Title:     title,
		VisitedAt: time.Now().UTC(),
	}

	kept := make([]Entry, 0, len(m.entries)+1)
	kept = append(kept, entry)
	for _, e := range m.entries {
		if e.Board == board && e.ThreadID == threadID {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) > m.maxEntries {
		kept = kept[:m.maxEntries]
	}
	m.entries = kept

	return m.save()
}

// List returns a copy of the history, most recent first.
func (m *Manager) List() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Remove drops the entry for one thread. Removing a thread that is not in
// the history is not an error.
func (m *Manager) Remove(board string, threadID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Board == board && e.ThreadID == threadID {
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return m.save()
}

// Replace overwrites the whole history, trimming to the entry cap. Used when
// a client submits its own edited list.
func (m *Manager) Replace(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(entries) > m.maxEntries {
		entries = entries[:m.maxEntries]
	}
	m.entries = make([]Entry, len(entries))
	copy(m.entries, entries)
	return m.save()
}

// Clear empties the history.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = nil
	return m.save()
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read history file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse history file: %w", err)
	}
	if len(entries) > m.maxEntries {
		entries = entries[:m.maxEntries]
	}
	m.entries = entries
	return nil
}

// save writes the history file atomically. Caller holds the lock.
func (m *Manager) save() error {
	entries := m.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
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
