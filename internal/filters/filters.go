package filters

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"chanmirror/internal/logging"
)

// Scope selects which thread text a filter matches against.
type Scope string

const (
	ScopeSubject Scope = "subject"
	ScopeComment Scope = "comment"
	ScopeBoth    Scope = "both"
)

// Filter hides catalog threads whose text matches a keyword. IDs are unique
// within one board's list only.
type Filter struct {
	ID            int    `json:"id"`
	Keyword       string `json:"keyword"`
	Scope         Scope  `json:"type"`
	CaseSensitive bool   `json:"case_sensitive"`
	Regex         bool   `json:"regex"`
	Enabled       bool   `json:"enabled"`
}

// boardFilters pairs a board's filter list with its id counter. The counter
// only ever increments, so deleting a filter can never recycle an id.
type boardFilters struct {
	NextID  int      `json:"next_id"`
	Filters []Filter `json:"filters"`
}

// Manager provides thread-safe access to per-board filters persisted as a
// JSON file.
type Manager struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
	boards map[string]*boardFilters
}

// NewManager loads the filters file at path, starting empty when it does not
// exist or cannot be parsed.
func NewManager(path string, logger *slog.Logger) *Manager {
	m := &Manager{
		path:   path,
		logger: logging.NewComponentLogger(logger, "filters"),
		boards: make(map[string]*boardFilters),
	}
	if err := m.load(); err != nil {
		m.logger.Warn("failed to load filters file, starting empty", logging.Error(err))
	}
	return m
}

// BoardFilters returns a copy of the filter list for a board.
func (m *Manager) BoardFilters(board string) []Filter {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.boards[board]
	if !ok {
		return nil
	}
	out := make([]Filter, len(entry.Filters))
	copy(out, entry.Filters)
	return out
}

// All returns every board's filters keyed by board code.
func (m *Manager) All() map[string][]Filter {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]Filter, len(m.boards))
	for board, entry := range m.boards {
		list := make([]Filter, len(entry.Filters))
		copy(list, entry.Filters)
		out[board] = list
	}
	return out
}

// Add appends a filter to a board's list, assigning the next id from the
// board's monotonic counter, and persists the change.
func (m *Manager) Add(board string, filter Filter) (Filter, error) {
	filter.Keyword = strings.TrimSpace(filter.Keyword)
	if filter.Keyword == "" {
		return Filter{}, errors.New("filter keyword cannot be empty")
	}
	switch filter.Scope {
	case ScopeSubject, ScopeComment, ScopeBoth:
	case "":
		filter.Scope = ScopeSubject
	default:
		return Filter{}, fmt.Errorf("unknown filter scope %q", filter.Scope)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.boards[board]
	if !ok {
		entry = &boardFilters{}
		m.boards[board] = entry
	}
	entry.NextID++
	filter.ID = entry.NextID
	entry.Filters = append(entry.Filters, filter)

	if err := m.save(); err != nil {
		return Filter{}, fmt.Errorf("persist filters: %w", err)
	}
	m.logger.Debug("added filter",
		logging.String(logging.FieldBoard, board),
		logging.Int("filter_id", filter.ID),
		logging.String("keyword", filter.Keyword))
	return filter, nil
}

// Update replaces the stored filter with the same id and persists the change.
func (m *Manager) Update(board string, filter Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.boards[board]
	if !ok {
		return fmt.Errorf("board %q has no filters", board)
	}
	for i := range entry.Filters {
		if entry.Filters[i].ID == filter.ID {
			entry.Filters[i] = filter
			if err := m.save(); err != nil {
				return fmt.Errorf("persist filters: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("filter %d not found on board %q", filter.ID, board)
}

// Remove deletes a filter by id and persists the change.
func (m *Manager) Remove(board string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.boards[board]
	if !ok {
		return fmt.Errorf("board %q has no filters", board)
	}
	kept := entry.Filters[:0]
	found := false
	for _, f := range entry.Filters {
		if f.ID == id {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	if !found {
		return fmt.Errorf("filter %d not found on board %q", id, board)
	}
	entry.Filters = kept

	if err := m.save(); err != nil {
		return fmt.Errorf("persist filters: %w", err)
	}
	return nil
}

// ClearBoard drops every filter for a board. The id counter survives so new
// filters keep getting fresh ids.
func (m *Manager) ClearBoard(board string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.boards[board]
	if !ok {
		return nil
	}
	entry.Filters = nil

	if err := m.save(); err != nil {
		return fmt.Errorf("persist filters: %w", err)
	}
	return nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read filters file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	boards := make(map[string]*boardFilters)
	if err := json.Unmarshal(data, &boards); err != nil {
		return fmt.Errorf("parse filters file: %w", err)
	}
	m.boards = boards
	return nil
}

// save writes the filters file atomically. Caller holds the lock.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.boards, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create filters directory: %w", err)
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

// sortedBoards returns board codes with at least one filter, for stable CLI
// output.
func (m *Manager) sortedBoards() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	codes := make([]string, 0, len(m.boards))
	for board, entry := range m.boards {
		if len(entry.Filters) > 0 {
			codes = append(codes, board)
		}
	}
	sort.Strings(codes)
	return codes
}

// Boards lists board codes that currently have filters.
func (m *Manager) Boards() []string {
	return m.sortedBoards()
}
