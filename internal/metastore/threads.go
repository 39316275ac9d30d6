package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CachedThread returns the cached payload for a thread, or nil when it is
// absent or older than the thread TTL.
func (s *Store) CachedThread(ctx context.Context, board string, threadID int64) (json.RawMessage, error) {
	ctx = ensureContext(ctx)
	var (
		data    string
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT data, last_updated FROM threads WHERE board = ? AND thread_id = ?",
		board, threadID).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thread: %w", err)
	}

	fetchedAt, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return nil, fmt.Errorf("parse thread timestamp: %w", err)
	}
	if time.Since(fetchedAt) >= s.threadTTL {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// CacheThread stores or replaces a thread payload. The reply count is derived
// at write time so Stats stays a cheap aggregate.
func (s *Store) CacheThread(ctx context.Context, board string, threadID int64, payload json.RawMessage) error {
	var body struct {
		Posts []json.RawMessage `json:"posts"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("parse thread payload: %w", err)
	}
	replyCount := 0
	if len(body.Posts) > 0 {
		replyCount = len(body.Posts) - 1
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ensureContext(ctx),
		`REPLACE INTO threads (board, thread_id, data, last_updated, reply_count)
         VALUES (?, ?, ?, ?, ?)`,
		board, threadID, string(payload), timestamp, replyCount)
	if err != nil {
		return fmt.Errorf("cache thread %s/%d: %w", board, threadID, err)
	}
	return nil
}
