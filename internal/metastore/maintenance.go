package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats summarizes the metadata cache contents.
type Stats struct {
	Boards       int   `json:"boards"`
	Threads      int   `json:"threads"`
	TotalReplies int64 `json:"total_replies"`
}

// Clear removes every cached board and thread.
func (s *Store) Clear(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin clear tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM boards"); err != nil {
			return fmt.Errorf("clear boards: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM threads"); err != nil {
			return fmt.Errorf("clear threads: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit clear: %w", err)
		}
		return nil
	})
}

// CleanupExpired removes thread rows older than the thread TTL and returns
// how many were deleted.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.threadTTL).Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ensureContext(ctx),
		"DELETE FROM threads WHERE last_updated < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup threads: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

// Stats returns row counts and the reply total across cached threads.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM boards").Scan(&stats.Boards); err != nil {
		return Stats{}, fmt.Errorf("count boards: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM threads").Scan(&stats.Threads); err != nil {
		return Stats{}, fmt.Errorf("count threads: %w", err)
	}
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT SUM(reply_count) FROM threads").Scan(&total); err != nil {
		return Stats{}, fmt.Errorf("sum replies: %w", err)
	}
	stats.TotalReplies = total.Int64
	return stats, nil
}
