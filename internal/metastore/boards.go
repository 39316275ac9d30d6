package metastore

import (
	"context"
	"fmt"
	"time"

	"chanmirror/internal/fourchan"
)

// BoardRow is one cached board directory entry.
type BoardRow struct {
	Code      string
	Title     string
	Worksafe  bool
	FetchedAt time.Time
}

// CachedBoards returns the cached board directory ordered by board code, or
// nil when the cache is empty or (unless ignoreExpiry is set) stale. The
// board TTL is fixed at one hour; the directory churns slowly.
func (s *Store) CachedBoards(ctx context.Context, ignoreExpiry bool) ([]BoardRow, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT board, title, is_worksafe, last_updated FROM boards ORDER BY board")
	if err != nil {
		return nil, fmt.Errorf("query boards: %w", err)
	}
	defer rows.Close()

	var boards []BoardRow
	for rows.Next() {
		var (
			row      BoardRow
			worksafe int
			updated  string
		)
		if err := rows.Scan(&row.Code, &row.Title, &worksafe, &updated); err != nil {
			return nil, fmt.Errorf("scan board row: %w", err)
		}
		row.Worksafe = worksafe != 0
		if row.FetchedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parse board timestamp: %w", err)
		}
		boards = append(boards, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	if len(boards) == 0 {
		return nil, nil
	}

	// The whole directory is written in one transaction, so the first row's
	// timestamp stands for the set.
	if !ignoreExpiry && time.Since(boards[0].FetchedAt) >= boardTTL {
		return nil, nil
	}
	return boards, nil
}

// CacheBoards replaces the entire cached board directory in one transaction,
// so readers never observe a mix of the old and new sets.
func (s *Store) CacheBoards(ctx context.Context, boards []fourchan.Board) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin boards tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM boards"); err != nil {
			return fmt.Errorf("clear boards: %w", err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		for _, board := range boards {
			worksafe := 0
			if board.Worksafe {
				worksafe = 1
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO boards (board, title, is_worksafe, last_updated) VALUES (?, ?, ?, ?)",
				board.Code, board.Title, worksafe, timestamp); err != nil {
				return fmt.Errorf("insert board %q: %w", board.Code, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit boards: %w", err)
		}
		return nil
	})
}
