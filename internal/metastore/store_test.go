package metastore

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"chanmirror/internal/fourchan"
	"chanmirror/internal/testsupport"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleBoards() []fourchan.Board {
	return []fourchan.Board{
		{Code: "g", Title: "Technology", Worksafe: true},
		{Code: "b", Title: "Random", Worksafe: false},
	}
}

func TestCacheBoardsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CacheBoards(ctx, sampleBoards()); err != nil {
		t.Fatalf("cache boards: %v", err)
	}

	rows, err := store.CachedBoards(ctx, false)
	if err != nil {
		t.Fatalf("cached boards: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(rows))
	}
	// Ordered by board code.
	if rows[0].Code != "b" || rows[1].Code != "g" {
		t.Fatalf("unexpected order %q, %q", rows[0].Code, rows[1].Code)
	}
	if !rows[1].Worksafe {
		t.Fatalf("expected /g/ worksafe flag set")
	}
}

func TestCachedBoardsEmptyIsAbsent(t *testing.T) {
	store := openTestStore(t)
	rows, err := store.CachedBoards(context.Background(), false)
	if err != nil {
		t.Fatalf("cached boards: %v", err)
	}
	if rows != nil {
		t.Fatalf("expected nil for empty cache, got %v", rows)
	}
}

func TestCacheBoardsReplacesWholesale(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CacheBoards(ctx, sampleBoards()); err != nil {
		t.Fatalf("cache boards: %v", err)
	}
	if err := store.CacheBoards(ctx, []fourchan.Board{{Code: "x", Title: "Paranormal"}}); err != nil {
		t.Fatalf("re-cache boards: %v", err)
	}

	rows, err := store.CachedBoards(ctx, false)
	if err != nil {
		t.Fatalf("cached boards: %v", err)
	}
	if len(rows) != 1 || rows[0].Code != "x" {
		t.Fatalf("expected replacement set, got %v", rows)
	}
}

func TestCachedBoardsExpiry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CacheBoards(ctx, sampleBoards()); err != nil {
		t.Fatalf("cache boards: %v", err)
	}

	// Backdate the rows past the board TTL.
	stale := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339Nano)
	if _, err := store.db.Exec("UPDATE boards SET last_updated = ?", stale); err != nil {
		t.Fatalf("backdate boards: %v", err)
	}

	rows, err := store.CachedBoards(ctx, false)
	if err != nil {
		t.Fatalf("cached boards: %v", err)
	}
	if rows != nil {
		t.Fatalf("expected expired cache to read as absent")
	}

	rows, err = store.CachedBoards(ctx, true)
	if err != nil {
		t.Fatalf("stale read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ignoreExpiry must return stale rows, got %d", len(rows))
	}
}

func TestCacheThreadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"posts":[{"no":1,"sub":"hello"},{"no":2,"com":"reply"}]}`)
	if err := store.CacheThread(ctx, "g", 100, payload); err != nil {
		t.Fatalf("cache thread: %v", err)
	}

	got, err := store.CachedThread(ctx, "g", 100)
	if err != nil {
		t.Fatalf("cached thread: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %s", got)
	}

	if got, err := store.CachedThread(ctx, "g", 999); err != nil || got != nil {
		t.Fatalf("expected absent thread, got %s err=%v", got, err)
	}
}

func TestCacheThreadReplaceUpdatesReplyCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CacheThread(ctx, "g", 100, json.RawMessage(`{"posts":[{"no":1}]}`)); err != nil {
		t.Fatalf("cache thread: %v", err)
	}
	if err := store.CacheThread(ctx, "g", 100, json.RawMessage(`{"posts":[{"no":1},{"no":2},{"no":3}]}`)); err != nil {
		t.Fatalf("re-cache thread: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Threads != 1 {
		t.Fatalf("replace must not duplicate rows: %d", stats.Threads)
	}
	if stats.TotalReplies != 2 {
		t.Fatalf("expected 2 replies, got %d", stats.TotalReplies)
	}
}

func TestCachedThreadExpiry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CacheThread(ctx, "g", 100, json.RawMessage(`{"posts":[{"no":1}]}`)); err != nil {
		t.Fatalf("cache thread: %v", err)
	}
	stale := time.Now().UTC().Add(-store.threadTTL - time.Minute).Format(time.RFC3339Nano)
	if _, err := store.db.Exec("UPDATE threads SET last_updated = ?", stale); err != nil {
		t.Fatalf("backdate thread: %v", err)
	}

	got, err := store.CachedThread(ctx, "g", 100)
	if err != nil {
		t.Fatalf("cached thread: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired thread to read as absent")
	}
}

func TestCleanupExpired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CacheThread(ctx, "g", 1, json.RawMessage(`{"posts":[{"no":1}]}`)); err != nil {
		t.Fatalf("cache thread: %v", err)
	}
	if err := store.CacheThread(ctx, "g", 2, json.RawMessage(`{"posts":[{"no":2}]}`)); err != nil {
		t.Fatalf("cache thread: %v", err)
	}
	stale := time.Now().UTC().Add(-store.threadTTL - time.Minute).Format(time.RFC3339Nano)
	if _, err := store.db.Exec("UPDATE threads SET last_updated = ? WHERE thread_id = 1", stale); err != nil {
		t.Fatalf("backdate thread: %v", err)
	}

	deleted, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Threads != 1 {
		t.Fatalf("expected 1 surviving thread, got %d", stats.Threads)
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CacheBoards(ctx, sampleBoards()); err != nil {
		t.Fatalf("cache boards: %v", err)
	}
	if err := store.CacheThread(ctx, "g", 1, json.RawMessage(`{"posts":[{"no":1}]}`)); err != nil {
		t.Fatalf("cache thread: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Boards != 0 || stats.Threads != 0 {
		t.Fatalf("expected empty store, got %+v", stats)
	}
}
