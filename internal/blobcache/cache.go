package blobcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"chanmirror/internal/config"
	"chanmirror/internal/logging"
)

// evictTargetRatio is the fill level eviction drains the cache down to once
// the size bound has been exceeded.
const evictTargetRatio = 0.8

// Downloader fetches remote image files. *fourchan.Client satisfies it.
type Downloader interface {
	DownloadFile(ctx context.Context, url, destPath string) error
	ThumbnailURL(board string, tim int64) string
	ImageURL(board string, tim int64, ext string) string
}

// Cache is the size-bounded on-disk store for thumbnails and on-demand full
// images. Access times live only in memory: after a restart every file looks
// untouched and becomes an early eviction candidate, which is accepted.
type Cache struct {
	root      string
	thumbsDir string
	tempDir   string
	maxBytes  int64
	client    Downloader
	logger    *slog.Logger
	statfs    statfsFunc

	mu          sync.Mutex
	accessTimes map[string]time.Time
	pending     map[string]struct{}
	wg          sync.WaitGroup
}

// New builds the blob cache rooted at the configured cache directory and
// creates the thumbs/ and temp/ subtrees.
func New(cfg *config.Config, client Downloader, logger *slog.Logger) (*Cache, error) {
	if client == nil {
		return nil, errors.New("blobcache requires a downloader")
	}
	root := cfg.Paths.CacheDir
	c := &Cache{
		root:        root,
		thumbsDir:   filepath.Join(root, "thumbs"),
		tempDir:     filepath.Join(root, "temp"),
		maxBytes:    int64(cfg.Cache.MaxSizeMB) * 1024 * 1024,
		client:      client,
		logger:      logging.NewComponentLogger(logger, "blobcache"),
		statfs:      realStatfs,
		accessTimes: make(map[string]time.Time),
		pending:     make(map[string]struct{}),
	}
	for _, dir := range []string{c.thumbsDir, c.tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}
	return c, nil
}

// Thumbnail returns the local path of a post's thumbnail, downloading it on a
// miss. With async set, a miss queues a detached background download instead
// and reports absent immediately.
func (c *Cache) Thumbnail(ctx context.Context, board string, tim int64, async bool) (string, bool) {
	dest := filepath.Join(c.thumbsDir, board, fmt.Sprintf("%ds.jpg", tim))
	if c.hit(dest) {
		return dest, true
	}

	url := c.client.ThumbnailURL(board, tim)
	if async {
		c.queueDownload(url, dest)
		return "", false
	}
	if err := c.download(ctx, url, dest); err != nil {
		return "", false
	}
	return dest, true
}

// Image returns the local path of a post's full image, downloading it into
// the temp cache on a miss.
func (c *Cache) Image(ctx context.Context, board string, tim int64, ext string) (string, bool) {
	dest := filepath.Join(c.tempDir, board, fmt.Sprintf("%d%s", tim, ext))
	if c.hit(dest) {
		return dest, true
	}
	if err := c.download(ctx, c.client.ImageURL(board, tim, ext), dest); err != nil {
		return "", false
	}
	return dest, true
}

// hit reports whether dest already holds a complete file, refreshing its
// access time when it does.
func (c *Cache) hit(dest string) bool {
	if _, err := os.Stat(dest); err != nil {
		return false
	}
	c.touch(dest)
	return true
}

func (c *Cache) touch(path string) {
	c.mu.Lock()
	c.accessTimes[path] = time.Now()
	c.mu.Unlock()
}

func (c *Cache) download(ctx context.Context, url, dest string) error {
	if err := c.client.DownloadFile(ctx, url, dest); err != nil {
		c.logger.Warn("download failed",
			logging.String(logging.FieldURL, url),
			logging.Error(err))
		return err
	}
	c.touch(dest)
	c.checkSize()
	return nil
}

// queueDownload hands a miss to a background goroutine. At most one download
// per destination path is in flight; later requests for the same path are
// dropped until it settles.
func (c *Cache) queueDownload(url, dest string) {
	c.mu.Lock()
	if _, inFlight := c.pending[dest]; inFlight {
		c.mu.Unlock()
		return
	}
	c.pending[dest] = struct{}{}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.download(context.Background(), url, dest)
		c.mu.Lock()
		delete(c.pending, dest)
		c.mu.Unlock()
	}()
}

// Flush blocks until queued background downloads settle. Used by tests and
// shutdown; steady-state operation never waits on it.
func (c *Cache) Flush() {
	c.wg.Wait()
}

// checkSize runs eviction when the cache has outgrown its bound. Size is
// summed from disk on every check; the filesystem is the source of truth.
func (c *Cache) checkSize() {
	files, total, err := c.scan()
	if err != nil {
		c.logger.Warn("cache scan failed", logging.Error(err))
		return
	}
	if total <= c.maxBytes {
		return
	}
	c.evict(files, total)
}

type cachedFile struct {
	path       string
	size       int64
	lastAccess time.Time
}

// scan walks the cache tree collecting file sizes and recorded access times.
// Files never accessed in this process get the zero time, sorting them first.
func (c *Cache) scan() ([]cachedFile, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var files []cachedFile
	var total int64
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, cachedFile{
			path:       path,
			size:       info.Size(),
			lastAccess: c.accessTimes[path],
		})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walk cache: %w", err)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].lastAccess.Before(files[j].lastAccess)
	})
	return files, total, nil
}

// evict deletes least-recently-accessed files until total size drops to the
// eviction target. Deletion failures are logged and skipped.
func (c *Cache) evict(files []cachedFile, total int64) {
	target := int64(float64(c.maxBytes) * evictTargetRatio)
	for _, file := range files {
		if total <= target {
			break
		}
		if err := os.Remove(file.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("evict failed",
				logging.String(logging.FieldPath, file.path),
				logging.Error(err))
			continue
		}
		c.mu.Lock()
		delete(c.accessTimes, file.path)
		c.mu.Unlock()
		total -= file.size
		c.logger.Debug("evicted file",
			logging.String(logging.FieldPath, file.path),
			logging.Int64("size_bytes", file.size))
	}
}

// CleanupExpired removes files whose recorded access time is older than
// maxAge and returns how many were deleted. Files with no recorded access
// (for example after a restart) count as stale.
func (c *Cache) CleanupExpired(maxAge time.Duration) int {
	files, _, err := c.scan()
	if err != nil {
		c.logger.Warn("cache scan failed", logging.Error(err))
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, file := range files {
		if !file.lastAccess.Before(cutoff) {
			continue
		}
		if err := os.Remove(file.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		c.mu.Lock()
		delete(c.accessTimes, file.path)
		c.mu.Unlock()
		deleted++
	}
	if deleted > 0 {
		c.logger.Info("expiry sweep removed files", logging.Int("deleted", deleted))
	}
	return deleted
}

// ClearAll deletes the whole cache tree, forgets all access times, and
// recreates the two subdirectory roots.
func (c *Cache) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("list cache root: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(c.root, entry.Name())); err != nil {
			return fmt.Errorf("remove %q: %w", entry.Name(), err)
		}
	}
	c.accessTimes = make(map[string]time.Time)

	for _, dir := range []string{c.thumbsDir, c.tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("recreate cache directory %q: %w", dir, err)
		}
	}
	return nil
}
