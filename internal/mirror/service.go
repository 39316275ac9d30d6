package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chanmirror/internal/blobcache"
	"chanmirror/internal/config"
	"chanmirror/internal/filters"
	"chanmirror/internal/fourchan"
	"chanmirror/internal/history"
	"chanmirror/internal/logging"
	"chanmirror/internal/metastore"
	"chanmirror/internal/settings"
)

// Service coordinates the remote client with the metadata and blob caches and
// applies filters, history tracking, and user settings on top.
type Service struct {
	cfg      *config.Config
	client   *fourchan.Client
	meta     *metastore.Store
	blobs    *blobcache.Cache
	filters  *filters.Manager
	history  *history.Manager
	settings *settings.Manager
	logger   *slog.Logger
}

// New wires a Service from its already-constructed parts.
func New(
	cfg *config.Config,
	client *fourchan.Client,
	meta *metastore.Store,
	blobs *blobcache.Cache,
	filterMgr *filters.Manager,
	historyMgr *history.Manager,
	settingsMgr *settings.Manager,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		client:   client,
		meta:     meta,
		blobs:    blobs,
		filters:  filterMgr,
		history:  historyMgr,
		settings: settingsMgr,
		logger:   logging.NewComponentLogger(logger, "mirror"),
	}
}

// Filters exposes the filter manager for the API and CLI layers.
func (s *Service) Filters() *filters.Manager { return s.filters }

// History exposes the history manager for the API and CLI layers.
func (s *Service) History() *history.Manager { return s.history }

// Settings exposes the settings manager for the API and CLI layers.
func (s *Service) Settings() *settings.Manager { return s.settings }

// Boards returns the board directory, serving the cached copy while fresh
// and falling back to a stale copy when the remote is unreachable.
func (s *Service) Boards(ctx context.Context) ([]fourchan.Board, error) {
	cached, err := s.meta.CachedBoards(ctx, false)
	if err != nil {
		s.logger.Warn("board cache read failed", logging.Error(err))
	}
	if len(cached) > 0 {
		return boardRowsToBoards(cached), nil
	}

	boards, fetchErr := s.client.FetchBoards(ctx)
	if fetchErr == nil {
		if err := s.meta.CacheBoards(ctx, boards); err != nil {
			s.logger.Warn("failed to cache boards", logging.Error(err))
		}
		return boards, nil
	}

	stale, err := s.meta.CachedBoards(ctx, true)
	if err == nil && len(stale) > 0 {
		s.logger.Warn("serving stale board list", logging.Error(fetchErr))
		return boardRowsToBoards(stale), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, fetchErr)
}

func boardRowsToBoards(rows []metastore.BoardRow) []fourchan.Board {
	boards := make([]fourchan.Board, len(rows))
	for i, row := range rows {
		boards[i] = fourchan.Board{Code: row.Code, Title: row.Title, Worksafe: row.Worksafe}
	}
	return boards
}

// Catalog fetches a board's catalog live, applies the board's filters, and
// queues thumbnail prefetches for the visible threads.
func (s *Service) Catalog(ctx context.Context, board string) ([]fourchan.CatalogThread, error) {
	threads, err := s.client.FetchCatalog(ctx, board)
	if err != nil {
		return nil, err
	}

	visible := filters.Apply(threads, s.filters.BoardFilters(board))
	s.prefetchCatalogThumbs(board, visible)
	return visible, nil
}

func (s *Service) prefetchCatalogThumbs(board string, threads []fourchan.CatalogThread) {
	limit := s.cfg.Cache.PrefetchLimit
	queued := 0
	for _, thread := range threads {
		if queued >= limit {
			break
		}
		if thread.Tim == 0 {
			continue
		}
		s.blobs.Thumbnail(context.Background(), board, thread.Tim, true)
		queued++
	}
}

// Thread returns a thread's full payload, from the metadata cache when fresh
// and from the remote otherwise. The visit is recorded in the history either
// way. Expired threads are refetched, never served stale, since a pruned
// thread returning 404 must surface to the caller.
func (s *Service) Thread(ctx context.Context, board string, threadID int64) (*fourchan.Thread, error) {
	if raw, err := s.meta.CachedThread(ctx, board, threadID); err != nil {
		s.logger.Warn("thread cache read failed", logging.Error(err))
	} else if raw != nil {
		thread, err := fourchan.ParseThread(raw)
		if err == nil {
			s.recordVisit(board, threadID, thread.Title())
			return thread, nil
		}
		s.logger.Warn("corrupt cached thread, refetching",
			logging.String(logging.FieldBoard, board),
			logging.Int64(logging.FieldThreadID, threadID),
			logging.Error(err))
	}

	thread, err := s.client.FetchThread(ctx, board, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.meta.CacheThread(ctx, board, threadID, thread.Raw); err != nil {
		s.logger.Warn("failed to cache thread", logging.Error(err))
	}
	s.recordVisit(board, threadID, thread.Title())
	s.prefetchThreadThumbs(board, thread)
	return thread, nil
}

func (s *Service) recordVisit(board string, threadID int64, title string) {
	if err := s.history.Add(board, threadID, title); err != nil {
		s.logger.Warn("failed to record history entry", logging.Error(err))
	}
}

func (s *Service) prefetchThreadThumbs(board string, thread *fourchan.Thread) {
	for _, post := range thread.Posts {
		if post.Tim == 0 {
			continue
		}
		s.blobs.Thumbnail(context.Background(), board, post.Tim, true)
	}
}

// ImagePath resolves an image filename to a local cache path, downloading it
// on a miss. Filenames ending in "s.jpg" are thumbnails; everything else is
// a full-size image.
func (s *Service) ImagePath(ctx context.Context, board, filename string) (string, error) {
	tim, ext, thumb, err := splitImageName(filename)
	if err != nil {
		return "", err
	}

	var path string
	var ok bool
	if thumb {
		path, ok = s.blobs.Thumbnail(ctx, board, tim, false)
	} else {
		path, ok = s.blobs.Image(ctx, board, tim, ext)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnavailable, board, filename)
	}
	return path, nil
}

// DownloadImage saves a full-size image into the downloads directory. It
// refuses unless the user has enabled downloads in settings.
func (s *Service) DownloadImage(ctx context.Context, board, filename string) (string, error) {
	if !s.settings.DownloadsEnabled() {
		return "", ErrDownloadsDisabled
	}
	tim, ext, thumb, err := splitImageName(filename)
	if err != nil {
		return "", err
	}
	if thumb {
		return "", fmt.Errorf("%w: cannot download a thumbnail", ErrBadFilename)
	}

	dest := filepath.Join(s.cfg.Paths.DownloadsDir, board, filename)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	if err := s.client.DownloadFile(ctx, s.client.ImageURL(board, tim, ext), dest); err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	s.logger.Info("saved image",
		logging.String(logging.FieldBoard, board),
		logging.String(logging.FieldPath, dest))
	return dest, nil
}

// splitImageName parses a remote image filename into its timestamp and
// extension. Thumbnails are always named <tim>s.jpg.
func splitImageName(filename string) (tim int64, ext string, thumb bool, err error) {
	if strings.ContainsAny(filename, `/\`) || filename == "" {
		return 0, "", false, ErrBadFilename
	}
	if strings.HasSuffix(filename, "s.jpg") {
		digits := strings.TrimSuffix(filename, "s.jpg")
		if tim, err = strconv.ParseInt(digits, 10, 64); err == nil {
			return tim, "", true, nil
		}
	}
	ext = filepath.Ext(filename)
	if ext == "" || ext == filename {
		return 0, "", false, ErrBadFilename
	}
	tim, err = strconv.ParseInt(strings.TrimSuffix(filename, ext), 10, 64)
	if err != nil {
		return 0, "", false, ErrBadFilename
	}
	return tim, ext, false, nil
}

// CacheStats aggregates metadata and blob cache usage for the stats surfaces.
type CacheStats struct {
	Meta  metastore.Stats `json:"metadata"`
	Blobs blobcache.Stats `json:"files"`
}

// Stats reports combined cache usage.
func (s *Service) Stats(ctx context.Context) (CacheStats, error) {
	meta, err := s.meta.Stats(ctx)
	if err != nil {
		return CacheStats{}, fmt.Errorf("metadata stats: %w", err)
	}
	blobs, err := s.blobs.Stats()
	if err != nil {
		return CacheStats{}, fmt.Errorf("file stats: %w", err)
	}
	return CacheStats{Meta: meta, Blobs: blobs}, nil
}

// ClearCaches empties both the metadata and blob caches.
func (s *Service) ClearCaches(ctx context.Context) error {
	if err := s.meta.Clear(ctx); err != nil {
		return fmt.Errorf("clear metadata cache: %w", err)
	}
	if err := s.blobs.ClearAll(); err != nil {
		return fmt.Errorf("clear file cache: %w", err)
	}
	s.logger.Info("caches cleared")
	return nil
}

// Sweep removes expired metadata rows and blob files that have not been
// touched within the configured maximum age. It returns how many of each
// were removed.
func (s *Service) Sweep(ctx context.Context) (metaRows int64, blobFiles int, err error) {
	metaRows, err = s.meta.CleanupExpired(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("expire metadata: %w", err)
	}
	maxAge := time.Duration(s.cfg.Cache.MaxAgeHours) * time.Hour
	blobFiles = s.blobs.CleanupExpired(maxAge)
	if metaRows > 0 || blobFiles > 0 {
		s.logger.Info("cache sweep complete",
			logging.Int64("metadata_rows", metaRows),
			logging.Int("files", blobFiles))
	}
	return metaRows, blobFiles, nil
}

// Health reports daemon liveness and whether the remote API answers.
type Health struct {
	Status          string `json:"status"`
	RemoteReachable bool   `json:"remote_reachable"`
}

// CheckHealth probes the remote API.
func (s *Service) CheckHealth(ctx context.Context) Health {
	return Health{
		Status:          "ok",
		RemoteReachable: s.client.CheckHealth(ctx),
	}
}

// Flush waits for all queued background downloads to finish.
func (s *Service) Flush() {
	s.blobs.Flush()
}
