package blobcache

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	blockSize := uint64(stat.Bsize)
	return stat.Blocks * blockSize, stat.Bavail * blockSize, nil
}

// Stats describes current blob cache usage.
type Stats struct {
	FileCount    int     `json:"total_files"`
	TotalSizeMB  float64 `json:"total_size_mb"`
	ThumbCount   int     `json:"thumbnails"`
	ImageCount   int     `json:"temp_images"`
	MaxSizeMB    int64   `json:"max_size_mb"`
	FreeBytes    uint64  `json:"free_bytes"`
	TotalFSBytes uint64  `json:"total_fs_bytes"`
}

// Stats walks the cache tree and reports usage plus filesystem free space.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats
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
		stats.FileCount++
		stats.TotalSizeMB += float64(info.Size())
		if strings.HasPrefix(path, c.thumbsDir+string(filepath.Separator)) {
			stats.ThumbCount++
		} else {
			stats.ImageCount++
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("walk cache: %w", err)
	}

	stats.TotalSizeMB = math.Round(stats.TotalSizeMB/(1024*1024)*100) / 100
	stats.MaxSizeMB = c.maxBytes / (1024 * 1024)

	totalFS, freeFS, err := c.statfs(c.root)
	if err != nil {
		return Stats{}, fmt.Errorf("statfs: %w", err)
	}
	stats.TotalFSBytes = totalFS
	stats.FreeBytes = freeFS
	return stats, nil
}
