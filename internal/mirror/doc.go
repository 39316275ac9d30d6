// Package mirror orchestrates the remote client, the metadata cache, and the
// file cache into the operations the API and CLI expose: board and thread
// reads with cache fallback, filtered catalogs, image resolution, downloads,
// and cache maintenance.
package mirror
