// Package blobcache is the size-bounded on-disk cache for thumbnails and
// on-demand full images.
//
// Layout under the cache root is thumbs/<board>/<tim>s.jpg and
// temp/<board>/<tim><ext>. Misses are filled read-through, synchronously or
// via detached background downloads deduplicated per destination path. After
// each successful download the total on-disk size is compared against the
// configured bound; when exceeded, the least recently accessed files are
// deleted until usage falls to 80% of the bound. A separate sweep removes
// files unaccessed for a configurable age. Access times are tracked in memory
// only, so a restart resets LRU ordering; that approximation is intentional.
package blobcache
