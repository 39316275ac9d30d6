// Package metastore caches remote API responses in a local SQLite database.
//
// Two record kinds are held: the board directory, replaced wholesale on each
// refresh so readers never see a mixed set, and per-thread JSON snapshots
// with a configurable TTL. Board rows use a fixed one hour TTL since the
// directory rarely changes. Callers may read expired board rows explicitly as
// a stale fallback when a live refresh has failed.
package metastore
