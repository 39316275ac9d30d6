// Package history tracks recently visited threads in a capped,
// most-recent-first list persisted as a JSON file.
package history
