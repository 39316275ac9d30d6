// Package filters hides catalog threads matching per-board keyword rules.
//
// Filters are persisted as a single JSON file keyed by board code. Each rule
// matches against the thread subject, the comment (with HTML markup removed),
// or both, either as a plain substring or a regular expression.
package filters
