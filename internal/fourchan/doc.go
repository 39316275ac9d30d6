// Package fourchan is the client for the remote imageboard's read-only JSON
// API and image host.
//
// Every outbound request passes through one shared minimum-interval rate
// gate, so concurrent callers are spaced out rather than bursting. JSON
// fetches retry transient failures with a fixed backoff; a 404 is final and
// maps to ErrNotFound. Binary downloads land via a temp file so a partially
// written file is never visible at the destination path.
package fourchan
