// Package daemon hosts the long-running process: the local HTTP API, the
// periodic cache sweep, and the single-instance lock.
package daemon
