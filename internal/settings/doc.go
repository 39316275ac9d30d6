// Package settings persists user preferences as a JSON object, merging
// saved values over built-in defaults on every read.
package settings
