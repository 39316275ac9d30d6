// Package logging builds the slog loggers used across chanmirror and
// standardizes attribute names so cache, client, and server logs stay
// queryable. Console output is used on terminals, JSON elsewhere.
package logging
