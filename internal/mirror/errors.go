package mirror

import "errors"

var (
	// ErrUnavailable means the remote could not be reached and no cached
	// copy exists to serve instead.
	ErrUnavailable = errors.New("remote unavailable and no cached copy")

	// ErrDownloadsDisabled means the user has not enabled image downloads.
	ErrDownloadsDisabled = errors.New("image downloads are disabled in settings")

	// ErrBadFilename means an image filename could not be parsed into a
	// timestamp and extension.
	ErrBadFilename = errors.New("malformed image filename")
)
