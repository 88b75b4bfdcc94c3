package publish

import (
	"context"
	"errors"
	"io"
	"io/fs"
)

// Transport writes into the base location of one target. Paths are slash-separated and
// relative to that base.
type Transport interface {
	// Connect prepares the transport. Remote transports authenticate here.
	Connect(ctx context.Context) error
	// Clean removes everything inside the base location but keeps the location itself.
	// It stops at the first entry that cannot be removed.
	Clean(ctx context.Context) error
	// MakeDir creates rel and any missing parents.
	MakeDir(ctx context.Context, rel string) error
	// Upload writes r to rel, creating missing parents.
	Upload(ctx context.Context, rel string, r io.Reader) error
	// Close releases the transport. It is safe to call more than once and before Connect.
	Close() error
	// Describe names the base location for logs and errors.
	Describe() string
}

// failedPath extracts the path of a failed file operation, falling back to def.
func failedPath(err error, def string) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Path
	}

	return def
}
