package tokenstore

import (
	"context"
	"errors"
)

// ErrNoSession is returned by a Backend when no session blob has been
// persisted yet.
var ErrNoSession = errors.New("no persisted session")

// Backend persists the single session blob. Implementations must treat
// the blob as opaque bytes; there is exactly one persisted representation
// of the session and every component reads and writes it through Store.
type Backend interface {
	// Load returns the last-persisted blob, or ErrNoSession.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the persisted blob atomically.
	Save(ctx context.Context, blob []byte) error
	// Delete removes the persisted blob. Deleting an absent blob is not
	// an error.
	Delete(ctx context.Context) error
}
