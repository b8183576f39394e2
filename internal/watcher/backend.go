package watcher

import (
	"context"
	"errors"
)

// ErrClosed is returned by Backend.Wait once the backend has been closed.
var ErrClosed = errors.New("watcher closed")

// Backend defines the platform-specific notification facility.
type Backend interface {
	// Add registers a single directory (not recursively) for created and
	// modified notifications and returns its token.
	Add(dir string) (Token, error)

	// Wait blocks until some token has at least one pending event and returns
	// that batch. It has no timeout. It returns ctx.Err() when the context is
	// cancelled and ErrClosed after Close.
	Wait(ctx context.Context) (Batch, error)

	// Close releases the notification facility.
	Close() error
}
