//go:build !linux

package watcher

import (
	"fmt"
	"log/slog"
	"runtime"
)

// newInotifyBackend is a stub that should never be called on non-Linux platforms
// It exists only to satisfy the compiler when watcher.go references it
func newInotifyBackend(_ *slog.Logger) (Backend, error) {
	return nil, fmt.Errorf("inotify backend not available on %s", runtime.GOOS)
}
