// Package instance keeps two sorters from watching the same source directory.
//
// The lock file lives in the user cache directory rather than in the watched
// directory so that creating it never produces an event.
package instance

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/koloyyee/java-sorter/internal/errors"
)

// Lock is an advisory file lock keyed by source directory.
type Lock struct {
	source string
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// PathFor returns the lock file path for source inside dir. The name is a
// SHA1 name-based UUID of the source, so it is stable across runs.
func PathFor(dir, source string) string {
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.Clean(source)))
	return filepath.Join(dir, "sorter-"+name.String()+".lock")
}

// New creates a lock for source stored in dir. Nothing is locked yet.
func New(dir, source string, logger *slog.Logger) *Lock {
	path := PathFor(dir, source)
	return &Lock{
		source: source,
		path:   path,
		lock:   flock.New(path),
		logger: logger,
	}
}

// Default creates a lock for source in the user cache directory.
func Default(source string, logger *slog.Logger) (*Lock, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStartup, "locate cache directory")
	}
	return New(filepath.Join(cache, "sorter"), source, logger), nil
}

// Acquire takes the lock without blocking. It fails with a locked error when
// another process holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrapf(err, errors.CodeStartup, "create lock directory")
	}

	ok, err := l.lock.TryLock()
	if err != nil {
		return errors.Wrapf(err, errors.CodeStartup, "acquire lock %s", l.path)
	}
	if !ok {
		return errors.Lockedf("another sorter is already watching %s (lock %s)", l.source, l.path)
	}

	l.logger.Debug("instance lock acquired", "lock", l.path, "source", l.source)
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	l.logger.Debug("instance lock released", "lock", l.path)
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}
