// Package watcher registers a directory with the operating system's file
// notification facility and hands out batches of created and modified events.
//
// Only the registered directory itself is observed; subdirectories are not
// walked or watched.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/koloyyee/java-sorter/internal/errors"
)

// Watcher owns a notification backend and the registry of what it watches.
type Watcher struct {
	backend  Backend
	registry *Registry
	logger   *slog.Logger
	opts     Options
}

// New creates a watcher on the backend selected by opts.Backend.
//   - inotify: Linux only, blocks in poll(2) on the inotify descriptor.
//   - fsnotify: portable, consumes the fsnotify event channels.
//   - auto: inotify on Linux, fsnotify elsewhere.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	var backend Backend
	var err error

	switch opts.Backend {
	case BackendInotify:
		backend, err = newInotifyBackend(logger)
	case BackendFsnotify:
		backend, err = newFsnotifyBackend(logger)
	case BackendAuto:
		if runtime.GOOS == "linux" {
			backend, err = newInotifyBackend(logger)
		} else {
			backend, err = newFsnotifyBackend(logger)
		}
	default:
		return nil, errors.Validation(fmt.Sprintf("unknown watch backend %q", opts.Backend))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	logger.Debug("watch backend ready", "backend", opts.Backend, "platform", runtime.GOOS)

	return NewWithBackend(logger, backend, opts), nil
}

// NewWithBackend creates a watcher on an existing backend.
func NewWithBackend(logger *slog.Logger, backend Backend, opts Options) *Watcher {
	opts.setDefaults()
	return &Watcher{
		backend:  backend,
		registry: NewRegistry(),
		logger:   logger,
		opts:     opts,
	}
}

// Register starts watching dir for created and modified entries.
// It fails with a registration error when dir is missing, is not a
// directory, or the backend refuses the watch.
func (w *Watcher) Register(dir string) (Token, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeRegistration, "resolve %s", dir)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeRegistration, "stat %s", abs)
	}
	if !info.IsDir() {
		return 0, errors.Registrationf("%s is not a directory", abs)
	}

	token, err := w.backend.Add(abs)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeRegistration, "watch %s", abs)
	}

	if prev, ok := w.registry.Lookup(abs); ok {
		w.logger.Info("updating", "dir", abs, "previous_token", int(prev), "token", int(token))
	} else {
		w.logger.Info("registering", "dir", abs, "token", int(token))
	}
	w.registry.Put(token, abs)

	return token, nil
}

// Resolve returns the directory registered under token.
func (w *Watcher) Resolve(token Token) (string, bool) {
	return w.registry.Resolve(token)
}

// Registry exposes the token map, read-only by convention.
func (w *Watcher) Registry() *Registry {
	return w.registry
}

// Next blocks until a batch with at least one relevant event is available.
// Entries matching the ignore options are dropped, with an info line, before
// the batch is returned; overflow events are always kept. The zero Options
// drop nothing.
func (w *Watcher) Next(ctx context.Context) (Batch, error) {
	for {
		batch, err := w.backend.Wait(ctx)
		if err != nil {
			return Batch{}, err
		}

		kept := batch.Events[:0]
		for _, ev := range batch.Events {
			if ev.Kind != EventOverflow && w.opts.shouldIgnore(ev.Name) {
				w.logger.Info("ignoring entry", "name", ev.Name, "kind", ev.Kind.String(), "token", int(batch.Token))
				continue
			}
			kept = append(kept, ev)
		}
		batch.Events = kept

		if !batch.Empty() {
			return batch, nil
		}
	}
}

// Close stops the backend. Pending and future Next calls return ErrClosed.
func (w *Watcher) Close() error {
	return w.backend.Close()
}
