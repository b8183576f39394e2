package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// unknownToken marks a batch whose directory was never registered.
const unknownToken Token = -1

// fsnotifyBackend implements Backend using fsnotify.
//
// fsnotify keys watches by path, so tokens are issued here: every Add call
// yields a fresh token and the directory maps to the newest one.
type fsnotifyBackend struct {
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu   sync.Mutex // protects dirs and next
	dirs map[string]Token
	next Token

	// held are raw events read while assembling a batch for another directory.
	held []fsnotify.Event
	// pending are ready batches, used for overflow fan-out.
	pending []Batch
}

// newFsnotifyBackend creates a backend using fsnotify
func newFsnotifyBackend(logger *slog.Logger) (Backend, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &fsnotifyBackend{
		logger:  logger,
		watcher: w,
		dirs:    make(map[string]Token),
	}, nil
}

// Add watches a single directory.
func (b *fsnotifyBackend) Add(dir string) (Token, error) {
	dir = filepath.Clean(dir)
	if err := b.watcher.Add(dir); err != nil {
		if errors.Is(err, fsnotify.ErrClosed) {
			return 0, ErrClosed
		}
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.dirs[dir] = b.next
	b.logger.Debug("added watch", "path", dir, "token", int(b.next))

	return b.next, nil
}

// Wait returns the next batch: the first relevant event plus every event
// already buffered for the same directory.
func (b *fsnotifyBackend) Wait(ctx context.Context) (Batch, error) {
	for {
		if len(b.pending) > 0 {
			batch := b.pending[0]
			b.pending = b.pending[1:]
			return batch, nil
		}

		var raw fsnotify.Event
		if len(b.held) > 0 {
			raw = b.held[0]
			b.held = b.held[1:]
		} else {
			select {
			case <-ctx.Done():
				return Batch{}, ctx.Err()
			case ev, ok := <-b.watcher.Events:
				if !ok {
					return Batch{}, ErrClosed
				}
				raw = ev
			case err, ok := <-b.watcher.Errors:
				if !ok {
					return Batch{}, ErrClosed
				}
				b.handleError(err)
				continue
			}
		}

		token, ev, ok := b.translate(raw)
		if !ok {
			continue
		}

		batch := Batch{Token: token, Events: []Event{ev}}
		b.drainInto(&batch)
		return batch, nil
	}
}

// drainInto appends every already-buffered event for batch's token to it,
// held events first so each directory keeps its arrival order. Events for
// other directories are held for the next Wait.
func (b *fsnotifyBackend) drainInto(batch *Batch) {
	kept := b.held[:0]
	for _, raw := range b.held {
		if token, ev, _ := b.translate(raw); token == batch.Token {
			batch.Events = append(batch.Events, ev)
			continue
		}
		kept = append(kept, raw)
	}
	b.held = kept

	for {
		select {
		case raw, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			token, ev, relevant := b.translate(raw)
			if !relevant {
				continue
			}
			if token != batch.Token {
				b.held = append(b.held, raw)
				continue
			}
			batch.Events = append(batch.Events, ev)
		default:
			return
		}
	}
}

// translate maps an fsnotify event onto a token and an Event.
// Ops other than create and write are not relevant.
func (b *fsnotifyBackend) translate(raw fsnotify.Event) (Token, Event, bool) {
	var kind EventKind
	switch {
	case raw.Has(fsnotify.Create):
		kind = EventCreated
	case raw.Has(fsnotify.Write):
		kind = EventModified
	default:
		return 0, Event{}, false
	}

	b.mu.Lock()
	token, ok := b.dirs[filepath.Dir(raw.Name)]
	b.mu.Unlock()
	if !ok {
		token = unknownToken
	}

	return token, Event{Kind: kind, Name: filepath.Base(raw.Name)}, true
}

// handleError turns a queue overflow into overflow batches for every
// registered directory; other errors are logged and otherwise ignored.
func (b *fsnotifyBackend) handleError(err error) {
	if !errors.Is(err, fsnotify.ErrEventOverflow) {
		b.logger.Warn("file watcher error", "error", err)
		return
	}

	b.logger.Debug("fsnotify queue overflow")

	b.mu.Lock()
	seen := make(map[Token]bool, len(b.dirs))
	for _, token := range b.dirs {
		seen[token] = true
	}
	last := b.next
	b.mu.Unlock()

	for token := Token(1); token <= last; token++ {
		if seen[token] {
			b.pending = append(b.pending, overflowBatch(token))
		}
	}
}

// Close stops the watcher; a blocked Wait returns ErrClosed.
func (b *fsnotifyBackend) Close() error {
	return b.watcher.Close()
}
