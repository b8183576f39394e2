// Package sorter turns watch batches into file moves: it classifies each
// announced entry, picks a destination with the routing rules and moves the
// file there.
package sorter

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/koloyyee/java-sorter/internal/classify"
	"github.com/koloyyee/java-sorter/internal/errors"
	"github.com/koloyyee/java-sorter/internal/id"
	"github.com/koloyyee/java-sorter/internal/watcher"
)

// Source yields batches and maps their tokens back to directories.
// *watcher.Watcher satisfies it.
type Source interface {
	Next(ctx context.Context) (watcher.Batch, error)
	Resolve(token watcher.Token) (string, bool)
}

// State is the dispatcher's position in its loop.
type State int32

// Dispatcher states.
const (
	// StateIdle is waiting for the next batch.
	StateIdle State = iota
	// StateDraining is handling the events of one batch.
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Dispatcher runs the wait, drain, act loop. It handles one batch at a
// time and one event at a time within a batch, in delivery order.
type Dispatcher struct {
	source     Source
	classifier classify.Classifier
	executor   Executor
	rules      Rules
	logger     *slog.Logger

	state    atomic.Int32
	counters *counters

	// unknownDetail throttles the entry names logged for unknown tokens.
	// The drop itself is warned about for every batch.
	unknownDetail rate.Sometimes
}

// NewDispatcher creates a dispatcher. It does not start the loop.
func NewDispatcher(source Source, classifier classify.Classifier, executor Executor, rules Rules, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		source:        source,
		classifier:    classifier,
		executor:      executor,
		rules:         rules,
		logger:        logger,
		counters:      newCounters(),
		unknownDetail: rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

// Run waits for batches and dispatches them until ctx is done or the source
// is closed, both of which end the loop with a nil error. Any other wait
// error is returned. Errors while handling single events never end the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		d.setState(StateIdle)

		batch, err := d.source.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				d.logger.Info("watch interrupted, stopping", "reason", err.Error())
				return nil
			case errors.Is(err, watcher.ErrClosed):
				d.logger.Info("watch service closed, stopping")
				return nil
			default:
				return errors.Wrap(err, errors.CodeInternal, "wait for events")
			}
		}

		d.Dispatch(batch)
	}
}

// Dispatch handles every event of one batch. A batch whose token was never
// registered is dropped without touching the filesystem.
func (d *Dispatcher) Dispatch(batch watcher.Batch) {
	d.counters.batches.Add(1)
	log := d.logger.With("cycle", id.Cycle(), "token", int(batch.Token))

	dir, ok := d.source.Resolve(batch.Token)
	if !ok {
		d.counters.unknown.Add(1)
		log.Warn("dropping batch for unknown token", "events", len(batch.Events))
		d.unknownDetail.Do(func() {
			log.Warn("watch token not recognized", "names", eventNames(batch.Events))
		})
		return
	}

	d.setState(StateDraining)
	defer d.setState(StateIdle)

	for _, ev := range batch.Events {
		d.handle(log, dir, ev)
	}
}

// handle classifies, routes and moves a single entry.
func (d *Dispatcher) handle(log *slog.Logger, dir string, ev watcher.Event) {
	d.counters.events.Add(1)

	if ev.Kind == watcher.EventOverflow {
		d.counters.overflow.Add(1)
		log.Debug("event overflow, some events were lost", "dir", dir)
		return
	}

	path := filepath.Join(dir, ev.Name)
	log.Info("event", "kind", ev.Kind.String(), "path", path)

	label, err := d.classifier.Classify(path)
	if err != nil {
		d.counters.skipped.Add(1)
		log.Warn("classification failed, skipping", "path", path, "error", err)
		return
	}
	if label == "" {
		d.counters.skipped.Add(1)
		log.Debug("not a regular file, skipping", "path", path)
		return
	}

	decision, ok := Route(label, ev.Name, d.rules)
	if !ok {
		d.counters.unmatched.Add(1)
		log.Info("no rule matched, leaving file in place", "path", path, "type", label)
		return
	}

	target, err := d.executor.Move(path, decision.Dir)
	if err != nil {
		if errors.CodeOf(err).Recoverable() {
			// Typically the same file announced twice in one batch.
			d.counters.skipped.Add(1)
			log.Info("source already gone, skipping", "path", path, "code", string(errors.CodeOf(err)))
			return
		}
		d.counters.failed.Add(1)
		log.Error("move failed, leaving file in place",
			"path", path,
			"to", decision.Dir,
			"rule", string(decision.Rule),
			"code", string(errors.CodeOf(err)),
			"error", err,
		)
		return
	}

	d.counters.recordMove(decision.Dir)
	log.Info("moved",
		"from", path,
		"to", target,
		"rule", string(decision.Rule),
		"type", label,
	)
}

func eventNames(events []watcher.Event) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Kind == watcher.EventOverflow {
			continue
		}
		names = append(names, ev.Name)
	}
	return names
}

// State returns the loop's current state. Safe for concurrent use.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

func (d *Dispatcher) setState(s State) {
	d.state.Store(int32(s))
}

// Stats returns a snapshot of the counters. Safe for concurrent use.
func (d *Dispatcher) Stats() Stats {
	return d.counters.snapshot()
}
