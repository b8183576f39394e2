package sorter

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koloyyee/java-sorter/internal/classify"
	"github.com/koloyyee/java-sorter/internal/errors"
	"github.com/koloyyee/java-sorter/internal/watcher"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"

// fakeSource replays batches, then blocks until ctx is done or returns err.
type fakeSource struct {
	mu      sync.Mutex
	batches []watcher.Batch
	dirs    map[watcher.Token]string
	err     error
}

func (s *fakeSource) Next(ctx context.Context) (watcher.Batch, error) {
	s.mu.Lock()
	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return batch, nil
	}
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return watcher.Batch{}, err
	}
	<-ctx.Done()
	return watcher.Batch{}, ctx.Err()
}

func (s *fakeSource) Resolve(token watcher.Token) (string, bool) {
	dir, ok := s.dirs[token]
	return dir, ok
}

type testEnv struct {
	src     string
	desktop string
	images  string
	source  *fakeSource
	logs    *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	desktop := t.TempDir()
	src := t.TempDir()
	return &testEnv{
		src:     src,
		desktop: desktop,
		images:  filepath.Join(desktop, ImagesDirName),
		source:  &fakeSource{dirs: map[watcher.Token]string{1: src}},
		logs:    &bytes.Buffer{},
	}
}

func (e *testEnv) dispatcher(rules Rules) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(e.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewDispatcher(e.source, classify.Chain{classify.Magic{}, classify.Extension{}}, NewMover(logger), rules, logger)
}

// scriptedBackend is a watcher.Backend that hands out queued batches under
// the token of the single directory it was given.
type scriptedBackend struct {
	mu      sync.Mutex
	batches []watcher.Batch
}

func (b *scriptedBackend) Add(string) (watcher.Token, error) { return 1, nil }

func (b *scriptedBackend) Wait(ctx context.Context) (watcher.Batch, error) {
	b.mu.Lock()
	if len(b.batches) > 0 {
		batch := b.batches[0]
		b.batches = b.batches[1:]
		b.mu.Unlock()
		return batch, nil
	}
	b.mu.Unlock()
	<-ctx.Done()
	return watcher.Batch{}, ctx.Err()
}

func (b *scriptedBackend) Close() error { return nil }

// failingMover returns err for every move.
type failingMover struct {
	err error
}

func (m failingMover) Move(string, string) (string, error) { return "", m.err }

func created(names ...string) []watcher.Event {
	events := make([]watcher.Event, 0, len(names))
	for _, name := range names {
		events = append(events, watcher.Event{Kind: watcher.EventCreated, Name: name})
	}
	return events
}

func TestDispatch_ImageToDesktopImages(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.src, "photo.png"), pngHeader)

	d := env.dispatcher(Rules{ImagesDir: env.images})
	d.Dispatch(watcher.Batch{Token: 1, Events: created("photo.png")})

	assert.FileExists(t, filepath.Join(env.images, "photo.png"))
	assert.NoFileExists(t, filepath.Join(env.src, "photo.png"))

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.Moved)
	assert.Equal(t, int64(1), stats.ByDestination[env.images])
	assert.Contains(t, env.logs.String(), "msg=event")
	assert.Contains(t, env.logs.String(), "kind=created")
	assert.Contains(t, env.logs.String(), "msg=\"moving file\"")
}

func TestDispatch_KeywordBucket(t *testing.T) {
	env := newTestEnv(t)
	out := t.TempDir()
	writeFile(t, filepath.Join(env.src, "CST_report.txt"), "quarterly numbers")

	d := env.dispatcher(Rules{Destination: out, Keyword: "CST", ImagesDir: env.images})
	d.Dispatch(watcher.Batch{Token: 1, Events: created("CST_report.txt")})

	assert.FileExists(t, filepath.Join(out, "CST", "CST_report.txt"))
	assert.NoFileExists(t, filepath.Join(env.src, "CST_report.txt"))
}

func TestDispatch_ExplicitDestination(t *testing.T) {
	env := newTestEnv(t)
	out := t.TempDir()
	writeFile(t, filepath.Join(env.src, "notes.txt"), "notes")
	writeFile(t, filepath.Join(env.src, "photo.png"), pngHeader)

	d := env.dispatcher(Rules{Destination: out, Keyword: "CST", ImagesDir: env.images})
	d.Dispatch(watcher.Batch{Token: 1, Events: created("notes.txt", "photo.png")})

	assert.FileExists(t, filepath.Join(out, "notes.txt"))
	assert.FileExists(t, filepath.Join(out, "photo.png"))
	assert.NoDirExists(t, env.images)
	assert.Equal(t, int64(2), d.Stats().Moved)
}

func TestDispatch_OverflowIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.src, "photo.png"), pngHeader)

	d := env.dispatcher(Rules{ImagesDir: env.images})
	d.Dispatch(watcher.Batch{Token: 1, Events: []watcher.Event{{Kind: watcher.EventOverflow}}})

	assert.FileExists(t, filepath.Join(env.src, "photo.png"))
	assert.NoDirExists(t, env.images)

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.Overflow)
	assert.Equal(t, int64(0), stats.Moved)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestDispatch_DuplicateEventsMoveOnce(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.src, "photo.png"), pngHeader)

	d := env.dispatcher(Rules{ImagesDir: env.images})
	d.Dispatch(watcher.Batch{Token: 1, Events: []watcher.Event{
		{Kind: watcher.EventCreated, Name: "photo.png"},
		{Kind: watcher.EventModified, Name: "photo.png"},
	}})

	assert.FileExists(t, filepath.Join(env.images, "photo.png"))

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.Events)
	assert.Equal(t, int64(1), stats.Moved)
	// The second event finds nothing to classify.
	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestDispatch_MissingAncestorLeavesSource(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.src, "photo.png"), pngHeader)
	writeFile(t, filepath.Join(env.src, "second.png"), pngHeader)
	nested := filepath.Join(env.desktop, "missing", ImagesDirName)

	d := env.dispatcher(Rules{ImagesDir: nested})
	d.Dispatch(watcher.Batch{Token: 1, Events: created("photo.png", "second.png")})

	assert.FileExists(t, filepath.Join(env.src, "photo.png"))
	assert.FileExists(t, filepath.Join(env.src, "second.png"))

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.Failed, "a failure must not stop the batch")
	assert.Contains(t, env.logs.String(), "move failed")
	assert.Contains(t, env.logs.String(), string(errors.CodeDirectoryCreation))
}

func TestDispatch_UnmatchedLeftInPlace(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.src, "readme.txt"), "text")

	d := env.dispatcher(Rules{ImagesDir: env.images})
	d.Dispatch(watcher.Batch{Token: 1, Events: created("readme.txt")})

	assert.FileExists(t, filepath.Join(env.src, "readme.txt"))
	assert.Equal(t, int64(1), d.Stats().Unmatched)
	assert.Contains(t, env.logs.String(), "no rule matched")
}

func TestDispatch_DirectoryEntrySkipped(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Mkdir(filepath.Join(env.src, "album"), 0o755))

	d := env.dispatcher(Rules{Destination: t.TempDir()})
	d.Dispatch(watcher.Batch{Token: 1, Events: created("album")})

	assert.DirExists(t, filepath.Join(env.src, "album"))
	assert.Equal(t, int64(1), d.Stats().Skipped)
}

func TestDispatch_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.src, "photo.png"), pngHeader)

	d := env.dispatcher(Rules{ImagesDir: env.images})
	for range 3 {
		d.Dispatch(watcher.Batch{Token: 42, Events: created("photo.png")})
	}

	assert.FileExists(t, filepath.Join(env.src, "photo.png"))
	assert.Equal(t, int64(3), d.Stats().Unknown)
	assert.Equal(t, int64(0), d.Stats().Events)

	logs := env.logs.String()
	assert.Equal(t, 3, strings.Count(logs, `level=WARN msg="dropping batch for unknown token"`),
		"every dropped batch is warned about")
	assert.Equal(t, 1, strings.Count(logs, `msg="watch token not recognized"`),
		"the entry names are rate limited")
	assert.Contains(t, logs, "names=[photo.png]")
}

func TestDispatch_ClassificationErrorSkipsFile(t *testing.T) {
	env := newTestEnv(t)
	out := t.TempDir()
	writeFile(t, filepath.Join(env.src, "bad.txt"), "unreadable")
	writeFile(t, filepath.Join(env.src, "good.txt"), "fine")

	fallback := classify.Chain{classify.Magic{}, classify.Extension{}}
	classifier := classify.Func(func(path string) (string, error) {
		if filepath.Base(path) == "bad.txt" {
			return "", errors.Wrapf(os.ErrPermission, errors.CodeClassification, "detect %s", path)
		}
		return fallback.Classify(path)
	})
	logger := slog.New(slog.NewTextHandler(env.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := NewDispatcher(env.source, classifier, NewMover(logger), Rules{Destination: out}, logger)

	d.Dispatch(watcher.Batch{Token: 1, Events: created("bad.txt", "good.txt")})

	assert.FileExists(t, filepath.Join(env.src, "bad.txt"))
	assert.FileExists(t, filepath.Join(out, "good.txt"))
	assert.NoFileExists(t, filepath.Join(env.src, "good.txt"))

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, int64(1), stats.Moved)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Contains(t, env.logs.String(), `level=WARN msg="classification failed, skipping"`)
	assert.Contains(t, env.logs.String(), "bad.txt")
}

func TestDispatch_MoveErrorCodeChoosesSkipOrFail(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantSkipped int64
		wantFailed  int64
		wantLog     string
	}{
		{
			name:        "source missing is skipped",
			err:         errors.Wrapf(os.ErrNotExist, errors.CodeSourceMissing, "move %s", "notes.txt"),
			wantSkipped: 1,
			wantLog:     `level=INFO msg="source already gone, skipping"`,
		},
		{
			name:       "rename failure is a failure",
			err:        errors.Wrapf(os.ErrPermission, errors.CodeMove, "move %s", "notes.txt"),
			wantFailed: 1,
			wantLog:    `level=ERROR msg="move failed, leaving file in place"`,
		},
		{
			name:       "uncoded error is a failure",
			err:        errors.New("disk on fire"),
			wantFailed: 1,
			wantLog:    "code=INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			writeFile(t, filepath.Join(env.src, "notes.txt"), "notes")
			logger := slog.New(slog.NewTextHandler(env.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			plain := classify.Func(func(string) (string, error) { return "text/plain", nil })
			d := NewDispatcher(env.source, plain, failingMover{err: tt.err}, Rules{Destination: t.TempDir()}, logger)

			d.Dispatch(watcher.Batch{Token: 1, Events: created("notes.txt")})

			stats := d.Stats()
			assert.Equal(t, tt.wantSkipped, stats.Skipped)
			assert.Equal(t, tt.wantFailed, stats.Failed)
			assert.Equal(t, int64(0), stats.Moved)
			assert.Contains(t, env.logs.String(), tt.wantLog)
		})
	}
}

func TestRun_HiddenAndPartialNamesAreSortedByDefault(t *testing.T) {
	env := newTestEnv(t)
	out := t.TempDir()
	names := []string{".CST_notes.txt", "CST_draft.tmp", "CST_report.txt"}
	for _, name := range names {
		writeFile(t, filepath.Join(env.src, name), "draft")
	}

	logger := slog.New(slog.NewTextHandler(env.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	backend := &scriptedBackend{batches: []watcher.Batch{{Token: 1, Events: created(names...)}}}
	w := watcher.NewWithBackend(logger, backend, watcher.Options{})
	_, err := w.Register(env.src)
	require.NoError(t, err)

	d := NewDispatcher(w, classify.Chain{classify.Magic{}, classify.Extension{}}, NewMover(logger),
		Rules{Destination: out, Keyword: "CST"}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return d.Stats().Moved == int64(len(names))
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, name := range names {
		assert.FileExists(t, filepath.Join(out, "CST", name))
		assert.NoFileExists(t, filepath.Join(env.src, name))
	}
	assert.NotContains(t, env.logs.String(), "ignoring entry")
}

func TestRun_ProcessesBatchesUntilCancelled(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.src, "photo.png"), pngHeader)
	env.source.batches = []watcher.Batch{{Token: 1, Events: created("photo.png")}}

	d := env.dispatcher(Rules{ImagesDir: env.images})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return d.Stats().Moved == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateIdle, d.State())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Contains(t, env.logs.String(), "watch interrupted")
}

func TestRun_SourceClosed(t *testing.T) {
	env := newTestEnv(t)
	env.source.err = watcher.ErrClosed

	err := env.dispatcher(Rules{}).Run(context.Background())

	assert.NoError(t, err)
}

func TestRun_WaitErrorIsReturned(t *testing.T) {
	env := newTestEnv(t)
	env.source.err = errors.New("poll inotify: bad file descriptor")

	err := env.dispatcher(Rules{}).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad file descriptor")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "unknown", State(7).String())
}
