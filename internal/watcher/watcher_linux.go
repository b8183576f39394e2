//go:build linux

package watcher

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// inotifyMask selects entries created in, moved into, or written inside a
// watched directory. IN_ONLYDIR makes the kernel reject non-directories.
const inotifyMask = unix.IN_CREATE | unix.IN_MOVED_TO | unix.IN_MODIFY | unix.IN_ONLYDIR

// inotifyBackend implements Backend using Linux inotify.
//
// Wait blocks in poll(2) on two descriptors: the inotify fd and an eventfd
// that is written when the caller's context is cancelled or Close is called.
type inotifyBackend struct {
	logger *slog.Logger
	fd     int
	wake   int
	buf    []byte

	// wds is the set of live watch descriptors; used to fan out overflow.
	wds     map[int]struct{}
	wdsMu   sync.Mutex
	pending []Batch

	// mu is held by Wait for its whole duration so Close can wait for it
	// before releasing the descriptors.
	mu     sync.Mutex
	closed atomic.Bool
}

// newInotifyBackend creates a new Linux-specific file watcher backend.
func newInotifyBackend(logger *slog.Logger) (Backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inotify: %w", err)
	}

	wake, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to create eventfd: %w", err)
	}

	return &inotifyBackend{
		logger: logger,
		fd:     fd,
		wake:   wake,
		buf:    make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1)),
		wds:    make(map[int]struct{}),
	}, nil
}

// Add adds an inotify watch for a directory. The kernel returns the existing
// watch descriptor when the same directory is added twice.
func (b *inotifyBackend) Add(dir string) (Token, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}

	wd, err := unix.InotifyAddWatch(b.fd, dir, inotifyMask)
	if err != nil {
		return 0, fmt.Errorf("inotify_add_watch failed: %w", err)
	}

	b.wdsMu.Lock()
	b.wds[wd] = struct{}{}
	b.wdsMu.Unlock()
	b.logger.Debug("added watch", "path", dir, "wd", wd)

	return Token(wd), nil
}

// Wait blocks until a batch is available, ctx is done, or the backend closes.
func (b *inotifyBackend) Wait(ctx context.Context) (Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stop := context.AfterFunc(ctx, b.signal)
	defer stop()

	for {
		if b.closed.Load() {
			return Batch{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		if len(b.pending) > 0 {
			batch := b.pending[0]
			b.pending = b.pending[1:]
			return batch, nil
		}

		fds := []unix.PollFd{
			{Fd: int32(b.fd), Events: unix.POLLIN},   //nolint:gosec // G115: descriptors are small non-negative ints
			{Fd: int32(b.wake), Events: unix.POLLIN}, //nolint:gosec // G115: descriptors are small non-negative ints
		}
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return Batch{}, fmt.Errorf("poll inotify: %w", err)
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			b.drainWake()
			continue
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			if err := b.read(); err != nil {
				return Batch{}, err
			}
		}
	}
}

// read reads and parses whatever the kernel has queued.
func (b *inotifyBackend) read() error {
	n, err := unix.Read(b.fd, b.buf)
	if err != nil {
		if err == unix.EINTR || err == unix.EAGAIN {
			return nil
		}
		return fmt.Errorf("failed to read inotify events: %w", err)
	}
	if n < unix.SizeofInotifyEvent {
		return nil
	}

	b.parseEvents(b.buf[:n])
	return nil
}

// parseEvents parses raw inotify events into batches, one per watch
// descriptor, preserving the kernel's delivery order within each batch.
func (b *inotifyBackend) parseEvents(buf []byte) {
	index := make(map[Token]int)
	appendEvent := func(token Token, ev Event) {
		i, ok := index[token]
		if !ok {
			i = len(b.pending)
			index[token] = i
			b.pending = append(b.pending, Batch{Token: token})
		}
		b.pending[i].Events = append(b.pending[i].Events, ev)
	}

	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		//nolint:gosec // G103: Legitimate use of unsafe for syscall interface with inotify
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		nameStart := offset + unix.SizeofInotifyEvent
		offset = nameStart + int(raw.Len)
		if offset > len(buf) {
			break
		}

		mask := raw.Mask
		wd := int(raw.Wd)

		if mask&unix.IN_Q_OVERFLOW != 0 {
			b.logger.Debug("inotify queue overflow")
			for _, w := range b.liveWatches() {
				appendEvent(Token(w), Event{Kind: EventOverflow})
			}
			continue
		}

		if mask&unix.IN_IGNORED != 0 {
			// Watched directory deleted or unmounted; the kernel dropped the watch.
			b.wdsMu.Lock()
			delete(b.wds, wd)
			b.wdsMu.Unlock()
			b.logger.Warn("watch removed by kernel", "wd", wd)
			continue
		}

		name := ""
		if raw.Len > 0 {
			nameBytes := buf[nameStart:offset]
			name = string(nameBytes[:clen(nameBytes)])
		}
		if name == "" {
			// Event about the watched directory itself.
			continue
		}

		switch {
		case mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0:
			appendEvent(Token(wd), Event{Kind: EventCreated, Name: name})
		case mask&unix.IN_MODIFY != 0:
			appendEvent(Token(wd), Event{Kind: EventModified, Name: name})
		}
	}
}

// liveWatches returns the live watch descriptors in ascending order.
func (b *inotifyBackend) liveWatches() []int {
	b.wdsMu.Lock()
	defer b.wdsMu.Unlock()
	wds := make([]int, 0, len(b.wds))
	for wd := range b.wds {
		wds = append(wds, wd)
	}
	slices.Sort(wds)
	return wds
}

// signal wakes a blocked Wait.
func (b *inotifyBackend) signal() {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, _ = unix.Write(b.wake, one[:])
}

// drainWake resets the eventfd counter.
func (b *inotifyBackend) drainWake() {
	var counter [8]byte
	_, _ = unix.Read(b.wake, counter[:])
}

// Close stops the watcher and releases both descriptors.
func (b *inotifyBackend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.signal()

	// Wait for an in-flight Wait to observe closed and return.
	b.mu.Lock()
	defer b.mu.Unlock()

	err := unix.Close(b.fd)
	if wakeErr := unix.Close(b.wake); err == nil {
		err = wakeErr
	}
	return err
}

// clen returns the length of a null-terminated byte slice.
func clen(n []byte) int {
	for i := 0; i < len(n); i++ {
		if n[i] == 0 {
			return i
		}
	}
	return len(n)
}
