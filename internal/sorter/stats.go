package sorter

import "sync/atomic"

// Stats is a point-in-time copy of the dispatcher's counters.
type Stats struct {
	Batches   int64
	Events    int64
	Overflow  int64
	Skipped   int64
	Unmatched int64
	Moved     int64
	Failed    int64
	// Unknown counts batches whose token was never registered.
	Unknown int64
	// ByDestination counts moves per destination directory.
	ByDestination map[string]int64
}

// counters are written by the dispatch loop and read by Stats from any
// goroutine.
type counters struct {
	batches   atomic.Int64
	events    atomic.Int64
	overflow  atomic.Int64
	skipped   atomic.Int64
	unmatched atomic.Int64
	moved     atomic.Int64
	failed    atomic.Int64
	unknown   atomic.Int64

	byDestination *SyncMap[string, *atomic.Int64]
}

func newCounters() *counters {
	return &counters{byDestination: NewSyncMap[string, *atomic.Int64]()}
}

func (c *counters) recordMove(dir string) {
	c.moved.Add(1)
	n, _ := c.byDestination.LoadOrStore(dir, new(atomic.Int64))
	n.Add(1)
}

func (c *counters) snapshot() Stats {
	dests := c.byDestination.Snapshot()
	byDest := make(map[string]int64, len(dests))
	for dir, n := range dests {
		byDest[dir] = n.Load()
	}

	return Stats{
		Batches:       c.batches.Load(),
		Events:        c.events.Load(),
		Overflow:      c.overflow.Load(),
		Skipped:       c.skipped.Load(),
		Unmatched:     c.unmatched.Load(),
		Moved:         c.moved.Load(),
		Failed:        c.failed.Load(),
		Unknown:       c.unknown.Load(),
		ByDestination: byDest,
	}
}
