package sorter

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncMap_LoadOrStore(t *testing.T) {
	sm := NewSyncMap[string, int]()

	actual, loaded := sm.LoadOrStore("key", 100)
	assert.Equal(t, 100, actual)
	assert.False(t, loaded)

	actual, loaded = sm.LoadOrStore("key", 200)
	assert.Equal(t, 100, actual)
	assert.True(t, loaded)

	assert.Equal(t, map[string]int{"key": 100}, sm.Snapshot())
}

func TestSyncMap_Snapshot(t *testing.T) {
	sm := NewSyncMap[string, int]()
	sm.LoadOrStore("a", 1)

	snap := sm.Snapshot()
	snap["b"] = 2

	assert.Equal(t, map[string]int{"a": 1}, sm.Snapshot(), "snapshot must be a copy")
}

func TestSyncMap_ConcurrentCounters(t *testing.T) {
	sm := NewSyncMap[string, *atomic.Int64]()

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			n, _ := sm.LoadOrStore("dir", new(atomic.Int64))
			n.Add(1)
		})
	}
	wg.Wait()

	snap := sm.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, int64(50), snap["dir"].Load())
}
