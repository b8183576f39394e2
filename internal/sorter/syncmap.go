package sorter

import (
	"maps"
	"sync"
)

// SyncMap is a type-safe concurrent map. It is used for counters that the
// dispatch loop writes and a shutdown path reads from another goroutine.
type SyncMap[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

// NewSyncMap creates an empty SyncMap.
func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{
		m: make(map[K]V),
	}
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores and returns value. loaded reports whether the value was already there.
func (sm *SyncMap[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	sm.mu.RLock()
	actual, loaded = sm.m[key]
	sm.mu.RUnlock()
	if loaded {
		return actual, true
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Another goroutine may have stored between RUnlock and Lock.
	actual, loaded = sm.m[key]
	if loaded {
		return actual, true
	}
	sm.m[key] = value
	return value, false
}

// Snapshot returns a copy of the map's contents.
func (sm *SyncMap[K, V]) Snapshot() map[K]V {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return maps.Clone(sm.m)
}
