package cache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Key is a memo key. String must be injective over the keys in use; it names the
// singleflight call.
type Key interface {
	comparable
	String() string
}

// Memo is a concurrency-safe, non-evicting memo. Failed computations are not stored.
type Memo[K Key, V any] struct {
	mu     sync.RWMutex
	items  map[K]V
	flight singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemo creates an empty memo.
func NewMemo[K Key, V any]() *Memo[K, V] {
	return &Memo[K, V]{items: make(map[K]V)}
}

// Get returns the stored value for key.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	v, ok := m.items[key]
	m.mu.RUnlock()
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return v, ok
}

// Set stores value for key unless a value is already present. The stored value is
// returned.
func (m *Memo[K, V]) Set(key K, value V) V {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.items[key]; ok {
		return v
	}
	m.items[key] = value
	return value
}

// Do returns the stored value for key, computing and storing it with fn on a miss.
// cached reports whether the value was already present (or computed by a concurrent
// caller) so fn did not run on behalf of this call.
func (m *Memo[K, V]) Do(key K, fn func() (V, error)) (value V, cached bool, err error) {
	if v, ok := m.Get(key); ok {
		return v, true, nil
	}

	ran := false
	res, err, _ := m.flight.Do(key.String(), func() (any, error) {
		// A concurrent flight may have finished between Get and Do.
		m.mu.RLock()
		v, ok := m.items[key]
		m.mu.RUnlock()
		if ok {
			return v, nil
		}
		ran = true
		v, err := fn()
		if err != nil {
			return v, err
		}
		return m.Set(key, v), nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(V), !ran, nil
}

// Len returns the number of stored values.
func (m *Memo[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Stats returns memo hits and misses counted by Get.
func (m *Memo[K, V]) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}
