// Package decaymap implements a generic map whose values expire after a
// per-entry duration.
package decaymap

import (
	"sync"
	"time"
)

func zilch[T any]() T {
	var zero T
	return zero
}

// Impl is a lazy key->value map. It's a wrapper around a map and a mutex. If
// values exceed their time-to-live, they are pruned at Get time or during a
// Cleanup pass.
type Impl[K comparable, V any] struct {
	data map[K]decayMapEntry[V]
	lock sync.RWMutex
	now  func() time.Time
}

type decayMapEntry[V any] struct {
	Value  V
	expiry time.Time
}

func (e decayMapEntry[V]) expired(now time.Time) bool {
	return !e.expiry.IsZero() && now.After(e.expiry)
}

// New creates a new DecayMap of key type K and value type V.
//
// Key types must be comparable to be used as keys in the map.
func New[K comparable, V any]() *Impl[K, V] {
	return &Impl[K, V]{
		data: make(map[K]decayMapEntry[V]),
		now:  time.Now,
	}
}

// WithClock replaces the time source. It is meant for tests.
func (m *Impl[K, V]) WithClock(now func() time.Time) *Impl[K, V] {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.now = now
	return m
}

// expire forcibly expires a key by setting its time-to-live one second in the past.
func (m *Impl[K, V]) expire(key K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	val, ok := m.data[key]
	if !ok {
		return false
	}

	val.expiry = m.now().Add(-1 * time.Second)
	m.data[key] = val

	return true
}

// Delete removes key from the map. It reports whether the key was present
// and unexpired.
func (m *Impl[K, V]) Delete(key K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	val, ok := m.data[key]
	if !ok {
		return false
	}

	delete(m.data, key)

	return !val.expired(m.now())
}

// Get gets a value from the DecayMap by key.
//
// If a value has expired, forcibly delete it if it was not updated.
func (m *Impl[K, V]) Get(key K) (V, bool) {
	m.lock.RLock()
	value, ok := m.data[key]
	now := m.now()
	m.lock.RUnlock()

	if !ok {
		return zilch[V](), false
	}

	if value.expired(now) {
		m.lock.Lock()
		// Since previously reading m.data[key], the value may have been updated.
		// Delete the entry only if the expiry time is still the same.
		if m.data[key].expiry.Equal(value.expiry) {
			delete(m.data, key)
		}
		m.lock.Unlock()

		return zilch[V](), false
	}

	return value.Value, true
}

// Set sets a key value pair in the map. A ttl of zero keeps the value until
// it is deleted.
func (m *Impl[K, V]) Set(key K, value V, ttl time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()

	var expiry time.Time
	if ttl > 0 {
		expiry = m.now().Add(ttl)
	}

	m.data[key] = decayMapEntry[V]{
		Value:  value,
		expiry: expiry,
	}
}

// SetIfAbsent stores value only when key has no live entry. It reports
// whether the value was stored and returns the time left on the live entry
// otherwise.
func (m *Impl[K, V]) SetIfAbsent(key K, value V, ttl time.Duration) (bool, time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now()
	if cur, ok := m.data[key]; ok && !cur.expired(now) {
		if cur.expiry.IsZero() {
			return false, 0
		}
		return false, cur.expiry.Sub(now)
	}

	var expiry time.Time
	if ttl > 0 {
		expiry = now.Add(ttl)
	}

	m.data[key] = decayMapEntry[V]{
		Value:  value,
		expiry: expiry,
	}

	return true, 0
}

// Cleanup removes all expired entries from the DecayMap and returns how many
// were dropped.
func (m *Impl[K, V]) Cleanup() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now()
	var n int
	for key, val := range m.data {
		if val.expired(now) {
			delete(m.data, key)
			n++
		}
	}

	return n
}

// Len returns the number of entries in the DecayMap, including expired ones
// that have not been cleaned up yet.
func (m *Impl[K, V]) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.data)
}
