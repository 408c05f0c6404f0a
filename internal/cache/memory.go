package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"insightql/internal/domain"
)

// Compile-time check.
var _ domain.Cache = (*Memory)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// sweepEvery is how many writes a Memory store accepts between automatic sweeps.
const sweepEvery = 256

// Memory is an in-process TTL store. Expired entries are dropped lazily on
// read, in bulk by Sweep, and automatically every sweepEvery writes.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	writes  int
	now     func() time.Time
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns the value for key if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(m.now()) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expired(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value under key. A ttl <= 0 keeps the entry until it is deleted.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	now := m.now()
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	m.writes++
	if m.writes >= sweepEvery {
		m.sweepLocked(now)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	return ok, nil
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Sweep drops all expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now)
}

func (m *Memory) sweepLocked(now time.Time) int {
	m.writes = 0
	n := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close drops all entries.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
