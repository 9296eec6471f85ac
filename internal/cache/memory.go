package cache

import (
	"strings"
	"sync"
	"time"
)

// Entry is one cached response plus the denormalized fields kept for
// inspection without deserializing.
type Entry struct {
	Key        string
	Response   []byte // serialized types.LLMResponse
	ModelUsed  string
	TokenCount int
	CreatedAt  time.Time
	TTL        time.Duration
}

// expired reports whether the entry's TTL has elapsed at now.
func (e *Entry) expired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.TTL))
}

// memoryTier is the bounded in-process tier. A deliberately plain locked
// map: the hard item cap must hold at all times and eviction must remove
// exactly the oldest entry, which rules out probabilistic caches here.
type memoryTier struct {
	mu      sync.Mutex
	entries map[string]*Entry
	cap     int
}

func newMemoryTier(capacity int) *memoryTier {
	return &memoryTier{
		entries: make(map[string]*Entry, capacity),
		cap:     capacity,
	}
}

// get returns the entry if present and fresh; expired entries are removed.
func (m *memoryTier) get(key string, now time.Time) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if e.expired(now) {
		delete(m.entries, key)
		return nil
	}
	return e
}

// put inserts an entry, evicting the single oldest-by-CreatedAt entry first
// when the tier is full. Approximate LRU; hit locality dominates.
func (m *memoryTier) put(e *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[e.Key]; !ok && len(m.entries) >= m.cap {
		m.evictOldest()
	}
	m.entries[e.Key] = e
}

// evictOldest removes the entry with the earliest CreatedAt. Lock held.
func (m *memoryTier) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range m.entries {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey = key
			oldest = e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

// invalidate removes entries whose key starts with prefix; empty prefix
// clears everything. Returns the number removed.
func (m *memoryTier) invalidate(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefix == "" {
		n := len(m.entries)
		m.entries = make(map[string]*Entry, m.cap)
		return n
	}

	n := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			n++
		}
	}
	return n
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
