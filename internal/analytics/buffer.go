// Package analytics records request, cache, cost and error events into
// bounded time-windowed buffers and produces aggregate reports.
package analytics

import (
	"sync"
	"time"
)

// EventType names a metric family.
type EventType string

const (
	EventRequest     EventType = "request"
	EventPerformance EventType = "performance"
	EventCost        EventType = "cost"
	EventError       EventType = "error"
	EventCacheHit    EventType = "cache_hit"
)

// Event is one recorded metric point. Scalar fields are interpreted per
// family; unused fields stay zero.
type Event struct {
	Type      EventType
	Timestamp time.Time

	Provider string
	Model    string
	TenantID string
	UserID   string

	DurationMs int64
	Cost       float64
	Tokens     int
	ErrorKind  string
}

// Buffer is a fixed-capacity time-ordered ring. When full, the oldest entry
// silently drops: a deliberate backpressure valve, not a bug.
type Buffer struct {
	mu     sync.Mutex
	events []Event
	head   int // index of the oldest entry
	size   int
	cap    int
}

// NewBuffer creates a ring buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		events: make([]Event, capacity),
		cap:    capacity,
	}
}

// Add appends an event, dropping the oldest when full.
func (b *Buffer) Add(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size < b.cap {
		b.events[(b.head+b.size)%b.cap] = e
		b.size++
		return
	}
	// Full: overwrite the oldest slot and advance.
	b.events[b.head] = e
	b.head = (b.head + 1) % b.cap
}

// GetRecent returns events with Timestamp >= cutoff, oldest first.
func (b *Buffer) GetRecent(cutoff time.Time) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, b.size)
	for i := 0; i < b.size; i++ {
		e := b.events[(b.head+i)%b.cap]
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// GetAll returns every buffered event, oldest first.
func (b *Buffer) GetAll() []Event {
	return b.GetRecent(time.Time{})
}

// DropOlder removes events with Timestamp < cutoff, returning how many.
func (b *Buffer) DropOlder(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for b.size > 0 {
		if !b.events[b.head].Timestamp.Before(cutoff) {
			break // time-ordered: first fresh entry ends the scan
		}
		b.head = (b.head + 1) % b.cap
		b.size--
		dropped++
	}
	return dropped
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
