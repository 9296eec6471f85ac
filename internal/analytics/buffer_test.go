package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventAt(ts time.Time, provider string) Event {
	return Event{Type: EventRequest, Timestamp: ts, Provider: provider}
}

func TestBufferDropsOldestWhenFull(t *testing.T) {
	b := NewBuffer(3)
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		b.Add(eventAt(base.Add(time.Duration(i)*time.Second), fmt.Sprintf("p%d", i)))
	}

	require.Equal(t, 3, b.Len(), "capacity is a hard bound")

	all := b.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "p2", all[0].Provider, "oldest surviving entry")
	assert.Equal(t, "p4", all[2].Provider, "newest entry")
}

func TestBufferGetRecent(t *testing.T) {
	b := NewBuffer(10)
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		b.Add(eventAt(base.Add(time.Duration(i)*time.Minute), "p"))
	}

	recent := b.GetRecent(base.Add(3 * time.Minute))
	assert.Len(t, recent, 3, "cutoff is inclusive")
}

func TestBufferDropOlder(t *testing.T) {
	b := NewBuffer(10)
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		b.Add(eventAt(base.Add(time.Duration(i)*time.Minute), "p"))
	}

	dropped := b.DropOlder(base.Add(4 * time.Minute))
	assert.Equal(t, 4, dropped)
	assert.Equal(t, 2, b.Len())

	// Survivors remain in order and subsequent adds wrap correctly.
	b.Add(eventAt(base.Add(10*time.Minute), "late"))
	all := b.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "late", all[2].Provider)
}

func TestBufferEmpty(t *testing.T) {
	b := NewBuffer(4)
	assert.Zero(t, b.Len())
	assert.Empty(t, b.GetAll())
	assert.Zero(t, b.DropOlder(time.Now()))
}
