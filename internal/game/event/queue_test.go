package event

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestQueue_PopDueInFireTimeOrder(t *testing.T) {
	q := NewQueue()
	base := time.Now()

	q.Push(&Event{Name: "third", FireAt: base.Add(3 * time.Second), Run: func(time.Time) {}})
	q.Push(&Event{Name: "first", FireAt: base.Add(1 * time.Second), Run: func(time.Time) {}})
	q.Push(&Event{Name: "second", FireAt: base.Add(2 * time.Second), Run: func(time.Time) {}})

	due := q.PopDue(base.Add(5 * time.Second))
	require.Len(t, due, 3)
	assert.Equal(t, "first", due[0].Name)
	assert.Equal(t, "second", due[1].Name)
	assert.Equal(t, "third", due[2].Name)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopDueLeavesFutureEvents(t *testing.T) {
	q := NewQueue()
	base := time.Now()

	q.Push(&Event{Name: "now", FireAt: base, Run: func(time.Time) {}})
	q.Push(&Event{Name: "later", FireAt: base.Add(time.Hour), Run: func(time.Time) {}})

	due := q.PopDue(base)
	require.Len(t, due, 1)
	assert.Equal(t, "now", due[0].Name)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_TiesBreakFIFO(t *testing.T) {
	q := NewQueue()
	at := time.Now()

	for _, name := range []string{"a", "b", "c", "d"} {
		q.Push(&Event{Name: name, FireAt: at, Run: func(time.Time) {}})
	}

	due := q.PopDue(at)
	require.Len(t, due, 4)
	for i, want := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, want, due[i].Name)
	}
}

func TestQueue_Cancel(t *testing.T) {
	q := NewQueue()
	at := time.Now()

	id := q.Push(&Event{Name: "doomed", FireAt: at, Run: func(time.Time) {}})
	q.Push(&Event{Name: "kept", FireAt: at, Run: func(time.Time) {}})

	assert.True(t, q.Cancel(id))
	assert.False(t, q.Cancel(id), "double cancel is a no-op")

	due := q.PopDue(at)
	require.Len(t, due, 1)
	assert.Equal(t, "kept", due[0].Name)
}

func TestQueue_CancelTarget(t *testing.T) {
	q := NewQueue()
	at := time.Now()

	q.Push(&Event{Name: "wander", TargetID: "beggar-1", FireAt: at, Run: func(time.Time) {}})
	q.Push(&Event{Name: "regen", TargetID: "beggar-1", FireAt: at.Add(time.Second), Run: func(time.Time) {}})
	q.Push(&Event{Name: "regen", TargetID: "alice", FireAt: at, Run: func(time.Time) {}})

	removed := q.CancelTarget("beggar-1")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, q.Len())

	due := q.PopDue(at.Add(time.Minute))
	require.Len(t, due, 1)
	assert.Equal(t, "alice", due[0].TargetID)
}

func TestQueue_NextFireAt(t *testing.T) {
	q := NewQueue()
	_, ok := q.NextFireAt()
	assert.False(t, ok)

	at := time.Now().Add(time.Minute)
	q.Push(&Event{Name: "later", FireAt: at.Add(time.Hour), Run: func(time.Time) {}})
	q.Push(&Event{Name: "sooner", FireAt: at, Run: func(time.Time) {}})

	next, ok := q.NextFireAt()
	require.True(t, ok)
	assert.True(t, next.Equal(at))
}

// Property: PopDue always returns events sorted by (FireAt, insertion
// order), regardless of push order.
func TestPropertyPopDueIsSorted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := NewQueue()
		base := time.Unix(1_000_000, 0)

		count := rapid.IntRange(0, 50).Draw(t, "count")
		for i := 0; i < count; i++ {
			offset := rapid.IntRange(0, 10).Draw(t, "offset")
			q.Push(&Event{
				Name:   "ev",
				FireAt: base.Add(time.Duration(offset) * time.Second),
				Run:    func(time.Time) {},
			})
		}

		due := q.PopDue(base.Add(time.Hour))
		if len(due) != count {
			t.Fatalf("popped %d events, pushed %d", len(due), count)
		}
		sorted := sort.SliceIsSorted(due, func(i, j int) bool {
			if due[i].FireAt.Equal(due[j].FireAt) {
				return due[i].seq < due[j].seq
			}
			return due[i].FireAt.Before(due[j].FireAt)
		})
		if !sorted {
			t.Fatal("PopDue returned events out of order")
		}
	})
}
