// Package event provides the simulation scheduler's queue: future actions
// keyed by fire time, drained in deterministic order on each tick.
package event

import (
	"container/heap"
	"sync"
	"time"
)

// Action is the work an event performs when it fires. Actions run on the
// engine's mutation path and may push new events (periodic behavior
// reschedules itself).
type Action func(now time.Time)

// Event is a scheduled unit of autonomous future work targeting an entity.
type Event struct {
	// ID is the queue-assigned handle, usable for cancellation.
	ID uint64
	// Name labels the event for logging ("wander", "regen", ...).
	Name string
	// TargetID is the entity this event acts on. The engine drops the
	// event, without running it, if the target no longer exists. Empty
	// means the event is not tied to any entity (zone-wide work).
	TargetID string
	// FireAt is the absolute time the event becomes due.
	FireAt time.Time
	// Run is the action executed when the event fires.
	Run Action

	seq   uint64 // insertion order, breaks fire-time ties FIFO
	index int    // heap bookkeeping
}

// Queue is a min-heap of events ordered by (fire time, insertion order).
// Ties on fire time pop in push order, so replay is deterministic given
// identical input timing.
type Queue struct {
	mu      sync.Mutex
	items   eventHeap
	nextID  uint64
	nextSeq uint64
}

// NewQueue creates an empty event queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push schedules an event and returns its queue handle.
//
// Precondition: ev.Run must be non-nil; ev.FireAt should be set.
// Postcondition: The event will be returned by PopDue once due, unless
// cancelled first.
func (q *Queue) Push(ev *Event) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	q.nextSeq++
	ev.ID = q.nextID
	ev.seq = q.nextSeq
	heap.Push(&q.items, ev)
	return ev.ID
}

// PushIn schedules an action relative to now.
//
// Postcondition: Returns the handle of the scheduled event.
func (q *Queue) PushIn(name, targetID string, delay time.Duration, run Action) uint64 {
	return q.Push(&Event{
		Name:     name,
		TargetID: targetID,
		FireAt:   time.Now().Add(delay),
		Run:      run,
	})
}

// PopDue removes and returns all events with FireAt <= now, in fire-time
// order with FIFO tie-breaking.
//
// Postcondition: Returned events are no longer in the queue.
func (q *Queue) PopDue(now time.Time) []*Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*Event
	for q.items.Len() > 0 && !q.items[0].FireAt.After(now) {
		due = append(due, heap.Pop(&q.items).(*Event))
	}
	return due
}

// Cancel removes the event with the given handle.
//
// Postcondition: Returns true if the event was pending and is now removed.
func (q *Queue) Cancel(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, ev := range q.items {
		if ev.ID == id {
			heap.Remove(&q.items, i)
			return true
		}
	}
	return false
}

// CancelTarget prunes every pending event targeting the given entity.
// Called when an entity is destroyed so no dangling event ever fires.
//
// Postcondition: Returns the number of events removed.
func (q *Queue) CancelTarget(targetID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for i := 0; i < q.items.Len(); {
		if q.items[i].TargetID == targetID {
			heap.Remove(&q.items, i)
			removed++
			continue
		}
		i++
	}
	return removed
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// NextFireAt returns the fire time of the earliest pending event.
//
// Postcondition: Returns (time, true), or (zero, false) when empty.
func (q *Queue) NextFireAt() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return time.Time{}, false
	}
	return q.items[0].FireAt, true
}

// eventHeap implements container/heap ordered by (FireAt, seq).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].FireAt.Equal(h[j].FireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].FireAt.Before(h[j].FireAt)
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	ev := x.(*Event)
	ev.index = len(*h)
	*h = append(*h, ev)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*h = old[:n-1]
	return ev
}
