package engine

import "container/heap"

// EventHeap is a minimum-priority queue on (TimeMs, insertion sequence).
// Ties are broken by insertion order so events scheduled at the same
// virtual time are handled FIFO -- adapted from the teacher's
// sim/cluster/event_heap.go, which orders an Event *interface* by
// (timestamp, type priority, event ID); here Event is a plain struct and
// there is no type-priority tier, only the timestamp and the tiebreak.
type EventHeap struct {
	events []Event
	nextSeq uint64
}

// NewEventHeap creates an empty event heap.
func NewEventHeap() *EventHeap {
	h := &EventHeap{events: make([]Event, 0)}
	heap.Init(h)
	return h
}

func (h *EventHeap) Len() int { return len(h.events) }

func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]
	if ei.TimeMs != ej.TimeMs {
		return ei.TimeMs < ej.TimeMs
	}
	return ei.seq < ej.seq
}

func (h *EventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

func (h *EventHeap) Push(x interface{}) {
	h.events = append(h.events, x.(Event))
}

func (h *EventHeap) Pop() interface{} {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[:n-1]
	return item
}

// Schedule adds an event to the heap, stamping it with the next
// insertion sequence for deterministic tiebreaking.
func (h *EventHeap) Schedule(e Event) {
	h.nextSeq++
	e.seq = h.nextSeq
	heap.Push(h, e)
}

// PopNext removes and returns the minimum-time event. The second return
// value is false if the heap is empty.
func (h *EventHeap) PopNext() (Event, bool) {
	if h.Len() == 0 {
		return Event{}, false
	}
	return heap.Pop(h).(Event), true
}

func (h *EventHeap) Peek() (Event, bool) {
	if h.Len() == 0 {
		return Event{}, false
	}
	return h.events[0], true
}
