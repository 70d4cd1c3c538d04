package engine

// notInList marks a request index as absent from an lruArena -- the
// sentinel called for in spec.md §9 in place of a raw iterator/pointer.
const notInList = -2

// lruArena is a doubly linked list of request indices represented as an
// arena of prev/next slots, one arena per accelerator, indexed directly
// by request index. This replaces the cyclic back-pointer pattern of the
// original implementation (a per-request iterator into a per-accelerator
// list) with a representation that has no raw pointers: touch/remove are
// O(1) slot updates, and "not currently in this accelerator's list" is
// the notInList sentinel rather than a past-the-end iterator.
type lruArena struct {
	prev, next []int
	head, tail int
}

func newLRUArena(numRequests int) *lruArena {
	prev := make([]int, numRequests)
	next := make([]int, numRequests)
	for i := range prev {
		prev[i] = notInList
		next[i] = notInList
	}
	return &lruArena{prev: prev, next: next, head: -1, tail: -1}
}

func (a *lruArena) contains(idx int) bool {
	return a.prev[idx] != notInList || a.next[idx] != notInList || a.head == idx
}

// remove splices idx out of the list if present. No-op otherwise.
func (a *lruArena) remove(idx int) {
	if !a.contains(idx) {
		return
	}
	p, n := a.prev[idx], a.next[idx]
	if p != notInList {
		a.next[p] = n
	} else if n != notInList {
		a.head = n
	} else {
		a.head = -1
	}
	if n != notInList {
		a.prev[n] = p
	} else if p != notInList {
		a.tail = p
	} else {
		a.tail = -1
	}
	a.prev[idx] = notInList
	a.next[idx] = notInList
}

// touch moves idx to the most-recently-used end (the head), inserting it
// if absent.
func (a *lruArena) touch(idx int) {
	a.remove(idx)
	if a.head == -1 {
		a.head, a.tail = idx, idx
		a.prev[idx] = notInList
		a.next[idx] = notInList
		return
	}
	a.next[idx] = a.head
	a.prev[idx] = notInList
	a.prev[a.head] = idx
	a.head = idx
}

// popTail removes and returns the least-recently-used index, or -1 if
// the list is empty.
func (a *lruArena) popTail() int {
	if a.tail == -1 {
		return -1
	}
	idx := a.tail
	a.remove(idx)
	return idx
}
