package scheduler

import "container/heap"

// eventHeap implements container/heap.Interface for event, sorted by At
// (earliest first). Reminders sort ahead of fires due at the same instant.
type eventHeap []event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].At.Equal(h[j].At) {
		return h[i].Kind > h[j].Kind
	}
	return h[i].At.Before(h[j].At)
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPush adds an event to the heap, maintaining heap invariant.
func heapPush(h *eventHeap, e event) {
	heap.Push(h, e)
}

// heapPop removes and returns the earliest event.
// Panics if the heap is empty.
func heapPop(h *eventHeap) event {
	return heap.Pop(h).(event)
}

// heapRemoveByID removes every event of the given job and reports how many
// were dropped.
func heapRemoveByID(h *eventHeap, id string) int {
	kept := (*h)[:0]
	for _, e := range *h {
		if e.JobID != id {
			kept = append(kept, e)
		}
	}
	n := h.Len() - len(kept)
	if n > 0 {
		*h = kept
		heap.Init(h)
	}
	return n
}
