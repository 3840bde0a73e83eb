package netio

import (
	"container/heap"
	"time"

	"github.com/netreach/paris-traceroute/internal/probe"
)

// entry is one in-flight probe's bookkeeping: the probe itself, its
// absolute timeout deadline, and its position in the deadline heap.
type entry struct {
	probe    *probe.Probe
	deadline time.Time
	index    int
}

// deadlineHeap is a container/heap ordering entries by deadline, giving
// the reactor O(log n) access to "what times out next" (spec.md §4.2
// "monotonic min-heap of deadlines").
type deadlineHeap []*entry

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

var _ heap.Interface = (*deadlineHeap)(nil)
