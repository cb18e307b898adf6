package queue

import "github.com/nsg-ethz/chameleon/pkg/bgp"

// sessionKey identifies a (source, destination) session for the per-session
// TCP-like ordering guarantee of spec.md §5: events on the same session
// cannot cross.
type sessionKey struct {
	from, to int
}

// item is one scheduled event, ordered by Time with insertion sequence as a
// deterministic tie-break.
type item[P comparable] struct {
	event bgp.Event[P]
	seq   int64
}

// timeHeap is a min-heap over item.Time, shared by the latency-priority and
// geo-aware queue variants. It implements container/heap.Interface.
type timeHeap[P comparable] []item[P]

func (h timeHeap[P]) Len() int { return len(h) }

func (h timeHeap[P]) Less(i, j int) bool {
	if h[i].event.Time != h[j].event.Time {
		return h[i].event.Time < h[j].event.Time
	}
	return h[i].seq < h[j].seq
}

func (h timeHeap[P]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timeHeap[P]) Push(x any) {
	*h = append(*h, x.(item[P]))
}

func (h *timeHeap[P]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
