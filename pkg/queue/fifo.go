package queue

import "github.com/nsg-ethz/chameleon/pkg/bgp"

// FIFO is the insertion-order queue variant of spec.md §4.D.1. It carries no
// virtual time: events run in the order they were pushed.
type FIFO[P comparable] struct {
	events []bgp.Event[P]
}

// NewFIFO constructs an empty FIFO queue.
func NewFIFO[P comparable]() *FIFO[P] {
	return &FIFO[P]{}
}

func (q *FIFO[P]) Push(event bgp.Event[P], _ RouterParams, _ Topology) {
	q.events = append(q.events, event)
}

func (q *FIFO[P]) Pop() (bgp.Event[P], bool) {
	if len(q.events) == 0 {
		var zero bgp.Event[P]
		return zero, false
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e, true
}

func (q *FIFO[P]) Peek() (bgp.Event[P], bool) {
	if len(q.events) == 0 {
		var zero bgp.Event[P]
		return zero, false
	}
	return q.events[0], true
}

func (q *FIFO[P]) Len() int { return len(q.events) }

func (q *FIFO[P]) IsEmpty() bool { return len(q.events) == 0 }

func (q *FIFO[P]) Clear() { q.events = nil }

func (q *FIFO[P]) UpdateParams(_ RouterParams, _ Topology) {}

func (q *FIFO[P]) GetTime() (float64, bool) { return 0, false }
