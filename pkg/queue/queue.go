// Package queue implements the three event-queue variants of spec.md §4.D
// behind a single polymorphic contract. The network (pkg/network) drives a
// Queue[P] without knowing which variant is plugged in: FIFO, per-session
// latency-priority, or geo-aware.
package queue

import "github.com/nsg-ethz/chameleon/pkg/bgp"

// Topology is the subset of IGP/link information a queue variant needs to
// compute scheduling delay. network wraps its ospf.Table and link graph to
// satisfy this without queue importing either package directly.
type Topology interface {
	// NextHops returns the IGP next hops from router toward dest, or nil if
	// dest is unreachable or dest == router.
	NextHops(router, dest int) []int
	// LinkDelay returns the fiber-speed-of-light transit delay of the direct
	// link u-v, or false if no such link exists.
	LinkDelay(u, v int) (float64, bool)
}

// RouterParams supplies per-router scheduling inputs: processing delay, in
// spec.md §4.D's "per-router processing delay" term.
type RouterParams map[int]RouterParam

// RouterParam is one router's queue-relevant parameters.
type RouterParam struct {
	ProcessingDelay float64
}

// Queue is the polymorphic event queue contract of spec.md §4.D.
type Queue[P comparable] interface {
	Push(event bgp.Event[P], routers RouterParams, topo Topology)
	Pop() (bgp.Event[P], bool)
	Peek() (bgp.Event[P], bool)
	Len() int
	IsEmpty() bool
	Clear()
	// UpdateParams is invoked after any topology or IGP change so the queue
	// may recompute priorities (and, for the geo-aware variant, invalidate
	// its cached paths).
	UpdateParams(routers RouterParams, topo Topology)
	// GetTime returns the queue's notion of current logical/virtual time,
	// or false if the variant does not track one (FIFO).
	GetTime() (float64, bool)
}
