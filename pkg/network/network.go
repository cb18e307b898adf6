// Package network owns the topology, the per-router devices, and the event
// queue that drives BGP convergence (spec.md §4.D). It is the only package
// that mutates router state end to end: every externally-initiated change
// is funneled through a Modifier, recomputes IGP/BGP state as needed, and
// (in auto-simulation mode) drains the event queue to quiescence.
package network

import (
	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/device"
	"github.com/nsg-ethz/chameleon/pkg/ospf"
	"github.com/nsg-ethz/chameleon/pkg/prefix"
	"github.com/nsg-ethz/chameleon/pkg/queue"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// Mode selects whether externally-initiated changes drain the event queue
// to quiescence before returning (spec.md §4.D).
type Mode int

const (
	ModeAuto Mode = iota
	ModeManual
)

// Network owns the OSPF graph, every router, and the event queue.
type Network[P comparable] struct {
	Graph   *ospf.Graph
	Routers map[int]*device.Router[P]
	Mode    Mode

	// StepLimit bounds the number of events Simulate will pop before giving
	// up with ErrStepLimitExceeded; nil means unbounded.
	StepLimit *int

	ops   prefix.Ops[P]
	q     queue.Queue[P]
	table *ospf.Table

	distances    map[linkKey]float64
	routerParams queue.RouterParams

	undo []Modifier[P]
}

// New constructs an empty network over the given prefix variant and queue
// implementation.
func New[P comparable](ops prefix.Ops[P], q queue.Queue[P]) *Network[P] {
	n := &Network[P]{
		Graph:        ospf.NewGraph(),
		Routers:      make(map[int]*device.Router[P]),
		ops:          ops,
		q:            q,
		distances:    make(map[linkKey]float64),
		routerParams: make(queue.RouterParams),
	}
	n.recomputeIGP()
	return n
}

// AddRouter creates a router. Routers are otherwise created only during
// network construction and removed only by the decomposition diff
// (spec.md §3 lifecycle).
func (n *Network[P]) AddRouter(id int, as int32, kind device.Kind, name string) *device.Router[P] {
	r := device.New[P](id, as, kind, name, n.ops)
	n.Routers[id] = r
	n.recomputeIGP()
	return r
}

// RemoveRouter deletes a router and every link incident to it.
func (n *Network[P]) RemoveRouter(id int) {
	delete(n.Routers, id)
	for _, other := range n.routerIDs() {
		n.Graph.RemoveLink(id, other)
	}
	n.recomputeIGP()
}

// SetRouterParams configures the per-router processing delay inputs fed to
// the event queue's latency-priority and geo-aware variants.
func (n *Network[P]) SetRouterParams(id int, p queue.RouterParam) {
	n.routerParams[id] = p
	n.q.UpdateParams(n.routerParams, topologyAdapter[P]{n})
}

// SetLinkDistance records the physical fiber distance (in the same unit
// GeoParams.QueuingScale and LinkDelay use) between a and b, consumed only
// by the geo-aware queue variant. It is topology metadata, not a
// reconfiguration command, so it is not undo-tracked.
func (n *Network[P]) SetLinkDistance(a, b int, distancePerFiberUnit float64) {
	n.distances[normLinkKey(a, b)] = distancePerFiberUnit
	n.q.UpdateParams(n.routerParams, topologyAdapter[P]{n})
}

func (n *Network[P]) routerIDs() []int {
	ids := make([]int, 0, len(n.Routers))
	for id := range n.Routers {
		ids = append(ids, id)
	}
	return ids
}

// recomputeIGP rebuilds the shortest-path table from the current graph and
// re-runs the BGP decision process for every router that has any RibIn
// entries, since a link-weight or area change can change which candidate
// wins without any new BGP message arriving (spec.md §4.C).
func (n *Network[P]) recomputeIGP() {
	n.table = ospf.Compute(n.Graph, n.routerIDs())
	n.q.UpdateParams(n.routerParams, topologyAdapter[P]{n})
	n.rerunAllDecisions()
}

func (n *Network[P]) rerunAllDecisions() {
	for _, r := range n.Routers {
		if r.Kind != device.Internal {
			continue
		}
		keys := map[P]struct{}{}
		for _, ribIn := range r.RibIn {
			for _, k := range ribIn.Keys() {
				keys[k] = struct{}{}
			}
		}
		for k := range keys {
			changed, _, _ := r.RunDecision(k, igpAdapter[P]{n})
			if changed {
				n.enqueueOutbound(r, k)
			}
		}
	}
}

func (n *Network[P]) enqueueOutbound(r *device.Router[P], prefixKey P) {
	for _, c := range r.RecomputeOutbound(prefixKey) {
		var ev bgp.Event[P]
		if c.Withdraw {
			ev = bgp.NewWithdrawEvent[P](r.ID, c.Peer, prefixKey)
		} else {
			ev = bgp.NewUpdateEvent[P](r.ID, c.Peer, c.Route)
		}
		n.q.Push(ev, n.routerParams, topologyAdapter[P]{n})
	}
}

// afterChange drains the queue to quiescence in auto-simulation mode; in
// manual mode the caller must call SimulateStep explicitly.
func (n *Network[P]) afterChange() error {
	if n.Mode == ModeAuto {
		return n.Simulate()
	}
	return nil
}

// SimulateStep pops exactly one event, dispatches it to exactly one
// router, and enqueues whatever outbound events the dispatch produces. It
// is the flat, non-recursive step spec.md §5 requires: no preemption
// inside a single event's handler.
func (n *Network[P]) SimulateStep() (advanced bool, err error) {
	ev, ok := n.q.Pop()
	if !ok {
		return false, nil
	}
	r, ok := n.Routers[ev.To]
	if !ok {
		return true, nil // the peer was removed after this event was enqueued
	}
	switch ev.Kind {
	case bgp.EventUpdate:
		r.HandleUpdate(ev.From, ev.Route)
	case bgp.EventWithdraw:
		r.HandleWithdraw(ev.From, ev.Prefix)
	}
	changed, _, _ := r.RunDecision(ev.Prefix, igpAdapter[P]{n})
	if changed {
		n.enqueueOutbound(r, ev.Prefix)
	}
	return true, nil
}

// Simulate loops SimulateStep until the queue drains or StepLimit is hit.
func (n *Network[P]) Simulate() error {
	steps := 0
	for {
		if n.StepLimit != nil && steps >= *n.StepLimit {
			return util.ErrStepLimitExceeded
		}
		advanced, err := n.SimulateStep()
		if err != nil {
			return err
		}
		if !advanced {
			return nil
		}
		steps++
	}
}

// IGPNextHops returns the IGP shortest-path next hops from router toward
// dest (multipath, sorted by router id), or nil if dest is unreachable in
// the current topology.
func (n *Network[P]) IGPNextHops(router, dest int) []int {
	e, ok := n.table.Lookup(router, dest)
	if !ok {
		return nil
	}
	return e.NextHops
}

// Ops exposes the prefix-variant capability set the network was built
// with, for packages (e.g. forwarding) that need to enumerate prefixes in
// a stable order without depending on which variant is in use.
func (n *Network[P]) Ops() prefix.Ops[P] {
	return n.ops
}

// CandidatesFor builds router's decision-process candidate list for
// prefixKey (spec.md §4.F's RoutesLessPreferred precondition), or nil if
// router doesn't exist.
func (n *Network[P]) CandidatesFor(router int, prefixKey P) []bgp.Candidate[P] {
	r, ok := n.Routers[router]
	if !ok {
		return nil
	}
	return r.Candidates(prefixKey, igpAdapter[P]{n})
}

// GetTime returns the event queue's current notion of virtual time.
func (n *Network[P]) GetTime() (float64, bool) {
	return n.q.GetTime()
}

// QueueLen reports how many events are pending.
func (n *Network[P]) QueueLen() int {
	return n.q.Len()
}
