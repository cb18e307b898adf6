package network

import "github.com/nsg-ethz/chameleon/pkg/queue"

// fiberUnitsPerDistance converts a recorded link distance into a
// propagation delay in the queue's virtual-time unit, approximating
// signal speed in fiber (roughly 2/3 the speed of light in vacuum).
const fiberUnitsPerDistance = 1.0 / 200000.0

type linkKey struct{ a, b int }

func normLinkKey(a, b int) linkKey {
	if a > b {
		a, b = b, a
	}
	return linkKey{a, b}
}

// igpAdapter satisfies device.IGPCostLookup by delegating to the network's
// cached shortest-path table, keeping pkg/device independent of pkg/ospf.
type igpAdapter[P comparable] struct {
	n *Network[P]
}

func (a igpAdapter[P]) Cost(from, to int) (float64, bool) {
	e, ok := a.n.table.Lookup(from, to)
	if !ok {
		return 0, false
	}
	return e.Cost, true
}

// topologyAdapter satisfies queue.Topology by delegating to the network's
// cached shortest-path table (for IGP next hops) and recorded link
// distances (for the geo-aware queue's fiber transit delay).
type topologyAdapter[P comparable] struct {
	n *Network[P]
}

func (a topologyAdapter[P]) NextHops(router, dest int) []int {
	e, ok := a.n.table.Lookup(router, dest)
	if !ok {
		return nil
	}
	return e.NextHops
}

func (a topologyAdapter[P]) LinkDelay(u, v int) (float64, bool) {
	dist, ok := a.n.distances[normLinkKey(u, v)]
	if !ok {
		link, ok := a.n.Graph.Link(u, v)
		if !ok {
			return 0, false
		}
		dist = link.Weight
	}
	return dist * fiberUnitsPerDistance, true
}

var _ queue.Topology = topologyAdapter[int]{}
