package device

import (
	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/routemap"
)

// OutboundChange is one peer's outbound RIB delta produced by
// RecomputeOutbound: either a withdrawal or a new route to announce.
type OutboundChange[P comparable] struct {
	Peer     int
	Withdraw bool
	Route    *bgp.Route[P]
}

// RecomputeOutbound recomputes RibOut[*] for prefixKey after a Rib change
// (spec.md §4.C "Outbound recomputation"): split-horizon never reflects a
// route back to the peer it was learned from; the route-reflection filter
// (bgp.ReflectsTo) blocks iBGP-to-iBGP reflection outside the client/RR
// relationship; the outbound route-map is applied; and the result is
// compared against the previous RibOut entry to decide whether an event
// must be enqueued.
func (r *Router[P]) RecomputeOutbound(prefixKey P) []OutboundChange[P] {
	entry, haveSelected := r.Rib.Get(prefixKey)

	var changes []OutboundChange[P]
	for peer := range r.Sessions {
		if haveSelected && peer == entry.FromPeer {
			continue // split horizon
		}

		var candidate *bgp.Route[P]
		if haveSelected && r.reflectionAllows(entry.FromPeer, peer) {
			applied, accepted := routemap.Apply(r.outboundEntries(peer), entry.Route)
			if accepted {
				candidate = applied
			}
		}

		ribOut, ok := r.RibOut[peer]
		if !ok {
			continue // no session state for this peer; nothing to compare against
		}
		prev, hadPrev := ribOut.Get(prefixKey)

		switch {
		case candidate == nil && hadPrev:
			ribOut.Delete(prefixKey)
			changes = append(changes, OutboundChange[P]{Peer: peer, Withdraw: true})
		case candidate != nil && (!hadPrev || !candidate.Equal(prev)):
			ribOut.Set(prefixKey, candidate)
			changes = append(changes, OutboundChange[P]{Peer: peer, Route: candidate})
		}
	}
	return changes
}

// reflectionAllows reports whether a route learned from fromPeer may be
// re-advertised to toPeer, given both sessions' types as seen at this
// router. Sessions that are not configured (e.g. the route came from a
// static route, fromPeer == r.ID) are treated as eBGP-equivalent: always
// eligible for re-advertisement.
func (r *Router[P]) reflectionAllows(fromPeer, toPeer int) bool {
	fromSession, hasFrom := r.Sessions[fromPeer]
	if !hasFrom {
		return true
	}
	toSession := r.Sessions[toPeer]
	return bgp.ReflectsTo(fromSession, toSession)
}
