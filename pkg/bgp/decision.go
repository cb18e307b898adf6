package bgp

// Candidate wraps a Route with the inputs to the decision process that are
// not attributes of the route itself: whether it arrived over an eBGP
// session, the IGP cost to its next-hop, and the peer it was received from.
// Per spec.md §3 these are needed for the "eBGP over iBGP", "lower IGP cost"
// and "lower from-peer id" tie-break steps.
type Candidate[P comparable] struct {
	Route *Route[P]

	IsEBGP  bool
	IGPCost float64

	// FromPeer is the router id of the peer this route was received from.
	FromPeer int
}

// originatorOrPeerID returns the id used for the "lower originator/peer id"
// tie-break: the route's OriginatorID if reflection set one, else the peer
// it was received from.
func (c Candidate[P]) originatorOrPeerID() int {
	if c.Route.OriginatorID != nil {
		return *c.Route.OriginatorID
	}
	return c.FromPeer
}

// Less reports whether a is strictly less preferred than b under the total
// decision order of spec.md §3:
//
//	higher weight → higher local-pref → shorter AS-path → lower MED (only
//	if first-AS matches) → eBGP over iBGP → lower IGP cost to next-hop →
//	lower next-hop router id → lower originator/peer id → shorter cluster
//	list → lower from-peer id.
func Less[P comparable](a, b Candidate[P]) bool {
	if a.Route.Weight != b.Route.Weight {
		return a.Route.Weight < b.Route.Weight
	}
	if a.Route.EffectiveLocalPref() != b.Route.EffectiveLocalPref() {
		return a.Route.EffectiveLocalPref() < b.Route.EffectiveLocalPref()
	}
	if len(a.Route.ASPath) != len(b.Route.ASPath) {
		return len(a.Route.ASPath) > len(b.Route.ASPath)
	}
	if a.Route.FirstAS() == b.Route.FirstAS() && a.Route.EffectiveMED() != b.Route.EffectiveMED() {
		return a.Route.EffectiveMED() > b.Route.EffectiveMED()
	}
	if a.IsEBGP != b.IsEBGP {
		return b.IsEBGP
	}
	if a.IGPCost != b.IGPCost {
		return a.IGPCost > b.IGPCost
	}
	if a.Route.NextHop != b.Route.NextHop {
		return a.Route.NextHop > b.Route.NextHop
	}
	if aID, bID := a.originatorOrPeerID(), b.originatorOrPeerID(); aID != bID {
		return aID > bID
	}
	if len(a.Route.ClusterList) != len(b.Route.ClusterList) {
		return len(a.Route.ClusterList) > len(b.Route.ClusterList)
	}
	return a.FromPeer > b.FromPeer
}

// Best returns the most preferred candidate under the decision order, and
// false if candidates is empty. Ties (every criterion equal, which cannot
// happen for two distinct peers since FromPeer is the last tie-break and
// peers are distinct) resolve to the first maximum encountered.
func Best[P comparable](candidates []Candidate[P]) (Candidate[P], bool) {
	if len(candidates) == 0 {
		return Candidate[P]{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if Less(best, c) {
			best = c
		}
	}
	return best, true
}
