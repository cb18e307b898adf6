package device

import (
	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// RunDecision re-runs the BGP decision process for prefixKey (spec.md
// §4.C): for each RibIn[peer] entry, impute defaults, compute the IGP
// cost to the route's next-hop excluding entries whose next-hop is
// unreachable, then select the decision-order maximum. Returns whether
// Rib changed and the old/new selected routes (either may be nil).
func (r *Router[P]) RunDecision(prefixKey P, igp IGPCostLookup) (changed bool, oldRoute, newRoute *bgp.Route[P]) {
	old, hadOld := r.Rib.Get(prefixKey)

	candidates := r.Candidates(prefixKey, igp)
	best, ok := bgp.Best(candidates)
	if !ok {
		if hadOld {
			r.Rib.Delete(prefixKey)
			util.WithDevice(r.Name).Debug("decision process: no candidate route remains, selection withdrawn")
			return true, old.Route, nil
		}
		return false, nil, nil
	}

	if hadOld && old.FromPeer == best.FromPeer && old.Route.Equal(best.Route) {
		return false, old.Route, old.Route
	}

	r.Rib.Set(prefixKey, RibEntry[P]{Route: best.Route, FromPeer: best.FromPeer})
	util.WithDevice(r.Name).WithField("from_peer", best.FromPeer).
		Debug("decision process: selected new best route")
	if hadOld {
		return true, old.Route, best.Route
	}
	return true, nil, best.Route
}

// Candidates builds the full candidate list for prefixKey the way
// RunDecision does internally, without performing selection: one entry per
// RibIn peer with a route for prefixKey and a reachable next-hop, exposed
// so callers (pkg/command's RoutesLessPreferred precondition) can inspect
// the decision-order relationship between routes without duplicating the
// eBGP/IGP-cost rules.
func (r *Router[P]) Candidates(prefixKey P, igp IGPCostLookup) []bgp.Candidate[P] {
	var candidates []bgp.Candidate[P]
	for peer, ribIn := range r.RibIn {
		route, ok := ribIn.Get(prefixKey)
		if !ok {
			continue
		}
		session := r.Sessions[peer]
		isEBGP := session.Type == bgp.EBGP

		var cost float64
		if isEBGP {
			// An eBGP peer is by construction directly attached (the OSPF
			// graph only models IGP-participating routers), so its
			// next-hop needs no IGP lookup.
			cost = 0
		} else {
			var reachable bool
			cost, reachable = r.igpCostTo(route.NextHop, igp)
			if !reachable {
				continue
			}
		}
		candidates = append(candidates, bgp.Candidate[P]{
			Route:    route,
			IsEBGP:   isEBGP,
			IGPCost:  route.EffectiveIGPCost(cost),
			FromPeer: peer,
		})
	}
	return candidates
}

// igpCostTo resolves the IGP cost from this router to nextHop. A route
// whose next-hop is this router itself (directly attached, e.g. a static
// or externally-originated route) costs 0.
func (r *Router[P]) igpCostTo(nextHop int, igp IGPCostLookup) (float64, bool) {
	if nextHop == r.ID {
		return 0, true
	}
	return igp.Cost(r.ID, nextHop)
}
