package command

import (
	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/network"
)

// ConditionKind is which precondition/postcondition variant a Condition
// carries (spec.md §4.F).
type ConditionKind int

const (
	// True is the vacuous condition, always satisfied.
	True ConditionKind = iota
	// SelectedRoute holds when Router's selected route for Prefix is a
	// member of Equiv.
	SelectedRoute
	// AvailableRoute holds when some RibIn entry for Prefix at Router is a
	// member of Equiv, whether or not it was selected.
	AvailableRoute
	// RoutesLessPreferred holds when every RibIn entry for Prefix at
	// Router outside Equiv is strictly less preferred, under the
	// decision order, than every entry inside Equiv.
	RoutesLessPreferred
	// BgpSessionEstablished holds when both Router and Peer list a
	// session to each other and the network has converged.
	BgpSessionEstablished
)

func (k ConditionKind) String() string {
	switch k {
	case True:
		return "true"
	case SelectedRoute:
		return "selected-route"
	case AvailableRoute:
		return "available-route"
	case RoutesLessPreferred:
		return "routes-less-preferred"
	case BgpSessionEstablished:
		return "bgp-session-established"
	default:
		return "unknown"
	}
}

// Condition is one precondition or postcondition clause.
type Condition[P comparable] struct {
	Kind   ConditionKind
	Router int
	Peer   int // meaningful only for BgpSessionEstablished
	Prefix P
	Equiv  EquivClass
}

// Always builds the vacuous True condition.
func Always[P comparable]() Condition[P] {
	return Condition[P]{Kind: True}
}

// Evaluate reports whether c holds against net's current state.
func Evaluate[P comparable](net *network.Network[P], c Condition[P]) bool {
	switch c.Kind {
	case True:
		return true

	case SelectedRoute:
		r, ok := net.Routers[c.Router]
		if !ok {
			return false
		}
		entry, ok := r.Rib.Get(c.Prefix)
		return ok && Matches(c.Equiv, entry.Route)

	case AvailableRoute:
		r, ok := net.Routers[c.Router]
		if !ok {
			return false
		}
		for _, ribIn := range r.RibIn {
			route, ok := ribIn.Get(c.Prefix)
			if ok && Matches(c.Equiv, route) {
				return true
			}
		}
		return false

	case RoutesLessPreferred:
		return routesLessPreferred(net, c.Router, c.Prefix, c.Equiv)

	case BgpSessionEstablished:
		u, okU := net.Routers[c.Router]
		v, okV := net.Routers[c.Peer]
		if !okU || !okV {
			return false
		}
		return u.HasSession(c.Peer) && v.HasSession(c.Router) && net.QueueLen() == 0

	default:
		return false
	}
}

// routesLessPreferred reports whether every candidate outside equiv is
// strictly less preferred, under the decision order, than every candidate
// inside equiv. Vacuously true when equiv has no member among router's
// current candidates: there is nothing for an out-of-class route to be
// less preferred than, so the precondition cannot be violated yet.
func routesLessPreferred[P comparable](net *network.Network[P], router int, prefixKey P, equiv EquivClass) bool {
	candidates := net.CandidatesFor(router, prefixKey)

	var inClass, outClass []bgp.Candidate[P]
	for _, c := range candidates {
		if Matches(equiv, c.Route) {
			inClass = append(inClass, c)
		} else {
			outClass = append(outClass, c)
		}
	}
	if len(inClass) == 0 {
		return true
	}
	for _, out := range outClass {
		for _, in := range inClass {
			if !bgp.Less(out, in) {
				return false
			}
		}
	}
	return true
}
