// Package command implements spec.md §4.F's atomic command model: a
// precondition/postcondition pair bracketing a concrete configuration
// change, where preconditions and postconditions are evaluated over route
// equivalence classes (spec.md §4.G) rather than individual routes.
package command

import "github.com/nsg-ethz/chameleon/pkg/bgp"

// EquivClass identifies a route equivalence class by the three
// decision-relevant properties spec.md §4.G partitions on: origin egress
// (the route's NextHop), AS-path head (the closest-hop AS, which gates
// MED comparison and is visible to every downstream router), and a set of
// communities. A nil field is a wildcard: it imposes no constraint.
type EquivClass struct {
	OriginEgress *int
	ASPathHead   *int32
	Communities  []uint32
}

// ForEgress builds an EquivClass matching only origin egress.
func ForEgress(egress int) EquivClass {
	return EquivClass{OriginEgress: &egress}
}

// Matches reports whether route belongs to equivalence class e: every
// non-wildcard field must match, and every community in e.Communities must
// be present on route (communities are a required subset, not an exact
// match).
func Matches[P comparable](e EquivClass, route *bgp.Route[P]) bool {
	if route == nil {
		return false
	}
	if e.OriginEgress != nil && route.NextHop != *e.OriginEgress {
		return false
	}
	if e.ASPathHead != nil && route.FirstAS() != *e.ASPathHead {
		return false
	}
	for _, c := range e.Communities {
		if !route.HasCommunity(c) {
			return false
		}
	}
	return true
}
