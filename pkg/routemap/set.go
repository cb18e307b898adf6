package routemap

import "github.com/nsg-ethz/chameleon/pkg/bgp"

// Set is a single set action applied, in order, to the working route of a
// matched allow entry.
type Set[P comparable] func(r *bgp.Route[P])

// SetNextHop overwrites the route's next-hop.
func SetNextHop[P comparable](nextHop int) Set[P] {
	return func(r *bgp.Route[P]) { r.NextHop = nextHop }
}

// SetMED overwrites the route's MED.
func SetMED[P comparable](med int) Set[P] {
	return func(r *bgp.Route[P]) { v := med; r.MED = &v }
}

// SetLocalPref overwrites the route's local-pref.
func SetLocalPref[P comparable](localPref int) Set[P] {
	return func(r *bgp.Route[P]) { v := localPref; r.LocalPref = &v }
}

// SetWeight overwrites the route's weight.
func SetWeight[P comparable](weight int) Set[P] {
	return func(r *bgp.Route[P]) { r.Weight = weight }
}

// SetIGPCostOverride overwrites the IGP cost the decision process uses for
// this route's next-hop, bypassing the OSPF table lookup.
func SetIGPCostOverride[P comparable](cost float64) Set[P] {
	return func(r *bgp.Route[P]) { v := cost; r.IGPCostOverride = &v }
}

// AddCommunity appends a community to the route's ordered community set.
func AddCommunity[P comparable](value uint32) Set[P] {
	return func(r *bgp.Route[P]) { r.AddCommunity(value) }
}

// RemoveCommunity deletes a community from the route's ordered community
// set.
func RemoveCommunity[P comparable](value uint32) Set[P] {
	return func(r *bgp.Route[P]) { r.RemoveCommunity(value) }
}
