// Package bgp defines the BGP route, attribute, session and decision-order
// types shared by the router state (pkg/device), network (pkg/network) and
// route-map (pkg/routemap) packages. Routes are generic over the prefix
// variant in use (see pkg/prefix), per spec.md §3: "all other structures
// are generic over this choice."
package bgp

// Default attribute values imputed when a route carries no explicit
// local-pref or MED, per spec.md §3: "Equality ignores unset
// local-pref/MED by imputing defaults (100 / 0)."
const (
	DefaultLocalPref = 100
	DefaultMED       = 0
)

// Route is a BGP route for prefix type P: prefix, AS-path, next-hop and the
// attributes used by the decision order and route-maps.
type Route[P comparable] struct {
	Prefix P

	// ASPath is the ordered AS-path, closest-AS first.
	ASPath []int32

	// NextHop is the router id of the egress neighbor.
	NextHop int

	// LocalPref and MED are optional; nil means "not set", not zero.
	// Use EffectiveLocalPref/EffectiveMED for decision-order comparisons.
	LocalPref *int
	MED       *int

	Weight int

	// Communities is an ordered set: insertion order is preserved and
	// duplicates are never added, but it has no effect on comparison.
	Communities []uint32

	// OriginatorID and ClusterList are populated by route reflection: a
	// route re-advertised by a route reflector to another client carries
	// the originating router's id and an appended cluster entry.
	OriginatorID *int
	ClusterList  []int

	// IGPCostOverride, when set by a route-map set action, replaces the
	// computed IGP cost to NextHop for the decision process at the router
	// applying it, rather than the cost looked up from the OSPF table.
	IGPCostOverride *float64
}

// EffectiveIGPCost returns IGPCostOverride if set, else computed.
func (r *Route[P]) EffectiveIGPCost(computed float64) float64 {
	if r.IGPCostOverride != nil {
		return *r.IGPCostOverride
	}
	return computed
}

// EffectiveLocalPref returns r.LocalPref or DefaultLocalPref if unset.
func (r *Route[P]) EffectiveLocalPref() int {
	if r.LocalPref == nil {
		return DefaultLocalPref
	}
	return *r.LocalPref
}

// EffectiveMED returns r.MED or DefaultMED if unset.
func (r *Route[P]) EffectiveMED() int {
	if r.MED == nil {
		return DefaultMED
	}
	return *r.MED
}

// FirstAS returns the leftmost (closest-hop) AS
// in the path, or 0 if the path is empty. Used to gate MED comparison:
// spec.md §3 fixes MED comparison to apply "only if first-AS matches".
func (r *Route[P]) FirstAS() int32 {
	if len(r.ASPath) == 0 {
		return 0
	}
	return r.ASPath[0]
}

// Clone returns a deep copy of r so callers may mutate the result (route-map
// set actions, attribute overwrites during reflection) without aliasing the
// original RIB entry.
func (r *Route[P]) Clone() *Route[P] {
	out := &Route[P]{
		Prefix:  r.Prefix,
		NextHop: r.NextHop,
		Weight:  r.Weight,
	}
	if len(r.ASPath) > 0 {
		out.ASPath = append([]int32(nil), r.ASPath...)
	}
	if len(r.Communities) > 0 {
		out.Communities = append([]uint32(nil), r.Communities...)
	}
	if len(r.ClusterList) > 0 {
		out.ClusterList = append([]int(nil), r.ClusterList...)
	}
	if r.LocalPref != nil {
		lp := *r.LocalPref
		out.LocalPref = &lp
	}
	if r.MED != nil {
		med := *r.MED
		out.MED = &med
	}
	if r.OriginatorID != nil {
		id := *r.OriginatorID
		out.OriginatorID = &id
	}
	if r.IGPCostOverride != nil {
		cost := *r.IGPCostOverride
		out.IGPCostOverride = &cost
	}
	return out
}

// AddCommunity appends value to the ordered community set if not already
// present.
func (r *Route[P]) AddCommunity(value uint32) {
	if r.HasCommunity(value) {
		return
	}
	r.Communities = append(r.Communities, value)
}

// RemoveCommunity deletes value from the community set, preserving the
// order of the remaining entries.
func (r *Route[P]) RemoveCommunity(value uint32) {
	for i, c := range r.Communities {
		if c == value {
			r.Communities = append(r.Communities[:i], r.Communities[i+1:]...)
			return
		}
	}
}

// HasCommunity reports whether value is present in the community set.
func (r *Route[P]) HasCommunity(value uint32) bool {
	for _, c := range r.Communities {
		if c == value {
			return true
		}
	}
	return false
}

// Equal compares two routes attribute-by-attribute, imputing defaults for
// unset local-pref/MED so a route with LocalPref==nil compares equal to one
// with LocalPref pointing at DefaultLocalPref.
func (r *Route[P]) Equal(other *Route[P]) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Prefix != other.Prefix || r.NextHop != other.NextHop || r.Weight != other.Weight {
		return false
	}
	if r.EffectiveLocalPref() != other.EffectiveLocalPref() {
		return false
	}
	if r.EffectiveMED() != other.EffectiveMED() {
		return false
	}
	if !intSlicesEqual32(r.ASPath, other.ASPath) {
		return false
	}
	if !uintSlicesEqual(r.Communities, other.Communities) {
		return false
	}
	if !intSlicesEqual(r.ClusterList, other.ClusterList) {
		return false
	}
	if !optIntEqual(r.OriginatorID, other.OriginatorID) {
		return false
	}
	return optFloatEqual(r.IGPCostOverride, other.IGPCostOverride)
}

func intSlicesEqual32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intSlicesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func uintSlicesEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func optIntEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func optFloatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
