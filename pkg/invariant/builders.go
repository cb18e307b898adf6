package invariant

import "github.com/nsg-ethz/chameleon/pkg/forwarding"

// ReachabilityOnly builds a Spec requiring every router in routers to
// reach every prefix fw has forwarding data for.
func ReachabilityOnly[P comparable](fw *forwarding.State[P], routers []int) Spec[P] {
	spec := Spec[P]{}
	for _, prefixKey := range fw.Prefixes() {
		for _, router := range routers {
			spec[router] = append(spec[router], Policy[P]{Router: router, Prefix: prefixKey, Kind: Reachable})
		}
	}
	return spec
}

// EgressWaypoint builds a Spec requiring that, for every router and
// prefix, every observed path ends at one of the egress routers seen in
// before or after (and no other) — spec.md §4.K's "Egress-Waypoint"
// builder. Routers unreachable at both ends are skipped.
func EgressWaypoint[P comparable](before, after *forwarding.State[P], routers []int) Spec[P] {
	spec := Spec[P]{}
	for _, prefixKey := range unionPrefixes(before, after) {
		for _, router := range routers {
			beforeSet, errB := egressSet(before, router, prefixKey)
			afterSet, errA := egressSet(after, router, prefixKey)
			if errB != nil && errA != nil {
				continue
			}
			allowed := map[int]struct{}{}
			for e := range beforeSet {
				allowed[e] = struct{}{}
			}
			for e := range afterSet {
				allowed[e] = struct{}{}
			}
			if len(allowed) == 0 {
				continue
			}
			var expr Expr
			for e := range allowed {
				clause := Match(Star(), Fix(e))
				if expr == nil {
					expr = clause
				} else {
					expr = Or(expr, clause)
				}
			}
			spec[router] = append(spec[router], Policy[P]{Router: router, Prefix: prefixKey, Kind: PathCondition, Expr: expr})
		}
	}
	return spec
}

func egressSet[P comparable](fw *forwarding.State[P], router int, prefixKey P) (map[int]struct{}, error) {
	paths, err := fw.Paths(router, prefixKey)
	if err != nil {
		return nil, err
	}
	set := map[int]struct{}{}
	for _, path := range paths {
		set[path[len(path)-1]] = struct{}{}
	}
	return set, nil
}

func unionPrefixes[P comparable](before, after *forwarding.State[P]) []P {
	seen := map[P]struct{}{}
	var out []P
	for _, p := range before.Prefixes() {
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range after.Prefixes() {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// monitorKey identifies one tracked (router, prefix) pair.
type monitorKey[P comparable] struct {
	router int
	prefix P
}

// EgressViolation names the router/prefix whose egress reverted to its
// old value after having already switched to the new one.
type EgressViolation[P comparable] struct {
	Router int
	Prefix P
}

// EgressMonitor implements spec.md §4.K's "Old-Until-New-Egress" builder:
// each tracked router must use its old egress exclusively, then switch
// exactly once to its new egress, never reverting. Unlike the other
// builders this isn't a stateless FwPolicy — monotonicity is a property
// of a sequence of forwarding states, not any single snapshot — so it
// exposes its own Step rather than producing a Spec for Checker.
type EgressMonitor[P comparable] struct {
	oldEgress map[monitorKey[P]]int
	newEgress map[monitorKey[P]]int
	switched  map[monitorKey[P]]bool
}

// NewEgressMonitor tracks every router in routers for which before and
// after each resolve to exactly one, distinct egress router.
func NewEgressMonitor[P comparable](before, after *forwarding.State[P], routers []int) *EgressMonitor[P] {
	m := &EgressMonitor[P]{
		oldEgress: map[monitorKey[P]]int{},
		newEgress: map[monitorKey[P]]int{},
		switched:  map[monitorKey[P]]bool{},
	}
	for _, prefixKey := range unionPrefixes(before, after) {
		for _, router := range routers {
			beforeSet, errB := egressSet(before, router, prefixKey)
			afterSet, errA := egressSet(after, router, prefixKey)
			if errB != nil || errA != nil || len(beforeSet) != 1 || len(afterSet) != 1 {
				continue
			}
			var oldE, newE int
			for e := range beforeSet {
				oldE = e
			}
			for e := range afterSet {
				newE = e
			}
			m.oldEgress[monitorKey[P]{router, prefixKey}] = oldE
			m.newEgress[monitorKey[P]{router, prefixKey}] = newE
		}
	}
	return m
}

// Step observes one intermediate forwarding.State. It returns false (with
// the first offending router/prefix) the moment a tracked router's egress
// is seen back at its old value after having already moved to its new
// one; transiently-ambiguous states (black hole, multipath, loop) are
// skipped rather than treated as a violation, since they aren't an egress
// observation at all.
func (m *EgressMonitor[P]) Step(fw *forwarding.State[P]) (bool, *EgressViolation[P]) {
	for key, oldE := range m.oldEgress {
		newE := m.newEgress[key]
		if oldE == newE {
			continue
		}
		set, err := egressSet(fw, key.router, key.prefix)
		if err != nil || len(set) != 1 {
			continue
		}
		var current int
		for e := range set {
			current = e
		}
		switch current {
		case newE:
			m.switched[key] = true
		case oldE:
			if m.switched[key] {
				return false, &EgressViolation[P]{Router: key.router, Prefix: key.prefix}
			}
		}
	}
	return true, nil
}
