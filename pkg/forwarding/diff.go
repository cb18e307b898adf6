package forwarding

import "sort"

// Change records that router's immediate next hops for prefix differ
// between two forwarding states.
type Change[P comparable] struct {
	Prefix P
	Router int
	Old    []int
	New    []int
}

// Diff reports every (router, prefix) whose immediate next hops differ
// between s and other, in prefix order then router-id order.
func (s *State[P]) Diff(other *State[P]) []Change[P] {
	prefixes := unionPrefixes(s, other)
	sort.Slice(prefixes, func(i, j int) bool { return s.ops.Less(prefixes[i], prefixes[j]) })

	var changes []Change[P]
	for _, p := range prefixes {
		routers := unionRouters(s, other, p)
		sort.Ints(routers)
		for _, r := range routers {
			oldHops := s.NextHops(r, p)
			newHops := other.NextHops(r, p)
			if !equalHops(oldHops, newHops) {
				changes = append(changes, Change[P]{Prefix: p, Router: r, Old: oldHops, New: newHops})
			}
		}
	}
	return changes
}

func unionPrefixes[P comparable](a, b *State[P]) []P {
	seen := map[P]struct{}{}
	for p := range a.byPrefix {
		seen[p] = struct{}{}
	}
	for p := range b.byPrefix {
		seen[p] = struct{}{}
	}
	out := make([]P, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

func unionRouters[P comparable](a, b *State[P], p P) []int {
	seen := map[int]struct{}{}
	for r := range a.byPrefix[p] {
		seen[r] = struct{}{}
	}
	for r := range b.byPrefix[p] {
		seen[r] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	return out
}

func equalHops(a, b []int) bool {
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
