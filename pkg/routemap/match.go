package routemap

import "github.com/nsg-ethz/chameleon/pkg/bgp"

// Match is a single match predicate over a route. A Match never mutates
// its argument.
type Match[P comparable] func(r *bgp.Route[P]) bool

// PrefixMember reports whether a set of prefixes is satisfied; the
// concrete set is supplied by the caller (typically a *prefix.Set[P]),
// kept here as an interface so this package does not import pkg/prefix
// just for the method signature.
type PrefixMember[P comparable] interface {
	Contains(p P) bool
}

// MatchPrefixSet matches routes whose prefix is covered (LPM) by set.
func MatchPrefixSet[P comparable](set PrefixMember[P]) Match[P] {
	return func(r *bgp.Route[P]) bool { return set.Contains(r.Prefix) }
}

// MatchASPathContains matches routes whose AS-path contains as.
func MatchASPathContains[P comparable](as int32) Match[P] {
	return func(r *bgp.Route[P]) bool {
		for _, a := range r.ASPath {
			if a == as {
				return true
			}
		}
		return false
	}
}

// MatchASPathLengthRange matches routes whose AS-path length falls in
// [min, max] inclusive.
func MatchASPathLengthRange[P comparable](min, max int) Match[P] {
	return func(r *bgp.Route[P]) bool {
		l := len(r.ASPath)
		return l >= min && l <= max
	}
}

// MatchNextHopEquals matches routes whose next-hop is exactly nextHop.
func MatchNextHopEquals[P comparable](nextHop int) Match[P] {
	return func(r *bgp.Route[P]) bool { return r.NextHop == nextHop }
}

// MatchCommunityContains matches routes carrying community value.
func MatchCommunityContains[P comparable](value uint32) Match[P] {
	return func(r *bgp.Route[P]) bool { return r.HasCommunity(value) }
}

// MatchCommunityAbsent matches routes that do not carry community value.
func MatchCommunityAbsent[P comparable](value uint32) Match[P] {
	return func(r *bgp.Route[P]) bool { return !r.HasCommunity(value) }
}

// allMatch reports whether every match in matches is satisfied by r. An
// empty match list is satisfied unconditionally: "a route-map with no
// match clauses matches every route" (spec.md §8).
func allMatch[P comparable](matches []Match[P], r *bgp.Route[P]) bool {
	for _, m := range matches {
		if !m(r) {
			return false
		}
	}
	return true
}
