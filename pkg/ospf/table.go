package ospf

import (
	"math"
	"sort"
)

const epsilon = 1e-9

// Entry is the shortest-path result for one (source, target) router pair:
// the full set of tied next-hops (multipath) and the shared minimal cost.
type Entry struct {
	NextHops []int
	Cost     float64
}

// Table is the per-source-router shortest-path table recomputed whenever
// link weights or areas change (spec.md §4.C).
type Table struct {
	from map[int]map[int]Entry
}

// Lookup returns the entry for (from, to), or false if to is unreachable
// from from.
func (t *Table) Lookup(from, to int) (Entry, bool) {
	m, ok := t.from[from]
	if !ok {
		return Entry{}, false
	}
	e, ok := m[to]
	return e, ok
}

// Compute rebuilds the shortest-path table for every router in routers
// against graph g.
func Compute(g *Graph, routers []int) *Table {
	t := &Table{from: make(map[int]map[int]Entry)}
	for _, s := range routers {
		t.from[s] = shortestPathsFrom(g, s)
	}
	return t
}

// state is a node in the area-aware search: the router reached, and the
// area of the link most recently traversed to reach it (Backbone for the
// origin, meaning "no area commitment yet").
type state struct {
	router int
	area   int
}

// shortestPathsFrom runs an area-scoped multipath shortest-path search
// from source, implemented as relax-to-fixpoint (correct for non-negative
// weights, and simpler to reason about than a tie-aware heap-based
// Dijkstra when equal-cost paths must all be collected).
//
// A transition over a link is permitted only if the link's area matches
// the current area context, or either side is the backbone — "non-
// backbone routes transit the backbone" (spec.md §3).
func shortestPathsFrom(g *Graph, source int) map[int]Entry {
	dist := map[state]float64{}
	hops := map[state]map[int]struct{}{}

	start := state{router: source, area: Backbone}
	dist[start] = 0
	hops[start] = map[int]struct{}{}

	maxRounds := (g.Len() + 2) * (g.Len() + 2)
	for round := 0; round < maxRounds; round++ {
		changed := false
		for st, d := range dist {
			for _, link := range g.Neighbors(st.router) {
				if link.Area != Backbone && st.area != Backbone && link.Area != st.area {
					continue // would cross two non-backbone areas without transiting the backbone
				}
				neighbor := link.Other(st.router)
				next := state{router: neighbor, area: link.Area}
				newDist := d + link.Weight

				var propagate map[int]struct{}
				if st == start {
					propagate = map[int]struct{}{neighbor: {}}
				} else {
					propagate = hops[st]
				}

				cur, ok := dist[next]
				switch {
				case !ok || newDist < cur-epsilon:
					dist[next] = newDist
					hops[next] = cloneHopSet(propagate)
					changed = true
				case math.Abs(newDist-cur) <= epsilon:
					before := len(hops[next])
					hops[next] = unionHopSet(hops[next], propagate)
					if len(hops[next]) != before {
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}

	best := map[int]Entry{}
	for st, d := range dist {
		if st.router == source {
			continue
		}
		cur, ok := best[st.router]
		switch {
		case !ok || d < cur.Cost-epsilon:
			best[st.router] = Entry{Cost: d, NextHops: sortedHops(hops[st])}
		case math.Abs(d-cur.Cost) <= epsilon:
			merged := unionHopSet(toHopSet(cur.NextHops), hops[st])
			best[st.router] = Entry{Cost: cur.Cost, NextHops: sortedHops(merged)}
		}
	}
	best[source] = Entry{Cost: 0}
	return best
}

func cloneHopSet(s map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func unionHopSet(a, b map[int]struct{}) map[int]struct{} {
	out := cloneHopSet(a)
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func toHopSet(hops []int) map[int]struct{} {
	out := make(map[int]struct{}, len(hops))
	for _, h := range hops {
		out[h] = struct{}{}
	}
	return out
}

func sortedHops(s map[int]struct{}) []int {
	out := make([]int, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}
