// Package ospf computes the IGP shortest-path table of spec.md §3/§4.C: an
// undirected weighted graph of routers, partitioned into areas (area 0 is
// the backbone), with shortest-path computation that respects area-scoped
// visibility — a route between two non-backbone areas must transit the
// backbone.
package ospf

import (
	"math"

	"github.com/nsg-ethz/chameleon/pkg/util"
)

// Backbone is the reserved area id that every other area must transit
// through to reach a router in a different area.
const Backbone = 0

// Link is an undirected, weighted, area-tagged OSPF adjacency between two
// routers.
type Link struct {
	A, B   int
	Weight float64
	Area   int
}

// Other returns the endpoint of the link that is not router.
func (l *Link) Other(router int) int {
	if l.A == router {
		return l.B
	}
	return l.A
}

type linkKey struct{ a, b int }

func normalizeKey(a, b int) linkKey {
	if a > b {
		a, b = b, a
	}
	return linkKey{a, b}
}

// Graph is the OSPF topology: routers implicitly exist as link endpoints,
// links carry a weight and an area.
type Graph struct {
	links map[linkKey]*Link
}

// NewGraph returns an empty OSPF graph.
func NewGraph() *Graph {
	return &Graph{links: make(map[linkKey]*Link)}
}

// SetLink creates or updates the link between a and b with the given
// weight and area. Link weights must be finite and non-negative — per
// spec.md §4.C, "an arithmetic overflow in cost computation is never
// allowed; link weights are finite non-NaN floats."
func (g *Graph) SetLink(a, b int, weight float64, area int) error {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return util.NewValidationError("ospf link weight must be a finite, non-negative number")
	}
	g.links[normalizeKey(a, b)] = &Link{A: a, B: b, Weight: weight, Area: area}
	return nil
}

// RemoveLink deletes the link between a and b, reporting whether one
// existed.
func (g *Graph) RemoveLink(a, b int) bool {
	k := normalizeKey(a, b)
	if _, ok := g.links[k]; !ok {
		return false
	}
	delete(g.links, k)
	return true
}

// Link returns the link between a and b, if any.
func (g *Graph) Link(a, b int) (*Link, bool) {
	l, ok := g.links[normalizeKey(a, b)]
	return l, ok
}

// Neighbors returns every link incident to router.
func (g *Graph) Neighbors(router int) []*Link {
	var out []*Link
	for _, l := range g.links {
		if l.A == router || l.B == router {
			out = append(out, l)
		}
	}
	return out
}

// Len returns the number of links in the graph.
func (g *Graph) Len() int { return len(g.links) }

// Links returns every link in the graph, in no particular order. Used by
// callers (e.g. pkg/network's partial-clone builder) that need to rebuild
// an equivalent graph elsewhere.
func (g *Graph) Links() []Link {
	out := make([]Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, *l)
	}
	return out
}
