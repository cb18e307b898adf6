// Package depgraph computes route equivalence classes and the command
// dependency graph of spec.md §4.G from a prefix's initial and target
// forwarding state.
package depgraph

import (
	"sort"

	"github.com/nsg-ethz/chameleon/pkg/command"
	"github.com/nsg-ethz/chameleon/pkg/forwarding"
	"github.com/nsg-ethz/chameleon/pkg/network"
)

// Classes computes the route equivalence classes for prefixKey: the set of
// distinct (origin egress, AS-path head) pairs any router's RibIn carries
// in either before or after, each widened into an EquivClass. Communities
// are not partitioned on automatically — per spec.md §4.G only
// "communities that influence downstream decisions" matter, and those are
// a route-map authoring concern the caller supplies via WithCommunities.
func Classes[P comparable](before, after *network.Network[P], prefixKey P) []command.EquivClass {
	seen := map[classKey]struct{}{}
	var out []command.EquivClass

	collect := func(net *network.Network[P]) {
		for _, r := range net.Routers {
			for _, ribIn := range r.RibIn {
				route, ok := ribIn.Get(prefixKey)
				if !ok {
					continue
				}
				k := classKey{egress: route.NextHop, asHead: route.FirstAS()}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				egress, asHead := k.egress, k.asHead
				out = append(out, command.EquivClass{OriginEgress: &egress, ASPathHead: &asHead})
			}
		}
	}
	collect(before)
	collect(after)

	sort.Slice(out, func(i, j int) bool {
		if *out[i].OriginEgress != *out[j].OriginEgress {
			return *out[i].OriginEgress < *out[j].OriginEgress
		}
		return *out[i].ASPathHead < *out[j].ASPathHead
	})
	return out
}

type classKey struct {
	egress int
	asHead int32
}

// WithCommunities returns a copy of e scoped to the given required
// communities, for classes a route-map author knows influence a
// downstream router's decision (e.g. a community a peer's inbound
// route-map matches on).
func WithCommunities(e command.EquivClass, communities ...uint32) command.EquivClass {
	e.Communities = append([]uint32(nil), communities...)
	return e
}

// Egresses returns, per router in routers, the set of egress routers
// fw resolves prefixKey to — the building block Classes' callers use to
// decide which equivalence class a router's pre/post condition should
// name.
func Egresses[P comparable](fw *forwarding.State[P], routers []int, prefixKey P) map[int]map[int]struct{} {
	out := make(map[int]map[int]struct{}, len(routers))
	for _, router := range routers {
		paths, err := fw.Paths(router, prefixKey)
		if err != nil {
			continue
		}
		set := map[int]struct{}{}
		for _, p := range paths {
			set[p[len(p)-1]] = struct{}{}
		}
		out[router] = set
	}
	return out
}
