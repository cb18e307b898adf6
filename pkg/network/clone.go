package network

import (
	"github.com/nsg-ethz/chameleon/pkg/device"
	"github.com/nsg-ethz/chameleon/pkg/ospf"
	"github.com/nsg-ethz/chameleon/pkg/queue"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// ReuseFlags selects which state a PartialClone moves from the conquered
// network instead of recomputing it (spec.md §4.D).
type ReuseFlags struct {
	Config         bool
	Advertisements bool
	IGP            bool
	BGP            bool
	QueueParams    bool
}

// validate enforces the reuse-flag preconditions of spec.md §4.D: "reusing
// the BGP state requires reusing the configuration and advertisements."
// Violating a precondition is a programming error; it is reported here as
// an error, consistent with this package's validation style, rather than a
// panic.
func (f ReuseFlags) validate() error {
	vb := &util.ValidationBuilder{}
	vb.Add(!f.BGP || (f.Config && f.Advertisements), "reusing BGP state requires reusing configuration and advertisements")
	vb.Add(!f.IGP || f.Config, "reusing the IGP table requires reusing the underlying configuration")
	return vb.Build()
}

// PartialClone builds a new network sharing source's router and topology
// shape, moving whichever state flags selects from conquered instead of
// recomputing it from scratch — avoiding redundant convergence work in
// experiments that branch from a common ancestor. freshQueue is used when
// flags.QueueParams is false.
func PartialClone[P comparable](source, conquered *Network[P], flags ReuseFlags, freshQueue queue.Queue[P]) (*Network[P], error) {
	if err := flags.validate(); err != nil {
		return nil, err
	}

	out := &Network[P]{
		Graph:        ospf.NewGraph(),
		Routers:      make(map[int]*device.Router[P]),
		Mode:         source.Mode,
		StepLimit:    source.StepLimit,
		ops:          source.ops,
		distances:    make(map[linkKey]float64),
		routerParams: make(queue.RouterParams),
	}
	for k, v := range source.distances {
		out.distances[k] = v
	}

	for _, l := range source.Graph.Links() {
		out.Graph.SetLink(l.A, l.B, l.Weight, l.Area) //nolint:errcheck // weights already validated in source
	}

	for id, r := range source.Routers {
		clone := device.New[P](r.ID, r.AS, r.Kind, r.Name, source.ops)
		if flags.Config {
			for peer, s := range r.Sessions {
				clone.AddSession(peer, s.Type)
			}
			for peer, m := range r.InboundRouteMaps {
				clone.SetInboundRouteMap(peer, m)
			}
			for peer, m := range r.OutboundRouteMaps {
				clone.SetOutboundRouteMap(peer, m)
			}
			clone.LoadBalance = r.LoadBalance
		}
		out.Routers[id] = clone
	}

	if flags.Advertisements {
		for id, r := range conquered.Routers {
			clone, ok := out.Routers[id]
			if !ok {
				continue
			}
			for _, k := range r.StaticRoutes.Keys() {
				route, _ := r.StaticRoutes.Get(k)
				clone.StaticRoutes.Set(k, route)
			}
		}
	}

	if flags.BGP {
		for id, r := range conquered.Routers {
			clone, ok := out.Routers[id]
			if !ok {
				continue
			}
			for peer, ribIn := range r.RibIn {
				dst, ok := clone.RibIn[peer]
				if !ok {
					continue // precondition guarantees Config was reused, so this session already exists
				}
				for _, k := range ribIn.Keys() {
					route, _ := ribIn.Get(k)
					dst.Set(k, route)
				}
			}
			for _, k := range r.Rib.Keys() {
				entry, _ := r.Rib.Get(k)
				clone.Rib.Set(k, entry)
			}
			for peer, ribOut := range r.RibOut {
				dst, ok := clone.RibOut[peer]
				if !ok {
					continue
				}
				for _, k := range ribOut.Keys() {
					route, _ := ribOut.Get(k)
					dst.Set(k, route)
				}
			}
		}
	}

	if flags.QueueParams {
		out.q = conquered.q
		out.routerParams = conquered.routerParams
	} else {
		out.q = freshQueue
	}

	if flags.IGP {
		out.table = conquered.table
	} else {
		out.table = ospf.Compute(out.Graph, out.routerIDs())
	}
	out.q.UpdateParams(out.routerParams, topologyAdapter[P]{out})

	return out, nil
}
