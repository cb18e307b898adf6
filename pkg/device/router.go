// Package device models per-router BGP and OSPF state: sessions, route-map
// bindings, the three per-prefix RIB tables, and the decision/outbound-
// recomputation procedures of spec.md §4.C.
//
// Grounded in the teacher's node package (pkg/newtron/network/node):
// config-bearing structs with small predicate and accessor methods,
// logging through util.WithDevice at the points that change externally
// observable state. The teacher's node talks to a config-db; this Router
// instead owns live simulated BGP state directly.
package device

import (
	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/prefix"
	"github.com/nsg-ethz/chameleon/pkg/routemap"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// Kind is a router's role per spec.md §3.
type Kind int

const (
	Internal Kind = iota
	External
	Absent
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case External:
		return "external"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

// RibEntry is a router's selected route for a prefix, plus the peer it was
// learned from (needed for split-horizon and the route-reflection filter).
type RibEntry[P comparable] struct {
	Route    *bgp.Route[P]
	FromPeer int
}

// IGPCostLookup resolves the IGP cost from one router to another. Network
// supplies this backed by an *ospf.Table; device does not depend on
// package ospf directly so the two packages can be tested independently.
type IGPCostLookup interface {
	Cost(from, to int) (float64, bool)
}

// Router is one router's BGP/OSPF-adjacent state.
type Router[P comparable] struct {
	ID   int
	AS   int32
	Kind Kind
	Name string

	ops prefix.Ops[P]

	// Sessions, as configured from this router's perspective: peer router
	// id -> the session type as seen at this end.
	Sessions map[int]bgp.Session

	InboundRouteMaps  map[int]*routemap.RouteMap[P]
	OutboundRouteMaps map[int]*routemap.RouteMap[P]

	// StaticRoutes originates routes independent of any peer, used by
	// external routers to announce eBGP routes (spec.md §3: "external
	// (announces eBGP routes only)").
	StaticRoutes *prefix.Map[P, *bgp.Route[P]]

	// LoadBalance enables per-router multipath load-balancing when
	// forwarding state is resolved (spec.md §3).
	LoadBalance bool

	RibIn  map[int]*prefix.Map[P, *bgp.Route[P]]
	Rib    *prefix.Map[P, RibEntry[P]]
	RibOut map[int]*prefix.Map[P, *bgp.Route[P]]
}

// New creates a router with empty RIBs.
func New[P comparable](id int, as int32, kind Kind, name string, ops prefix.Ops[P]) *Router[P] {
	return &Router[P]{
		ID:                id,
		AS:                as,
		Kind:              kind,
		Name:              name,
		ops:               ops,
		Sessions:          make(map[int]bgp.Session),
		InboundRouteMaps:  make(map[int]*routemap.RouteMap[P]),
		OutboundRouteMaps: make(map[int]*routemap.RouteMap[P]),
		StaticRoutes:      prefix.NewMap[P, *bgp.Route[P]](ops),
		RibIn:             make(map[int]*prefix.Map[P, *bgp.Route[P]]),
		Rib:               prefix.NewMap[P, RibEntry[P]](ops),
		RibOut:            make(map[int]*prefix.Map[P, *bgp.Route[P]]),
	}
}

// AddSession establishes a session to peer as seen from this router, with
// its own fresh RibIn/RibOut tables.
func (r *Router[P]) AddSession(peer int, sessionType bgp.SessionType) {
	r.Sessions[peer] = bgp.Session{U: r.ID, V: peer, Type: sessionType}
	if _, ok := r.RibIn[peer]; !ok {
		r.RibIn[peer] = prefix.NewMap[P, *bgp.Route[P]](r.ops)
	}
	if _, ok := r.RibOut[peer]; !ok {
		r.RibOut[peer] = prefix.NewMap[P, *bgp.Route[P]](r.ops)
	}
}

// RemoveSession tears down the session to peer and its associated RIB
// tables.
func (r *Router[P]) RemoveSession(peer int) {
	delete(r.Sessions, peer)
	delete(r.RibIn, peer)
	delete(r.RibOut, peer)
	delete(r.InboundRouteMaps, peer)
	delete(r.OutboundRouteMaps, peer)
}

// HasSession reports whether a session to peer is configured.
func (r *Router[P]) HasSession(peer int) bool {
	_, ok := r.Sessions[peer]
	return ok
}

// SetInboundRouteMap binds the inbound route-map applied to routes
// received from peer.
func (r *Router[P]) SetInboundRouteMap(peer int, m *routemap.RouteMap[P]) {
	r.InboundRouteMaps[peer] = m
}

// SetOutboundRouteMap binds the outbound route-map applied to routes
// announced to peer.
func (r *Router[P]) SetOutboundRouteMap(peer int, m *routemap.RouteMap[P]) {
	r.OutboundRouteMaps[peer] = m
}

func (r *Router[P]) inboundEntries(peer int) []*routemap.Entry[P] {
	if m, ok := r.InboundRouteMaps[peer]; ok {
		return m.Entries
	}
	return nil
}

func (r *Router[P]) outboundEntries(peer int) []*routemap.Entry[P] {
	if m, ok := r.OutboundRouteMaps[peer]; ok {
		return m.Entries
	}
	return nil
}

// HandleUpdate applies the inbound route-map for fromPeer and stores the
// result (or removes the entry, if the route-map denies it) in RibIn.
func (r *Router[P]) HandleUpdate(fromPeer int, route *bgp.Route[P]) {
	ribIn, ok := r.RibIn[fromPeer]
	if !ok {
		ribIn = prefix.NewMap[P, *bgp.Route[P]](r.ops)
		r.RibIn[fromPeer] = ribIn
	}
	applied, accepted := routemap.Apply(r.inboundEntries(fromPeer), route)
	if !accepted {
		ribIn.Delete(route.Prefix)
		util.WithDevice(r.Name).WithField("peer", fromPeer).Debug("inbound route-map denied route")
		return
	}
	ribIn.Set(route.Prefix, applied)
}

// HandleWithdraw removes the RibIn entry for prefixKey learned from
// fromPeer.
func (r *Router[P]) HandleWithdraw(fromPeer int, prefixKey P) {
	if ribIn, ok := r.RibIn[fromPeer]; ok {
		ribIn.Delete(prefixKey)
	}
}
