package network

import (
	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/device"
	"github.com/nsg-ethz/chameleon/pkg/routemap"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// Modifier is one reversible unit of network configuration change, the
// granularity the decomposition compiler's config diff operates over
// (spec.md §4.I: "insertions, removals, updates of route-maps, sessions,
// link weights, static routes, load-balancing flags"). ApplyModifier is
// the single funnel every mutation of router/topology state passes
// through, per spec.md §4.D's "shared-resource policy."
type Modifier[P comparable] interface {
	Apply(n *Network[P]) error
	Undo(n *Network[P]) error
}

// ApplyModifier applies m, records it for reversal, and (in auto-simulation
// mode) drains the queue to quiescence.
func (n *Network[P]) ApplyModifier(m Modifier[P]) error {
	if err := m.Apply(n); err != nil {
		return err
	}
	n.undo = append(n.undo, m)
	return n.afterChange()
}

// UndoLast reverses the most recently applied modifier, if any.
func (n *Network[P]) UndoLast() error {
	if len(n.undo) == 0 {
		return nil
	}
	m := n.undo[len(n.undo)-1]
	n.undo = n.undo[:len(n.undo)-1]
	if err := m.Undo(n); err != nil {
		return err
	}
	return n.afterChange()
}

// AdvertiseRouteModifier originates route at an external router
// (spec.md §3: "external (announces eBGP routes only)").
type AdvertiseRouteModifier[P comparable] struct {
	Router int
	Route  *bgp.Route[P]
}

func (m *AdvertiseRouteModifier[P]) Apply(n *Network[P]) error {
	r, ok := n.Routers[m.Router]
	if !ok {
		return util.NewDeviceNotFoundError(m.Router)
	}
	r.StaticRoutes.Set(m.Route.Prefix, m.Route)
	r.Rib.Set(m.Route.Prefix, device.RibEntry[P]{Route: m.Route, FromPeer: m.Router})
	n.enqueueOutbound(r, m.Route.Prefix)
	return nil
}

func (m *AdvertiseRouteModifier[P]) Undo(n *Network[P]) error {
	r, ok := n.Routers[m.Router]
	if !ok {
		return util.NewDeviceNotFoundError(m.Router)
	}
	r.StaticRoutes.Delete(m.Route.Prefix)
	r.Rib.Delete(m.Route.Prefix)
	n.enqueueOutbound(r, m.Route.Prefix)
	return nil
}

// WithdrawRouteModifier retracts a previously-advertised external route.
type WithdrawRouteModifier[P comparable] struct {
	Router int
	Prefix P

	prior   *bgp.Route[P]
	hadPrior bool
}

func (m *WithdrawRouteModifier[P]) Apply(n *Network[P]) error {
	r, ok := n.Routers[m.Router]
	if !ok {
		return util.NewDeviceNotFoundError(m.Router)
	}
	m.prior, m.hadPrior = r.StaticRoutes.Get(m.Prefix)
	r.StaticRoutes.Delete(m.Prefix)
	r.Rib.Delete(m.Prefix)
	n.enqueueOutbound(r, m.Prefix)
	return nil
}

func (m *WithdrawRouteModifier[P]) Undo(n *Network[P]) error {
	if !m.hadPrior {
		return nil
	}
	r, ok := n.Routers[m.Router]
	if !ok {
		return util.NewDeviceNotFoundError(m.Router)
	}
	r.StaticRoutes.Set(m.Prefix, m.prior)
	r.Rib.Set(m.Prefix, device.RibEntry[P]{Route: m.prior, FromPeer: m.Router})
	n.enqueueOutbound(r, m.Prefix)
	return nil
}

// SessionModifier establishes (or updates) a BGP session between u and v,
// configured independently at each end per spec.md §3.
type SessionModifier[P comparable] struct {
	U, V           int
	UType, VType   bgp.SessionType

	hadBefore                   bool
	prevUType, prevVType        bgp.SessionType
}

func (m *SessionModifier[P]) Apply(n *Network[P]) error {
	ru, ok := n.Routers[m.U]
	if !ok {
		return util.NewDeviceNotFoundError(m.U)
	}
	rv, ok := n.Routers[m.V]
	if !ok {
		return util.NewDeviceNotFoundError(m.V)
	}
	if (m.UType == bgp.EBGP) != (m.VType == bgp.EBGP) {
		return util.NewValidationError("bgp session endpoints must agree on ebgp vs ibgp")
	}
	if su, ok := ru.Sessions[m.V]; ok {
		m.hadBefore = true
		m.prevUType = su.Type
		m.prevVType = rv.Sessions[m.U].Type
	}
	ru.AddSession(m.V, m.UType)
	rv.AddSession(m.U, m.VType)
	// A freshly established session exchanges each side's current table,
	// the same way a router pushes its full RIB on session establishment
	// in practice; without this a session stood up mid-migration (a
	// temporary session bracket) would never receive the route it exists
	// to carry.
	for _, prefixKey := range ru.Rib.Keys() {
		n.enqueueOutbound(ru, prefixKey)
	}
	for _, prefixKey := range rv.Rib.Keys() {
		n.enqueueOutbound(rv, prefixKey)
	}
	return nil
}

func (m *SessionModifier[P]) Undo(n *Network[P]) error {
	ru, ok := n.Routers[m.U]
	if !ok {
		return util.NewDeviceNotFoundError(m.U)
	}
	rv, ok := n.Routers[m.V]
	if !ok {
		return util.NewDeviceNotFoundError(m.V)
	}
	if !m.hadBefore {
		ru.RemoveSession(m.V)
		rv.RemoveSession(m.U)
		return nil
	}
	ru.AddSession(m.V, m.prevUType)
	rv.AddSession(m.U, m.prevVType)
	return nil
}

// SessionTeardownModifier removes the session between U and V, the
// reverse of SessionModifier: used to tear down a temporary session once
// the bracket it was established for has completed (spec.md §8
// "temporary session" scenario).
type SessionTeardownModifier[P comparable] struct {
	U, V int

	hadSession           bool
	prevUType, prevVType bgp.SessionType
}

func (m *SessionTeardownModifier[P]) Apply(n *Network[P]) error {
	ru, ok := n.Routers[m.U]
	if !ok {
		return util.NewDeviceNotFoundError(m.U)
	}
	rv, ok := n.Routers[m.V]
	if !ok {
		return util.NewDeviceNotFoundError(m.V)
	}
	if su, ok := ru.Sessions[m.V]; ok {
		m.hadSession = true
		m.prevUType = su.Type
		m.prevVType = rv.Sessions[m.U].Type
	}
	ru.RemoveSession(m.V)
	rv.RemoveSession(m.U)
	return nil
}

func (m *SessionTeardownModifier[P]) Undo(n *Network[P]) error {
	if !m.hadSession {
		return nil
	}
	ru, ok := n.Routers[m.U]
	if !ok {
		return util.NewDeviceNotFoundError(m.U)
	}
	rv, ok := n.Routers[m.V]
	if !ok {
		return util.NewDeviceNotFoundError(m.V)
	}
	ru.AddSession(m.V, m.prevUType)
	rv.AddSession(m.U, m.prevVType)
	return nil
}

// LinkWeightModifier changes an OSPF link's weight, preserving its area.
type LinkWeightModifier[P comparable] struct {
	A, B   int
	Weight float64

	hadLink    bool
	prevWeight float64
	prevArea   int
}

func (m *LinkWeightModifier[P]) Apply(n *Network[P]) error {
	area := 0
	if link, ok := n.Graph.Link(m.A, m.B); ok {
		m.hadLink = true
		m.prevWeight = link.Weight
		m.prevArea = link.Area
		area = link.Area
	}
	if err := n.Graph.SetLink(m.A, m.B, m.Weight, area); err != nil {
		return err
	}
	n.recomputeIGP()
	return nil
}

func (m *LinkWeightModifier[P]) Undo(n *Network[P]) error {
	if !m.hadLink {
		n.Graph.RemoveLink(m.A, m.B)
		n.recomputeIGP()
		return nil
	}
	if err := n.Graph.SetLink(m.A, m.B, m.prevWeight, m.prevArea); err != nil {
		return err
	}
	n.recomputeIGP()
	return nil
}

// AreaModifier changes the OSPF area of an existing link.
type AreaModifier[P comparable] struct {
	A, B int
	Area int

	prevArea int
}

func (m *AreaModifier[P]) Apply(n *Network[P]) error {
	link, ok := n.Graph.Link(m.A, m.B)
	if !ok {
		return util.NewLinkNotFoundError(m.A, m.B)
	}
	m.prevArea = link.Area
	if err := n.Graph.SetLink(m.A, m.B, link.Weight, m.Area); err != nil {
		return err
	}
	n.recomputeIGP()
	return nil
}

func (m *AreaModifier[P]) Undo(n *Network[P]) error {
	link, ok := n.Graph.Link(m.A, m.B)
	if !ok {
		return util.NewLinkNotFoundError(m.A, m.B)
	}
	if err := n.Graph.SetLink(m.A, m.B, link.Weight, m.prevArea); err != nil {
		return err
	}
	n.recomputeIGP()
	return nil
}

// RouteMapEntryModifier inserts or removes one route-map entry bound to a
// peer's inbound or outbound direction.
type RouteMapEntryModifier[P comparable] struct {
	Router    int
	Peer      int
	Outbound  bool
	Insert    bool
	EntryOrder int
	Entry     *routemap.Entry[P]

	removed *routemap.Entry[P]
}

func (m *RouteMapEntryModifier[P]) routeMap(n *Network[P]) (*routemap.RouteMap[P], error) {
	r, ok := n.Routers[m.Router]
	if !ok {
		return nil, util.NewDeviceNotFoundError(m.Router)
	}
	var rm *routemap.RouteMap[P]
	if m.Outbound {
		rm = r.OutboundRouteMaps[m.Peer]
	} else {
		rm = r.InboundRouteMaps[m.Peer]
	}
	if rm == nil {
		rm = routemap.New[P]("")
		if m.Outbound {
			r.SetOutboundRouteMap(m.Peer, rm)
		} else {
			r.SetInboundRouteMap(m.Peer, rm)
		}
	}
	return rm, nil
}

func (m *RouteMapEntryModifier[P]) Apply(n *Network[P]) error {
	rm, err := m.routeMap(n)
	if err != nil {
		return err
	}
	if m.Insert {
		return rm.AddEntry(m.Entry)
	}
	m.removed = rm.GetEntry(m.EntryOrder)
	rm.RemoveEntry(m.EntryOrder)
	return nil
}

func (m *RouteMapEntryModifier[P]) Undo(n *Network[P]) error {
	rm, err := m.routeMap(n)
	if err != nil {
		return err
	}
	if m.Insert {
		rm.RemoveEntry(m.Entry.Order)
		return nil
	}
	if m.removed != nil {
		return rm.AddEntry(m.removed)
	}
	return nil
}

// LoadBalanceModifier toggles a router's multipath load-balancing flag.
type LoadBalanceModifier[P comparable] struct {
	Router  int
	Enabled bool

	prev bool
}

func (m *LoadBalanceModifier[P]) Apply(n *Network[P]) error {
	r, ok := n.Routers[m.Router]
	if !ok {
		return util.NewDeviceNotFoundError(m.Router)
	}
	m.prev = r.LoadBalance
	r.LoadBalance = m.Enabled
	return nil
}

func (m *LoadBalanceModifier[P]) Undo(n *Network[P]) error {
	r, ok := n.Routers[m.Router]
	if !ok {
		return util.NewDeviceNotFoundError(m.Router)
	}
	r.LoadBalance = m.prev
	return nil
}

// RefreshModifier replays every route peer currently has in its
// RibOut[router] through router's inbound processing again: the route-
// refresh analogue of a BGP soft inbound reset, needed because an inbound
// route-map change only affects routes already sitting in RibIn once they
// are re-received (spec.md §4.F: "set route-map → refresh").
type RefreshModifier[P comparable] struct {
	Router int
	Peer   int
}

func (m *RefreshModifier[P]) Apply(n *Network[P]) error {
	return n.refresh(m.Router, m.Peer)
}

// Undo replays the same routes again. A refresh is not itself a state
// change to roll back; reverting its effect is the job of undoing
// whichever route-map change preceded it, followed by another refresh.
func (m *RefreshModifier[P]) Undo(n *Network[P]) error {
	return n.refresh(m.Router, m.Peer)
}

func (n *Network[P]) refresh(router, peer int) error {
	r, ok := n.Routers[router]
	if !ok {
		return util.NewDeviceNotFoundError(router)
	}
	p, ok := n.Routers[peer]
	if !ok {
		return util.NewDeviceNotFoundError(peer)
	}
	ribOut, ok := p.RibOut[router]
	if !ok {
		return nil
	}
	for _, prefixKey := range ribOut.Keys() {
		route, ok := ribOut.Get(prefixKey)
		if !ok {
			continue
		}
		r.HandleUpdate(peer, route)
		changed, _, _ := r.RunDecision(prefixKey, igpAdapter[P]{n})
		if changed {
			n.enqueueOutbound(r, prefixKey)
		}
	}
	return nil
}

// RefreshSession applies RefreshModifier for (router, peer).
func (n *Network[P]) RefreshSession(router, peer int) error {
	return n.ApplyModifier(&RefreshModifier[P]{Router: router, Peer: peer})
}

// AdvertiseExternalRoute originates route at router (spec.md §4.D).
func (n *Network[P]) AdvertiseExternalRoute(router int, route *bgp.Route[P]) error {
	return n.ApplyModifier(&AdvertiseRouteModifier[P]{Router: router, Route: route})
}

// WithdrawExternalRoute retracts the route for prefixKey previously
// advertised at router.
func (n *Network[P]) WithdrawExternalRoute(router int, prefixKey P) error {
	return n.ApplyModifier(&WithdrawRouteModifier[P]{Router: router, Prefix: prefixKey})
}

// SetBGPSession establishes or updates the session between u and v.
func (n *Network[P]) SetBGPSession(u, v int, uType, vType bgp.SessionType) error {
	return n.ApplyModifier(&SessionModifier[P]{U: u, V: v, UType: uType, VType: vType})
}

// SetLinkWeight changes the OSPF weight of the link between a and b.
func (n *Network[P]) SetLinkWeight(a, b int, weight float64) error {
	return n.ApplyModifier(&LinkWeightModifier[P]{A: a, B: b, Weight: weight})
}

// SetOSPFArea changes the OSPF area of the link between a and b.
func (n *Network[P]) SetOSPFArea(a, b int, area int) error {
	return n.ApplyModifier(&AreaModifier[P]{A: a, B: b, Area: area})
}
