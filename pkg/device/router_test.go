package device

import (
	"testing"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/prefix"
	"github.com/nsg-ethz/chameleon/pkg/routemap"
)

func mustDenyAll(t *testing.T) *routemap.RouteMap[int] {
	t.Helper()
	m := routemap.New[int]("DENY-ALL")
	if err := m.AddEntry(&routemap.Entry[int]{Order: 10, State: routemap.Deny, Flow: routemap.Exit()}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	return m
}

type fixedCost map[[2]int]float64

func (f fixedCost) Cost(from, to int) (float64, bool) {
	c, ok := f[[2]int{from, to}]
	return c, ok
}

func TestRunDecision_SelectsHigherLocalPref(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer)
	r.AddSession(3, bgp.IBGPPeer)

	lowLP := 100
	highLP := 200
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2, LocalPref: &lowLP})
	r.HandleUpdate(3, &bgp.Route[int]{Prefix: 1, NextHop: 3, LocalPref: &highLP})

	cost := fixedCost{{1, 2}: 5, {1, 3}: 5}
	changed, _, newRoute := r.RunDecision(1, cost)
	if !changed {
		t.Fatal("expected the first decision run to report a change")
	}
	if newRoute.NextHop != 3 {
		t.Errorf("expected the higher local-pref route (via 3) to win, got next-hop %d", newRoute.NextHop)
	}
}

func TestRunDecision_ExcludesUnreachableNextHop(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer)
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2})

	cost := fixedCost{} // router 2 unreachable
	changed, _, newRoute := r.RunDecision(1, cost)
	if changed || newRoute != nil {
		t.Fatalf("expected no selection when the only candidate's next-hop is unreachable, got changed=%v route=%v", changed, newRoute)
	}
}

func TestRunDecision_WithdrawClearsSelection(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer)
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2})
	cost := fixedCost{{1, 2}: 1}
	r.RunDecision(1, cost)

	r.HandleWithdraw(2, 1)
	changed, old, newRoute := r.RunDecision(1, cost)
	if !changed || newRoute != nil || old == nil {
		t.Fatalf("expected withdrawal to clear the selection, changed=%v old=%v new=%v", changed, old, newRoute)
	}
}

func TestRunDecision_NoChangeWhenSameWinnerReselected(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer)
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2})
	cost := fixedCost{{1, 2}: 1}

	r.RunDecision(1, cost)
	changed, _, _ := r.RunDecision(1, cost)
	if changed {
		t.Error("expected no change on re-running decision with an unchanged RibIn")
	}
}

func TestRecomputeOutbound_SplitHorizon(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer)
	r.AddSession(3, bgp.EBGP)
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2})
	r.RunDecision(1, fixedCost{{1, 2}: 1})

	changes := r.RecomputeOutbound(1)
	for _, c := range changes {
		if c.Peer == 2 {
			t.Error("split horizon: must not announce a route back to the peer it was learned from")
		}
	}
	found := false
	for _, c := range changes {
		if c.Peer == 3 && !c.Withdraw {
			found = true
		}
	}
	if !found {
		t.Error("expected the route to be announced to the eBGP peer 3")
	}
}

func TestRecomputeOutbound_IBGPPeerToPeerNotReflected(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer) // learned from an iBGP peer
	r.AddSession(3, bgp.IBGPPeer) // another iBGP peer, not a client
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2})
	r.RunDecision(1, fixedCost{{1, 2}: 1})

	changes := r.RecomputeOutbound(1)
	for _, c := range changes {
		if c.Peer == 3 {
			t.Error("a route learned from an iBGP peer must not be reflected to another iBGP peer")
		}
	}
}

func TestRecomputeOutbound_ReflectedToClient(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer)
	r.AddSession(3, bgp.IBGPClient)
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2})
	r.RunDecision(1, fixedCost{{1, 2}: 1})

	changes := r.RecomputeOutbound(1)
	found := false
	for _, c := range changes {
		if c.Peer == 3 && !c.Withdraw {
			found = true
		}
	}
	if !found {
		t.Error("expected the route to be reflected to the client session")
	}
}

func TestRecomputeOutbound_WithdrawsWhenSelectionDisappears(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer)
	r.AddSession(3, bgp.EBGP)
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2})
	r.RunDecision(1, fixedCost{{1, 2}: 1})
	r.RecomputeOutbound(1) // establish RibOut[3]

	r.HandleWithdraw(2, 1)
	r.RunDecision(1, fixedCost{{1, 2}: 1})
	changes := r.RecomputeOutbound(1)

	found := false
	for _, c := range changes {
		if c.Peer == 3 && c.Withdraw {
			found = true
		}
	}
	if !found {
		t.Error("expected a withdrawal to be announced to peer 3 once the selection disappears")
	}
}

func TestHandleUpdate_InboundRouteMapDeny(t *testing.T) {
	r := New[int](1, 100, Internal, "R1", prefix.FlatOps)
	r.AddSession(2, bgp.IBGPPeer)

	m := mustDenyAll(t)
	r.SetInboundRouteMap(2, m)
	r.HandleUpdate(2, &bgp.Route[int]{Prefix: 1, NextHop: 2})

	if _, ok := r.RibIn[2].Get(1); ok {
		t.Error("expected the inbound route-map to deny the route")
	}
}
