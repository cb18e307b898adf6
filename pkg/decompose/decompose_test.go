package decompose

import (
	"testing"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/command"
	"github.com/nsg-ethz/chameleon/pkg/device"
	"github.com/nsg-ethz/chameleon/pkg/network"
	"github.com/nsg-ethz/chameleon/pkg/prefix"
	"github.com/nsg-ethz/chameleon/pkg/queue"
	"github.com/nsg-ethz/chameleon/pkg/routemap"
	"github.com/nsg-ethz/chameleon/pkg/scheduler"
)

// buildDualHomed wires R1 (AS 65001, longer AS-path) and R2 (AS 65002,
// shorter AS-path) directly to internal router R3, the way
// pkg/command's and pkg/depgraph's fixtures do.
func buildDualHomed(t *testing.T) *network.Network[int] {
	t.Helper()
	n := network.New[int](prefix.FlatOps, queue.NewFIFO[int]())
	n.Mode = network.ModeAuto
	n.AddRouter(1, 65001, device.External, "R1")
	n.AddRouter(2, 65002, device.External, "R2")
	n.AddRouter(3, 65000, device.Internal, "R3")
	if err := n.SetBGPSession(1, 3, bgp.EBGP, bgp.EBGP); err != nil {
		t.Fatalf("SetBGPSession(1,3): %v", err)
	}
	if err := n.SetBGPSession(2, 3, bgp.EBGP, bgp.EBGP); err != nil {
		t.Fatalf("SetBGPSession(2,3): %v", err)
	}
	route1 := &bgp.Route[int]{Prefix: 100, NextHop: 1, ASPath: []int32{65001, 70000}}
	route2 := &bgp.Route[int]{Prefix: 100, NextHop: 2, ASPath: []int32{65002}}
	if err := n.AdvertiseExternalRoute(1, route1); err != nil {
		t.Fatalf("AdvertiseExternalRoute(1): %v", err)
	}
	if err := n.AdvertiseExternalRoute(2, route2); err != nil {
		t.Fatalf("AdvertiseExternalRoute(2): %v", err)
	}
	return n
}

func raiseLocalPrefModifier(router, peer, entryOrder, localPref int) network.Modifier[int] {
	return &network.RouteMapEntryModifier[int]{
		Router: router, Peer: peer, Insert: true, EntryOrder: entryOrder,
		Entry: &routemap.Entry[int]{
			Order: entryOrder, State: routemap.Allow,
			Sets: []routemap.Set[int]{routemap.SetLocalPref[int](localPref)},
			Flow: routemap.Exit(),
		},
	}
}

func TestCompile_BGPOnlyDiffBracketsTheEgressSwitch(t *testing.T) {
	before := buildDualHomed(t)
	if egress := before.Routers[3].Rib; true {
		entry, ok := egress.Get(100)
		if !ok || entry.Route.NextHop != 2 {
			t.Fatalf("expected R3 to initially prefer R2's shorter AS-path route, got %+v (ok=%v)", entry, ok)
		}
	}

	after := buildDualHomed(t)
	mod := raiseLocalPrefModifier(3, 1, 10, 200)
	if err := after.ApplyModifier(mod); err != nil {
		t.Fatalf("ApplyModifier: %v", err)
	}
	entry, ok := after.Routers[3].Rib.Get(100)
	if !ok || entry.Route.NextHop != 1 {
		t.Fatalf("expected R3 to prefer R1 after the local-pref bump, got %+v (ok=%v)", entry, ok)
	}

	diff := []DiffEntry[int]{{Kind: BGPOnly, Modifier: mod, Prefixes: []int{100}}}
	decomp, err := Compile(before, after, diff, scheduler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	beforeRounds := decomp.AtomicBefore[100]
	if len(beforeRounds) != 1 || len(beforeRounds[0]) != 1 {
		t.Fatalf("expected exactly one atomic_before round with one command, got %+v", beforeRounds)
	}
	bc := beforeRounds[0][0]
	if bc.Command.Kind != command.RaiseLocalPref || bc.Command.Router != 3 || bc.Command.Peer != 1 {
		t.Errorf("expected a RaiseLocalPref(router=3,peer=1) atomic_before command, got %+v", bc.Command)
	}
	if *bc.Precondition.Equiv.OriginEgress != 2 || *bc.Postcondition.Equiv.OriginEgress != 1 {
		t.Errorf("expected precondition egress=2, postcondition egress=1, got pre=%v post=%v",
			bc.Precondition.Equiv.OriginEgress, bc.Postcondition.Equiv.OriginEgress)
	}

	if len(decomp.MainCommands) != 1 || len(decomp.MainCommands[0]) != 1 {
		t.Fatalf("expected exactly one main round with one command, got %+v", decomp.MainCommands)
	}
	if decomp.MainCommands[0][0].Command.Kind != command.Raw {
		t.Errorf("expected the main command to wrap the raw modifier, got %+v", decomp.MainCommands[0][0].Command)
	}

	afterRounds := decomp.AtomicAfter[100]
	if len(afterRounds) != 1 || len(afterRounds[0]) != 1 {
		t.Fatalf("expected exactly one atomic_after round with one command, got %+v", afterRounds)
	}
	ac := afterRounds[0][0]
	if ac.Command.Kind != command.LowerLocalPref || ac.Command.Router != 3 || ac.Command.Peer != 1 {
		t.Errorf("expected a LowerLocalPref(router=3,peer=1) atomic_after command, got %+v", ac.Command)
	}
	if *ac.Precondition.Equiv.OriginEgress != 1 || *ac.Postcondition.Equiv.OriginEgress != 1 {
		t.Errorf("expected the cleanup bracket to hold egress=1 throughout, got pre=%v post=%v",
			ac.Precondition.Equiv.OriginEgress, ac.Postcondition.Equiv.OriginEgress)
	}
}

func TestCompile_IGPOnlyDiffSkipsAtomicBracket(t *testing.T) {
	n := buildDualHomed(t)
	mod := &network.LinkWeightModifier[int]{A: 1, B: 3, Weight: 5}

	diff := []DiffEntry[int]{{Kind: IGPOnly, Modifier: mod}}
	decomp, err := Compile(n, n, diff, scheduler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(decomp.AtomicBefore) != 0 || len(decomp.AtomicAfter) != 0 {
		t.Fatalf("expected no atomic brackets for an IGP-only diff, got before=%v after=%v", decomp.AtomicBefore, decomp.AtomicAfter)
	}
	if len(decomp.MainCommands) != 1 || len(decomp.MainCommands[0]) != 1 {
		t.Fatalf("expected exactly one main round with one command, got %+v", decomp.MainCommands)
	}
	if decomp.MainCommands[0][0].Command.Kind != command.Raw {
		t.Errorf("expected the main command to wrap the raw IGP modifier, got %+v", decomp.MainCommands[0][0].Command)
	}
}

// buildBorderWithRelay gives R3 its own direct eBGP session to R1 (so it
// is a border router, not a pure iBGP follower) plus an iBGP peering to
// R4, which in turn holds the only session to R2. OSPF links R3-R4 and
// R4-R2 let R3 resolve R2, the next hop R4 relays unchanged. R3 initially
// prefers R1's route; nothing sessions R3 to R2 directly.
func buildBorderWithRelay(t *testing.T) *network.Network[int] {
	t.Helper()
	n := network.New[int](prefix.FlatOps, queue.NewFIFO[int]())
	n.Mode = network.ModeAuto
	n.AddRouter(1, 65001, device.External, "R1")
	n.AddRouter(2, 65002, device.External, "R2")
	n.AddRouter(3, 65000, device.Internal, "R3")
	n.AddRouter(4, 65000, device.Internal, "R4")
	if err := n.SetBGPSession(1, 3, bgp.EBGP, bgp.EBGP); err != nil {
		t.Fatalf("SetBGPSession(1,3): %v", err)
	}
	if err := n.SetBGPSession(3, 4, bgp.IBGPPeer, bgp.IBGPPeer); err != nil {
		t.Fatalf("SetBGPSession(3,4): %v", err)
	}
	if err := n.SetBGPSession(2, 4, bgp.EBGP, bgp.EBGP); err != nil {
		t.Fatalf("SetBGPSession(2,4): %v", err)
	}
	if err := n.SetLinkWeight(3, 4, 1); err != nil {
		t.Fatalf("SetLinkWeight(3,4): %v", err)
	}
	if err := n.SetLinkWeight(4, 2, 1); err != nil {
		t.Fatalf("SetLinkWeight(4,2): %v", err)
	}
	route1 := &bgp.Route[int]{Prefix: 100, NextHop: 1, ASPath: []int32{65001}}
	route2 := &bgp.Route[int]{Prefix: 100, NextHop: 2, ASPath: []int32{65002, 70000}}
	if err := n.AdvertiseExternalRoute(1, route1); err != nil {
		t.Fatalf("AdvertiseExternalRoute(1): %v", err)
	}
	if err := n.AdvertiseExternalRoute(2, route2); err != nil {
		t.Fatalf("AdvertiseExternalRoute(2): %v", err)
	}
	return n
}

func TestCompile_NoDirectSessionToNewEgressUsesTempSession(t *testing.T) {
	before := buildBorderWithRelay(t)
	entry, ok := before.Routers[3].Rib.Get(100)
	if !ok || entry.Route.NextHop != 1 {
		t.Fatalf("expected R3 to initially prefer R1's direct route, got %+v (ok=%v)", entry, ok)
	}

	after := buildBorderWithRelay(t)
	mod := raiseLocalPrefModifier(3, 4, 10, 200) // boosts whatever R4 relays over iBGP
	if err := after.ApplyModifier(mod); err != nil {
		t.Fatalf("ApplyModifier: %v", err)
	}
	entry, ok = after.Routers[3].Rib.Get(100)
	if !ok || entry.Route.NextHop != 2 {
		t.Fatalf("expected R3 to prefer R2's relayed route after the local-pref bump, got %+v (ok=%v)", entry, ok)
	}

	diff := []DiffEntry[int]{{Kind: BGPOnly, Modifier: mod, Prefixes: []int{100}}}
	decomp, err := Compile(before, after, diff, scheduler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	beforeRounds := decomp.AtomicBefore[100]
	if len(beforeRounds) != 2 {
		t.Fatalf("expected a temp-session round followed by a RaiseLocalPref round, got %+v", beforeRounds)
	}
	tempUp := beforeRounds[0][0]
	if tempUp.Command.Kind != command.UseTempSession || tempUp.Command.U != 3 || tempUp.Command.V != 2 {
		t.Errorf("expected UseTempSession(3,2) as the first atomic_before command, got %+v", tempUp.Command)
	}
	raise := beforeRounds[1][0]
	if raise.Command.Kind != command.RaiseLocalPref || raise.Command.Router != 3 || raise.Command.Peer != 2 {
		t.Errorf("expected RaiseLocalPref(router=3,peer=2) riding the temp session, got %+v", raise.Command)
	}

	afterRounds := decomp.AtomicAfter[100]
	if len(afterRounds) != 2 {
		t.Fatalf("expected a LowerLocalPref round followed by a teardown round, got %+v", afterRounds)
	}
	lower := afterRounds[0][0]
	if lower.Command.Kind != command.LowerLocalPref || lower.Command.Peer != 2 {
		t.Errorf("expected LowerLocalPref(peer=2) before teardown, got %+v", lower.Command)
	}
	teardown := afterRounds[1][0]
	if teardown.Command.Kind != command.TeardownTempSession || teardown.Command.U != 3 || teardown.Command.V != 2 {
		t.Errorf("expected TeardownTempSession(3,2) as the last atomic_after command, got %+v", teardown.Command)
	}

	if len(decomp.CleanupCommands) != 1 {
		t.Fatalf("expected one cleanup round removing the preview route-map entry, got %+v", decomp.CleanupCommands)
	}
}

func TestCompile_NoEgressChangeProducesNoBracket(t *testing.T) {
	n := buildDualHomed(t)
	mod := raiseLocalPrefModifier(3, 2, 10, 150) // boosts the already-selected peer, no switch

	diff := []DiffEntry[int]{{Kind: BGPOnly, Modifier: mod, Prefixes: []int{100}}}
	decomp, err := Compile(n, n, diff, scheduler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(decomp.AtomicBefore[100]) != 0 || len(decomp.AtomicAfter[100]) != 0 {
		t.Errorf("expected no atomic bracket when the egress doesn't change, got before=%v after=%v",
			decomp.AtomicBefore[100], decomp.AtomicAfter[100])
	}
	if len(decomp.MainCommands) != 1 {
		t.Fatalf("expected the main command to still be emitted, got %+v", decomp.MainCommands)
	}
}
