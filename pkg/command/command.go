package command

import (
	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/network"
	"github.com/nsg-ethz/chameleon/pkg/routemap"
)

// Kind is which command variant an AtomicCommand carries (spec.md §4.F).
type Kind int

const (
	RaiseLocalPref Kind = iota
	LowerLocalPref
	ChangePreference
	UseTempSession
	// TeardownTempSession removes a session a prior UseTempSession
	// established, once the bracket it carried has completed.
	TeardownTempSession
	AddRoute
	RemoveRoute
	Empty
	// Raw wraps a pre-built network.Modifier for changes none of the
	// named variants cover.
	Raw
)

func (k Kind) String() string {
	switch k {
	case RaiseLocalPref:
		return "raise-local-pref"
	case LowerLocalPref:
		return "lower-local-pref"
	case ChangePreference:
		return "change-preference"
	case UseTempSession:
		return "use-temp-session"
	case TeardownTempSession:
		return "teardown-temp-session"
	case AddRoute:
		return "add-route"
	case RemoveRoute:
		return "remove-route"
	case Empty:
		return "empty"
	case Raw:
		return "raw"
	default:
		return "unknown"
	}
}

// Command is one atomic configuration change (spec.md §4.F). Which fields
// are meaningful depends on Kind; see the per-kind comments on IntoRaw.
type Command[P comparable] struct {
	Kind Kind

	// RaiseLocalPref / LowerLocalPref / ChangePreference: apply an
	// inbound route-map entry from Peer at Router, scoped to Prefix.
	Router     int
	Peer       int
	EntryOrder int
	Prefix     P
	Value      int // the new local-pref (RaiseLocalPref/LowerLocalPref) or weight (ChangePreference)

	// UseTempSession: establish a session between U and V.
	U, V         int
	UType, VType bgp.SessionType

	// AddRoute / RemoveRoute: originate or retract an external
	// advertisement at Router for Prefix.
	Route *bgp.Route[P]

	// Raw carries the modifier for Kind == Raw.
	RawModifier network.Modifier[P]
}

// IntoRaw lowers c to the concrete modifiers network.ApplyModifier expects
// (spec.md §4.F: "lowers to a list of concrete config modifiers").
// RaiseLocalPref, LowerLocalPref and ChangePreference lower to their
// route-map modifier followed by a RefreshModifier for the same session;
// Empty lowers to none.
func (c Command[P]) IntoRaw() []network.Modifier[P] {
	switch c.Kind {
	case RaiseLocalPref, LowerLocalPref:
		return []network.Modifier[P]{c.localPrefModifier(), &network.RefreshModifier[P]{Router: c.Router, Peer: c.Peer}}

	case ChangePreference:
		return []network.Modifier[P]{c.weightModifier(), &network.RefreshModifier[P]{Router: c.Router, Peer: c.Peer}}

	case UseTempSession:
		return []network.Modifier[P]{&network.SessionModifier[P]{U: c.U, V: c.V, UType: c.UType, VType: c.VType}}

	case TeardownTempSession:
		return []network.Modifier[P]{&network.SessionTeardownModifier[P]{U: c.U, V: c.V}}

	case AddRoute:
		return []network.Modifier[P]{&network.AdvertiseRouteModifier[P]{Router: c.Router, Route: c.Route}}

	case RemoveRoute:
		return []network.Modifier[P]{&network.WithdrawRouteModifier[P]{Router: c.Router, Prefix: c.Prefix}}

	case Raw:
		return []network.Modifier[P]{c.RawModifier}

	case Empty:
		return nil

	default:
		return nil
	}
}

func (c Command[P]) matchesOwnPrefix() routemap.Match[P] {
	return func(r *bgp.Route[P]) bool { return r.Prefix == c.Prefix }
}

func (c Command[P]) localPrefModifier() *network.RouteMapEntryModifier[P] {
	return &network.RouteMapEntryModifier[P]{
		Router:     c.Router,
		Peer:       c.Peer,
		Outbound:   false,
		Insert:     true,
		EntryOrder: c.EntryOrder,
		Entry: &routemap.Entry[P]{
			Order:   c.EntryOrder,
			State:   routemap.Allow,
			Matches: []routemap.Match[P]{c.matchesOwnPrefix()},
			Sets:    []routemap.Set[P]{routemap.SetLocalPref[P](c.Value)},
			Flow:    routemap.Exit(),
		},
	}
}

// weightModifier raises or lowers a route's weight, the most-preferred
// and strictly router-local decision attribute (it never propagates to
// peers), which is what "change preference without touching what's
// advertised downstream" means in practice.
func (c Command[P]) weightModifier() *network.RouteMapEntryModifier[P] {
	return &network.RouteMapEntryModifier[P]{
		Router:     c.Router,
		Peer:       c.Peer,
		Outbound:   false,
		Insert:     true,
		EntryOrder: c.EntryOrder,
		Entry: &routemap.Entry[P]{
			Order:   c.EntryOrder,
			State:   routemap.Allow,
			Matches: []routemap.Match[P]{c.matchesOwnPrefix()},
			Sets:    []routemap.Set[P]{routemap.SetWeight[P](c.Value)},
			Flow:    routemap.Exit(),
		},
	}
}

// AtomicCommand is the precondition/command/postcondition triple of
// spec.md §3 and §4.F.
type AtomicCommand[P comparable] struct {
	Precondition  Condition[P]
	Command       Command[P]
	Postcondition Condition[P]
}

// IntoRaw lowers the command proper; preconditions and postconditions are
// evaluated separately via Evaluate, not part of the lowering.
func (ac AtomicCommand[P]) IntoRaw() []network.Modifier[P] {
	return ac.Command.IntoRaw()
}

// PreconditionHolds evaluates ac's precondition against net's current
// state.
func (ac AtomicCommand[P]) PreconditionHolds(net *network.Network[P]) bool {
	return Evaluate(net, ac.Precondition)
}

// PostconditionHolds evaluates ac's postcondition against net's current
// state.
func (ac AtomicCommand[P]) PostconditionHolds(net *network.Network[P]) bool {
	return Evaluate(net, ac.Postcondition)
}
