package depgraph

import "github.com/nsg-ethz/chameleon/pkg/command"

// EdgeKind is one of the three dependency relations of spec.md §4.G.
type EdgeKind int

const (
	// MustPrecede: a new route must be available before another router
	// selects it.
	MustPrecede EdgeKind = iota
	// MustFollow: an old route must remain while a downstream router
	// still prefers it.
	MustFollow
	// Conflict: two commands affecting the same router/prefix must be
	// serialized.
	Conflict
)

func (k EdgeKind) String() string {
	switch k {
	case MustPrecede:
		return "must-precede"
	case MustFollow:
		return "must-follow"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Edge is one dependency between two commands, indexed into the slice
// Build was called with. From must be scheduled strictly before To for
// both MustPrecede and MustFollow (MustFollow keeps its own Kind only for
// provenance/logging: the scheduling constraint is identical).
type Edge struct {
	Kind     EdgeKind
	From, To int
}

// Build derives the command dependency graph for one prefix's atomic
// commands (spec.md §4.G), by symbolic execution of the decision process
// under each candidate equivalence class reduced to its observable
// effect: a command that establishes a route in some equivalence class
// must precede any command whose precondition requires that same class;
// a command that removes a route must follow every command whose
// precondition still needs that class's availability; two commands that
// install or remove an entry in the same (router, peer) inbound
// route-map must be serialized.
func Build[P comparable](commands []command.AtomicCommand[P]) []Edge {
	seen := map[Edge]struct{}{}
	var edges []Edge
	add := func(e Edge) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		edges = append(edges, e)
	}

	for i, a := range commands {
		for j, b := range commands {
			if i == j {
				continue
			}
			if establishes(a.Command.Kind) && requires(b.Precondition.Kind) &&
				equivEqual(a.Postcondition.Equiv, b.Precondition.Equiv) {
				add(Edge{Kind: MustPrecede, From: i, To: j})
			}
			if removes(a.Command.Kind) && requires(b.Precondition.Kind) &&
				equivEqual(b.Precondition.Equiv, a.Precondition.Equiv) {
				add(Edge{Kind: MustFollow, From: j, To: i})
			}
			// A temporary session must be up before any route-map bracket
			// command previews a route learned over it, and must not be
			// torn down until every such command on that session has run
			// (spec.md §8 "temporary session" scenario). Session
			// establishment carries no EquivClass, so this is matched on
			// (router, peer) directly rather than through equivEqual.
			if a.Command.Kind == command.UseTempSession && touchesRouteMap(b.Command.Kind) &&
				sessionCommandMatches(a.Command, b.Command) {
				add(Edge{Kind: MustPrecede, From: i, To: j})
			}
			if b.Command.Kind == command.TeardownTempSession && touchesRouteMap(a.Command.Kind) &&
				sessionCommandMatches(b.Command, a.Command) {
				add(Edge{Kind: MustFollow, From: i, To: j})
			}
		}
		for j := i + 1; j < len(commands); j++ {
			if sameRouteMapSlot(a.Command, commands[j].Command) {
				add(Edge{Kind: Conflict, From: i, To: j})
			}
		}
	}
	return edges
}

func establishes(k command.Kind) bool {
	switch k {
	case command.RaiseLocalPref, command.ChangePreference, command.UseTempSession, command.AddRoute:
		return true
	default:
		return false
	}
}

func removes(k command.Kind) bool {
	switch k {
	case command.LowerLocalPref, command.RemoveRoute:
		return true
	default:
		return false
	}
}

func requires(k command.ConditionKind) bool {
	switch k {
	case command.SelectedRoute, command.AvailableRoute, command.RoutesLessPreferred:
		return true
	default:
		return false
	}
}

func touchesRouteMap(k command.Kind) bool {
	switch k {
	case command.RaiseLocalPref, command.LowerLocalPref, command.ChangePreference:
		return true
	default:
		return false
	}
}

// sessionCommandMatches reports whether session (a UseTempSession or
// TeardownTempSession command, endpoints U/V) and bracket (a route-map
// bracket command, slot Router/Peer) operate on the same session, in
// either direction.
func sessionCommandMatches[P comparable](session, bracket command.Command[P]) bool {
	return (session.U == bracket.Router && session.V == bracket.Peer) ||
		(session.U == bracket.Peer && session.V == bracket.Router)
}

func sameRouteMapSlot[P comparable](a, b command.Command[P]) bool {
	if !touchesRouteMap(a.Kind) || !touchesRouteMap(b.Kind) {
		return false
	}
	return a.Router == b.Router && a.Peer == b.Peer
}

func equivEqual(a, b command.EquivClass) bool {
	if !intPtrEqual(a.OriginEgress, b.OriginEgress) {
		return false
	}
	if !int32PtrEqual(a.ASPathHead, b.ASPathHead) {
		return false
	}
	if len(a.Communities) != len(b.Communities) {
		return false
	}
	for i := range a.Communities {
		if a.Communities[i] != b.Communities[i] {
			return false
		}
	}
	return true
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int32PtrEqual(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
