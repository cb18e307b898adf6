// Package routemap implements the route-map engine of spec.md §4.B: an
// ordered sequence of match/set/flow entries applied functionally to a BGP
// route.
//
// A route-map is a named ordered list of entries keyed by an integer
// Order, with insert-in-order and lookup-by-key helpers. Order runs
// ascending: the lowest Order is evaluated first, matching vendor
// route-map convention.
package routemap

import (
	"fmt"
	"sort"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// EntryState is whether a matched entry allows or denies the route.
type EntryState int

const (
	Allow EntryState = iota
	Deny
)

// FlowKind is the flow directive a matched entry issues.
type FlowKind int

const (
	// FlowExit terminates evaluation, returning the current route.
	FlowExit FlowKind = iota
	// FlowContinue advances to the next entry in sequence order.
	FlowContinue
	// FlowContinueAt skips to the first entry with Order >= At.
	FlowContinueAt
)

// Flow is the next-entry directive issued by a matched entry.
type Flow struct {
	Kind FlowKind
	At   int // meaningful only when Kind == FlowContinueAt
}

// ContinueTo builds a FlowContinueAt directive.
func ContinueTo(order int) Flow { return Flow{Kind: FlowContinueAt, At: order} }

// Exit builds a FlowExit directive.
func Exit() Flow { return Flow{Kind: FlowExit} }

// Continue builds a FlowContinue directive.
func Continue() Flow { return Flow{Kind: FlowContinue} }

// Entry is a single route-map clause: a conjunction of matches, and, if
// matched, a state (allow/deny), a list of set actions (applied in order,
// allow entries only) and a flow directive.
type Entry[P comparable] struct {
	Order   int
	State   EntryState
	Matches []Match[P]
	Sets    []Set[P]
	Flow    Flow
}

// RouteMap is the named, ordered sequence of entries applied to routes.
// Entries are kept sorted by Order ascending at all times.
type RouteMap[P comparable] struct {
	Name    string
	Entries []*Entry[P]
}

// New creates an empty named route-map.
func New[P comparable](name string) *RouteMap[P] {
	return &RouteMap[P]{Name: name}
}

// AddEntry inserts entry in Order order, replacing any existing entry at
// the same Order. Returns a *util.ValidationError if entry uses
// FlowContinueAt with a target at or before its own Order — per spec.md
// §9's design note, ContinueAt jumps must be forward-only so the engine
// cannot loop.
func (m *RouteMap[P]) AddEntry(entry *Entry[P]) error {
	if entry.Flow.Kind == FlowContinueAt && entry.Flow.At <= entry.Order {
		return util.NewValidationError(fmt.Sprintf(
			"route-map entry order %d: ContinueAt target must be greater than the entry's own order", entry.Order))
	}
	for i, e := range m.Entries {
		if e.Order == entry.Order {
			m.Entries[i] = entry
			return nil
		}
	}
	m.Entries = append(m.Entries, entry)
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Order < m.Entries[j].Order })
	return nil
}

// RemoveEntry deletes the entry at the given order, reporting whether one
// was found.
func (m *RouteMap[P]) RemoveEntry(order int) bool {
	for i, e := range m.Entries {
		if e.Order == order {
			m.Entries = append(m.Entries[:i], m.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// GetEntry returns the entry at the given order, or nil.
func (m *RouteMap[P]) GetEntry(order int) *Entry[P] {
	for _, e := range m.Entries {
		if e.Order == order {
			return e
		}
	}
	return nil
}

// Apply runs the route-map's entries against route and returns the
// resulting route (a deep copy; the input is never mutated) and whether
// the route survives (true) or was filtered by a deny entry (false).
//
// Entries that do not match are skipped without consuming a flow
// directive. A matched deny entry filters the route immediately. A
// matched allow entry applies its set actions in order, then follows its
// flow directive: Exit stops and returns the route so far; Continue moves
// to the next entry in sequence; ContinueAt(k) jumps to the first
// remaining entry with Order >= k, or stops if none exists. If no entry
// ever matches, the route is returned unchanged (still a copy).
func Apply[P comparable](entries []*Entry[P], route *bgp.Route[P]) (*bgp.Route[P], bool) {
	working := route.Clone()
	i := 0
	for i < len(entries) {
		entry := entries[i]
		if !allMatch(entry.Matches, working) {
			i++
			continue
		}
		if entry.State == Deny {
			return nil, false
		}
		for _, set := range entry.Sets {
			set(working)
		}
		switch entry.Flow.Kind {
		case FlowExit:
			return working, true
		case FlowContinue:
			i++
		case FlowContinueAt:
			next := -1
			for j := i + 1; j < len(entries); j++ {
				if entries[j].Order >= entry.Flow.At {
					next = j
					break
				}
			}
			if next == -1 {
				return working, true
			}
			i = next
		}
	}
	return working, true
}

// Apply runs the route-map's own entries; a convenience wrapper around the
// package-level Apply.
func (m *RouteMap[P]) Apply(route *bgp.Route[P]) (*bgp.Route[P], bool) {
	return Apply(m.Entries, route)
}
