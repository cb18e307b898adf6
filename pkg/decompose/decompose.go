// Package decompose implements the decomposition compiler of spec.md
// §4.I: it turns a configuration diff plus initial/target networks into
// a Decomposition — setup, atomic-before, main,
// atomic-after and cleanup command rounds — by classifying each
// modifier, computing route equivalence classes per affected prefix, and
// calling the scheduler to order the atomic commands into rounds.
package decompose

import (
	"context"
	"sort"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/command"
	"github.com/nsg-ethz/chameleon/pkg/depgraph"
	"github.com/nsg-ethz/chameleon/pkg/device"
	"github.com/nsg-ethz/chameleon/pkg/forwarding"
	"github.com/nsg-ethz/chameleon/pkg/network"
	"github.com/nsg-ethz/chameleon/pkg/routemap"
	"github.com/nsg-ethz/chameleon/pkg/scheduler"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// DiffKind classifies one configuration-diff entry (spec.md §4.I step
// 1): whether it can only affect IGP-derived state, only BGP-derived
// state, or both (in which case the caller has already split it into the
// per-prefix BGP slices it affects, carried in Prefixes).
type DiffKind int

const (
	IGPOnly DiffKind = iota
	BGPOnly
	Composite
)

// DiffEntry is one entry of the configuration diff the compiler
// consumes: the raw modifier plus (for BGPOnly/Composite) the prefixes
// it affects. IGP-only entries carry no prefixes: IGP convergence is
// prefix-independent, per spec.md §4.I step 2.
type DiffEntry[P comparable] struct {
	Kind     DiffKind
	Modifier network.Modifier[P]
	Prefixes []P
}

// Round is one round's worth of atomic commands.
type Round[P comparable] []command.AtomicCommand[P]

// Decomposition is the full plan of spec.md §3.
type Decomposition[P comparable] struct {
	SetupCommands   []Round[P]
	AtomicBefore    map[P][]Round[P]
	MainCommands    []Round[P]
	AtomicAfter     map[P][]Round[P]
	CleanupCommands []Round[P]
}

// trivial wraps a raw modifier with vacuous pre/postconditions, for
// changes the compiler does not need to bracket (IGP-only modifiers, and
// the raw modifier of a BGP-affecting diff entry itself).
func trivial[P comparable](m network.Modifier[P]) command.AtomicCommand[P] {
	return command.AtomicCommand[P]{
		Precondition:  command.Always[P](),
		Command:       command.Command[P]{Kind: command.Raw, RawModifier: m},
		Postcondition: command.Always[P](),
	}
}

// Compile runs the pipeline of spec.md §4.I. It takes no invariant
// specification: the rounds it produces are ordered only by the
// dependency edges between atomic commands and the scheduler's options,
// and no per-prefix forwarding policy is checked against them.
func Compile[P comparable](before, after *network.Network[P], diff []DiffEntry[P], opts scheduler.Options) (*Decomposition[P], error) {
	d := &Decomposition[P]{
		AtomicBefore: map[P][]Round[P]{},
		AtomicAfter:  map[P][]Round[P]{},
	}

	bracketed := map[bracketTarget]struct{}{}

	for _, entry := range diff {
		switch entry.Kind {
		case IGPOnly:
			d.MainCommands = append(d.MainCommands, Round[P]{trivial(entry.Modifier)})

		case BGPOnly, Composite:
			resolvedByCommand := map[bracketTarget]struct{}{}
			if rmMod, ok := entry.Modifier.(*network.RouteMapEntryModifier[P]); ok {
				if setup, need := blockingRouteMapFlip(before, rmMod); need {
					d.SetupCommands = append(d.SetupCommands, Round[P]{setup})
					// The setup command resolved this slot directly (it is
					// the same flip the raw modifier itself applies, just
					// run early): bracketing it again in atomic_before
					// would only add a RaiseLocalPref whose precondition
					// (the pre-flip egress still selected) the setup
					// command has already made permanently false.
					resolvedByCommand[bracketTarget{router: rmMod.Router, peer: rmMod.Peer}] = struct{}{}
				}
			}

			for _, p := range entry.Prefixes {
				beforeCmds, afterCmds, targets := planAtomicBracket(before, after, p, resolvedByCommand)

				beforeRounds, err := scheduleRounds(beforeCmds, opts)
				if err != nil {
					return nil, err
				}
				afterRounds, err := scheduleRounds(afterCmds, opts)
				if err != nil {
					return nil, err
				}

				d.AtomicBefore[p] = append(d.AtomicBefore[p], beforeRounds...)
				d.MainCommands = append(d.MainCommands, Round[P]{trivial(entry.Modifier)})
				d.AtomicAfter[p] = append(d.AtomicAfter[p], afterRounds...)

				for _, t := range targets {
					bracketed[t] = struct{}{}
				}
			}

		default:
			return nil, util.NewValidationError("unknown diff entry kind")
		}
	}

	d.CleanupCommands = cleanupRounds[P](bracketed)
	return d, nil
}

// bracketTarget names one (router, peer) inbound route-map slot that a
// bracket command (planAtomicBracket, either kind) touched at
// previewEntryOrder.
type bracketTarget struct {
	router, peer int
}

// cleanupRounds builds one cleanup round per bracketed slot, removing the
// preview route-map entry the Raise/Lower bracket leaves behind
// (spec.md §4.I step 4): atomic_after's LowerLocalPref restores the
// previewed prefix's local-pref but never removes the entry itself, so
// without cleanup every bracketed slot would accumulate a dead
// previewEntryOrder entry after each migration.
func cleanupRounds[P comparable](bracketed map[bracketTarget]struct{}) []Round[P] {
	targets := make([]bracketTarget, 0, len(bracketed))
	for t := range bracketed {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].router != targets[j].router {
			return targets[i].router < targets[j].router
		}
		return targets[i].peer < targets[j].peer
	})

	rounds := make([]Round[P], 0, len(targets))
	for _, t := range targets {
		rounds = append(rounds, Round[P]{trivial[P](&network.RouteMapEntryModifier[P]{
			Router:     t.router,
			Peer:       t.peer,
			Outbound:   false,
			Insert:     false,
			EntryOrder: previewEntryOrder,
		})})
	}
	return rounds
}

// blockingRouteMapFlip detects the one case atomic_before bracketing
// cannot paper over on its own (spec.md §8 scenario 2,
// "deny-then-allow"): the diff flips an existing inbound route-map entry
// from deny to allow, and that entry's order sits below
// previewEntryOrder. Route-map evaluation runs in ascending order and a
// matched deny entry exits immediately (routemap.Apply), so as long as
// that entry is still a deny, evaluation never reaches the bracket's own
// entry at previewEntryOrder: the preview can never win. The fix is to
// run the same flip as a setup command, ahead of atomic_before, so the
// blocking entry is already an allow by the time the bracket previews.
func blockingRouteMapFlip[P comparable](before *network.Network[P], mod *network.RouteMapEntryModifier[P]) (command.AtomicCommand[P], bool) {
	if mod == nil || !mod.Insert || mod.Entry == nil || mod.Entry.State != routemap.Allow || mod.EntryOrder >= previewEntryOrder {
		return command.AtomicCommand[P]{}, false
	}
	r, ok := before.Routers[mod.Router]
	if !ok {
		return command.AtomicCommand[P]{}, false
	}
	rm := r.InboundRouteMaps[mod.Peer]
	if mod.Outbound {
		rm = r.OutboundRouteMaps[mod.Peer]
	}
	if rm == nil {
		return command.AtomicCommand[P]{}, false
	}
	existing := rm.GetEntry(mod.EntryOrder)
	if existing == nil || existing.State != routemap.Deny {
		return command.AtomicCommand[P]{}, false
	}
	return trivial[P](mod), true
}

// planAtomicBracket computes the atomic_before/atomic_after commands for
// one prefix (spec.md §4.I step 3b/3d): every internal router whose
// egress for prefixKey differs between before and after gets a
// RaiseLocalPref previewing the new egress ahead of the raw modifier,
// undone by a matching LowerLocalPref afterward. The third return value
// lists every (router, peer) inbound slot a bracket touched, for
// Compile's cleanup pass. When the router has no direct session to the
// new egress, a temporary session is stood up for the duration of the
// bracket (spec.md §8 "temporary session" scenario) instead of skipping
// the router. resolvedByCommand names (router, peer) slots a setup
// command already flipped open (Compile's blockingRouteMapFlip): those
// routers are skipped here too, since bracketing them again would add a
// RaiseLocalPref whose precondition the setup command already made
// permanently unreachable.
func planAtomicBracket[P comparable](before, after *network.Network[P], prefixKey P, resolvedByCommand map[bracketTarget]struct{}) ([]command.AtomicCommand[P], []command.AtomicCommand[P], []bracketTarget) {
	fwBefore := forwarding.Resolve(before)
	fwAfter := forwarding.Resolve(after)

	var beforeCmds, afterCmds []command.AtomicCommand[P]
	var targets []bracketTarget
	for id, r := range after.Routers {
		if r.Kind != device.Internal {
			continue
		}
		oldEgress, okOld := soleEgress(fwBefore, id, prefixKey)
		newEgress, okNew := soleEgress(fwAfter, id, prefixKey)
		if !okOld || !okNew || oldEgress == newEgress {
			continue
		}
		if _, resolved := resolvedByCommand[bracketTarget{router: id, peer: newEgress}]; resolved {
			continue
		}

		peer, ok := previewPeer(r, newEgress)
		beforePre := command.Condition[P]{Kind: command.SelectedRoute, Router: id, Prefix: prefixKey, Equiv: command.ForEgress(oldEgress)}
		if !ok {
			// No direct session to the new egress. A router with no eBGP
			// session at all is a pure iBGP follower (like B in
			// deny-then-allow): it never chooses between egresses itself,
			// it only relays whatever its upstream selects, so it needs no
			// bracket of its own and is skipped exactly as before. A
			// router that already has some eBGP session but not to this
			// particular new egress is a border router mid-migration to a
			// peer it isn't sessioned with yet (spec.md §8 "temporary
			// session" scenario): stand one up for the bracket's duration.
			if !hasExternalSession(r) {
				continue
			}
			neighbor, okNeighbor := after.Routers[newEgress]
			if !okNeighbor {
				continue
			}
			peer = newEgress
			sessType := tempSessionType(neighbor)
			beforeCmds = append(beforeCmds, command.AtomicCommand[P]{
				Precondition:  command.Always[P](),
				Command:       command.Command[P]{Kind: command.UseTempSession, U: id, V: newEgress, UType: sessType, VType: sessType},
				Postcondition: command.Condition[P]{Kind: command.BgpSessionEstablished, Router: id, Peer: newEgress},
			})
			afterCmds = append(afterCmds, command.AtomicCommand[P]{
				Precondition:  command.Always[P](),
				Command:       command.Command[P]{Kind: command.TeardownTempSession, U: id, V: newEgress},
				Postcondition: command.Always[P](),
			})
			beforePre = command.Condition[P]{Kind: command.BgpSessionEstablished, Router: id, Peer: newEgress}
		}

		beforeCmds = append(beforeCmds, command.AtomicCommand[P]{
			Precondition:  beforePre,
			Command:       command.Command[P]{Kind: command.RaiseLocalPref, Router: id, Peer: peer, EntryOrder: previewEntryOrder, Prefix: prefixKey, Value: previewLocalPref},
			Postcondition: command.Condition[P]{Kind: command.SelectedRoute, Router: id, Prefix: prefixKey, Equiv: command.ForEgress(newEgress)},
		})
		afterCmds = append(afterCmds, command.AtomicCommand[P]{
			Precondition:  command.Condition[P]{Kind: command.SelectedRoute, Router: id, Prefix: prefixKey, Equiv: command.ForEgress(newEgress)},
			Command:       command.Command[P]{Kind: command.LowerLocalPref, Router: id, Peer: peer, EntryOrder: previewEntryOrder, Prefix: prefixKey, Value: bgp.DefaultLocalPref},
			Postcondition: command.Condition[P]{Kind: command.SelectedRoute, Router: id, Prefix: prefixKey, Equiv: command.ForEgress(newEgress)},
		})
		targets = append(targets, bracketTarget{router: id, peer: peer})
	}
	return beforeCmds, afterCmds, targets
}

// hasExternalSession reports whether r already holds at least one eBGP
// session, the signal that r is a border router a temporary-session
// bracket makes sense for, rather than a pure iBGP follower with no
// egress choice of its own to bracket.
func hasExternalSession[P comparable](r *device.Router[P]) bool {
	for _, s := range r.Sessions {
		if s.Type == bgp.EBGP {
			return true
		}
	}
	return false
}

// tempSessionType picks the session type appropriate for a temporary
// session to neighbor, matching how standing sessions are already
// classified (device.Router.Kind): eBGP to an external peer, iBGP
// otherwise.
func tempSessionType[P comparable](neighbor *device.Router[P]) bgp.SessionType {
	if neighbor.Kind == device.External {
		return bgp.EBGP
	}
	return bgp.IBGPPeer
}

// previewLocalPref is the temporary boost an atomic_before RaiseLocalPref
// applies; comfortably above any ordinary configured local-pref so it
// wins the decision process regardless of what else is in play.
const previewLocalPref = 500

// previewEntryOrder is the route-map order the preview bracket's entry
// occupies: high enough that once the main modifier's own (lower-order)
// route-map entry lands, that entry's Exit shadows the bracket before
// evaluation ever reaches it, so restoring the bracket's entry to the
// default local-pref in atomic_after cannot resurrect a stale preference.
// Only the bracket itself occupies this slot while it previews the new
// egress, since at that point the main modifier has not applied yet.
const previewEntryOrder = 32000

func soleEgress[P comparable](fw *forwarding.State[P], router int, prefixKey P) (int, bool) {
	paths, err := fw.Paths(router, prefixKey)
	if err != nil || len(paths) == 0 {
		return 0, false
	}
	egress := paths[0][len(paths[0])-1]
	for _, p := range paths[1:] {
		if p[len(p)-1] != egress {
			return 0, false // ambiguous (multipath to distinct egresses): not a clean bracket case
		}
	}
	return egress, true
}

// previewPeer finds the inbound route-map slot to boost: router's direct
// BGP session to newEgress. Returns false when no such session exists
// (e.g. newEgress is reached only through an iBGP reflector); whether
// planAtomicBracket then stands up a temporary session or skips the
// router entirely depends on whether it has any eBGP session at all
// (hasExternalSession).
func previewPeer[P comparable](r interface {
	HasSession(int) bool
}, newEgress int) (int, bool) {
	if r.HasSession(newEgress) {
		return newEgress, true
	}
	return 0, false
}

func scheduleRounds[P comparable](commands []command.AtomicCommand[P], opts scheduler.Options) ([]Round[P], error) {
	if len(commands) == 0 {
		return nil, nil
	}
	edges := depgraph.Build(commands)
	result := scheduler.Solve(context.Background(), commands, edges, opts)
	if result.Outcome != scheduler.Feasible {
		return nil, result.Reason
	}
	return groupRounds(commands, result.Schedule), nil
}

func groupRounds[P comparable](commands []command.AtomicCommand[P], sched *scheduler.Schedule) []Round[P] {
	rounds := make([]Round[P], sched.NumRounds())
	for i, ac := range commands {
		r := sched.RoundOf(i)
		rounds[r] = append(rounds[r], ac)
	}
	return rounds
}
