// Package controller implements the execution state machine of spec.md
// §4.J: it drives a decompose.Decomposition's rounds against a live
// network, firing each atomic command's precondition/postcondition
// gate, one Step at a time.
package controller

import (
	"fmt"

	"github.com/nsg-ethz/chameleon/pkg/decompose"
	"github.com/nsg-ethz/chameleon/pkg/network"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// Stage is one of the six states of spec.md §4.J.
type Stage int

const (
	Setup Stage = iota
	UpdateBefore
	Main
	UpdateAfter
	Cleanup
	Finished
)

func (s Stage) String() string {
	switch s {
	case Setup:
		return "setup"
	case UpdateBefore:
		return "update-before"
	case Main:
		return "main"
	case UpdateAfter:
		return "update-after"
	case Cleanup:
		return "cleanup"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// CommandStatus is where one atomic command sits in its round's gate.
type CommandStatus int

const (
	WaitingPre CommandStatus = iota
	WaitingPost
	Done
)

// StateItem owns one stage's (or one prefix's stage-slice's) 2-D vector
// of rounds, the current round index, and a per-command status.
type StateItem[P comparable] struct {
	Rounds     []decompose.Round[P]
	RoundIndex int
	Status     [][]CommandStatus
}

func newStateItem[P comparable](rounds []decompose.Round[P]) *StateItem[P] {
	status := make([][]CommandStatus, len(rounds))
	for i, r := range rounds {
		status[i] = make([]CommandStatus, len(r))
	}
	si := &StateItem[P]{Rounds: rounds, Status: status}
	si.skipEmptyRounds()
	return si
}

func (si *StateItem[P]) finished() bool { return si.RoundIndex >= len(si.Rounds) }

func (si *StateItem[P]) skipEmptyRounds() {
	for !si.finished() && len(si.Rounds[si.RoundIndex]) == 0 {
		si.RoundIndex++
	}
}

// step attempts one increment of progress against net: for every
// not-yet-Done command in the current round, apply it if WaitingPre and
// its precondition holds, or mark it Done if its postcondition now
// holds. Advances to the next non-empty round once every command in the
// current one is Done. Reports whether anything changed.
func (si *StateItem[P]) step(net *network.Network[P]) (bool, error) {
	if si.finished() {
		return false, nil
	}
	round := si.Rounds[si.RoundIndex]
	status := si.Status[si.RoundIndex]
	changed := false

	for i, ac := range round {
		switch status[i] {
		case WaitingPre:
			if !ac.PreconditionHolds(net) {
				continue
			}
			for _, m := range ac.IntoRaw() {
				if m == nil {
					continue
				}
				if err := net.ApplyModifier(m); err != nil {
					return changed, err
				}
			}
			changed = true
			if ac.PostconditionHolds(net) {
				status[i] = Done
			} else {
				status[i] = WaitingPost
			}
		case WaitingPost:
			if ac.PostconditionHolds(net) {
				status[i] = Done
				changed = true
			}
		}
	}

	allDone := true
	for _, s := range status {
		if s != Done {
			allDone = false
			break
		}
	}
	if allDone {
		si.RoundIndex++
		si.skipEmptyRounds()
		changed = true
	}
	return changed, nil
}

// Progress is the result of one Step call (spec.md §6's execution API).
type Progress int

const (
	// Changed: some command fired, or a stage advanced.
	Changed Progress = iota
	// NoChange: nothing fired this step, but the controller is not stuck
	// — it is waiting on pending network events.
	NoChange
	// Complete: the controller reached the Finished stage.
	Complete
)

func (p Progress) String() string {
	switch p {
	case Changed:
		return "changed"
	case NoChange:
		return "no-change"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Controller drives a Decomposition's stages in order.
type Controller[P comparable] struct {
	stage Stage

	setup       *StateItem[P]
	before      map[P]*StateItem[P]
	beforeOrder []P
	main        *StateItem[P]
	after       map[P]*StateItem[P]
	afterOrder  []P
	cleanup     *StateItem[P]
}

// New builds a Controller for decomp, starting in Setup.
func New[P comparable](decomp *decompose.Decomposition[P]) *Controller[P] {
	c := &Controller[P]{
		stage:   Setup,
		setup:   newStateItem(decomp.SetupCommands),
		before:  map[P]*StateItem[P]{},
		main:    newStateItem(decomp.MainCommands),
		after:   map[P]*StateItem[P]{},
		cleanup: newStateItem(decomp.CleanupCommands),
	}
	for p, rounds := range decomp.AtomicBefore {
		c.before[p] = newStateItem(rounds)
		c.beforeOrder = append(c.beforeOrder, p)
	}
	for p, rounds := range decomp.AtomicAfter {
		c.after[p] = newStateItem(rounds)
		c.afterOrder = append(c.afterOrder, p)
	}
	return c
}

// Stage reports the controller's current stage.
func (c *Controller[P]) Stage() Stage { return c.stage }

// Step advances the controller by one increment against net (spec.md
// §6's execution API). Any non-nil error is the NetworkError category
// except a *util.StuckError, which is the Stuck category: liveness
// failure where no command in the active stage can progress and no
// network events are pending.
func (c *Controller[P]) Step(net *network.Network[P]) (Progress, error) {
	switch c.stage {
	case Setup:
		return c.advanceSingle(net, c.setup, UpdateBefore)
	case Main:
		return c.advanceSingle(net, c.main, UpdateAfter)
	case Cleanup:
		return c.advanceSingle(net, c.cleanup, Finished)
	case UpdateBefore:
		return c.advanceMulti(net, c.before, c.beforeOrder, Main)
	case UpdateAfter:
		return c.advanceMulti(net, c.after, c.afterOrder, Cleanup)
	default: // Finished
		return Complete, nil
	}
}

func (c *Controller[P]) advanceSingle(net *network.Network[P], si *StateItem[P], next Stage) (Progress, error) {
	if si.finished() {
		c.stage = next
		return c.progressAfterTransition(), nil
	}
	changed, err := si.step(net)
	if err != nil {
		return NoChange, fmt.Errorf("controller: stage %s round %d: %w", c.stage, si.RoundIndex, err)
	}
	if si.finished() {
		c.stage = next
		return c.progressAfterTransition(), nil
	}
	if changed {
		return Changed, nil
	}
	if net.QueueLen() == 0 {
		return NoChange, util.NewStuckError(c.stage.String(), si.RoundIndex)
	}
	return NoChange, nil
}

func (c *Controller[P]) advanceMulti(net *network.Network[P], items map[P]*StateItem[P], order []P, next Stage) (Progress, error) {
	anyChanged := false
	for _, p := range order {
		si := items[p]
		if si.finished() {
			continue
		}
		changed, err := si.step(net)
		if err != nil {
			return NoChange, fmt.Errorf("controller: stage %s prefix %v: %w", c.stage, p, err)
		}
		if changed {
			anyChanged = true
		}
	}
	allFinished := true
	for _, p := range order {
		if !items[p].finished() {
			allFinished = false
			break
		}
	}
	if allFinished {
		c.stage = next
		return c.progressAfterTransition(), nil
	}
	if anyChanged {
		return Changed, nil
	}
	if net.QueueLen() == 0 {
		return NoChange, util.NewStuckError(c.stage.String(), 0)
	}
	return NoChange, nil
}

func (c *Controller[P]) progressAfterTransition() Progress {
	if c.stage == Finished {
		return Complete
	}
	return Changed
}
