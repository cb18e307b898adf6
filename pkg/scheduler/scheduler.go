// Package scheduler assigns each atomic command in a dependency graph to
// a round number, honoring every dependency edge, a temp-session cap and
// a wall-clock timeout (spec.md §4.H).
//
// Spec.md §4.H describes this as a mixed-integer linear program
// minimizing a weighted cost (rounds + temp-session usages + distinct
// updates per router); no ILP backend is among the pack's dependencies
// (see DESIGN.md). This package does NOT minimize that cost. It produces
// a single feasible, dependency-respecting round assignment via a
// deterministic longest-path DAG layering (Kahn's algorithm) — optimal
// for "fewest rounds" when the only hard constraints are precedence
// edges, but blind to temp-session usage and per-router update count.
// Cost is computed and reported for the schedule this produces, not
// searched over alternatives to minimize.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/nsg-ethz/chameleon/pkg/command"
	"github.com/nsg-ethz/chameleon/pkg/depgraph"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// Outcome is which of the three planning results a Result carries.
type Outcome int

const (
	Feasible Outcome = iota
	Infeasible
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Cost is the weighted objective spec.md §4.H describes, computed (but
// not searched over, see package doc) for the produced schedule.
type Cost struct {
	RoundsUsed      int
	TempSessionUses int
	DistinctUpdates int
}

// Weighted combines the three cost components with the given weights.
func (c Cost) Weighted(roundWeight, tempSessionWeight, updateWeight float64) float64 {
	return float64(c.RoundsUsed)*roundWeight +
		float64(c.TempSessionUses)*tempSessionWeight +
		float64(c.DistinctUpdates)*updateWeight
}

// Schedule assigns every command index to a non-negative round.
type Schedule struct {
	Rounds []int
	Cost   Cost
}

// RoundOf returns the round assigned to command i.
func (s *Schedule) RoundOf(i int) int { return s.Rounds[i] }

// NumRounds returns one past the highest assigned round, or 0 if Rounds
// is empty.
func (s *Schedule) NumRounds() int {
	max := -1
	for _, r := range s.Rounds {
		if r > max {
			max = r
		}
	}
	return max + 1
}

// Result is the outcome of a Solve call.
type Result struct {
	Outcome  Outcome
	Schedule *Schedule // non-nil only when Outcome == Feasible
	Reason   error     // non-nil when Outcome != Feasible
}

// Options configures Solve.
type Options struct {
	// Timeout bounds wall-clock solving time; zero means no timeout.
	Timeout time.Duration
	// TempSessionCap, if non-nil, bounds how many UseTempSession commands
	// may appear in the schedule.
	TempSessionCap *int
}

// Solve assigns every command in commands to a round, respecting edges
// (from depgraph.Build), per spec.md §4.H.
func Solve[P comparable](ctx context.Context, commands []command.AtomicCommand[P], edges []depgraph.Edge, opts Options) Result {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return Result{Outcome: Timeout, Reason: fmt.Errorf("%w: %v", util.ErrSolverTimeout, err)}
	}

	if cap := opts.TempSessionCap; cap != nil {
		used := countTempSessions(commands)
		if used > *cap {
			return Result{Outcome: Infeasible, Reason: fmt.Errorf(
				"%w: %d temporary sessions required, cap is %d", util.ErrInfeasible, used, *cap)}
		}
	}

	rounds, err := layer(len(commands), edges)
	if err != nil {
		return Result{Outcome: Infeasible, Reason: err}
	}

	select {
	case <-ctx.Done():
		return Result{Outcome: Timeout, Reason: fmt.Errorf("%w: %v", util.ErrSolverTimeout, ctx.Err())}
	default:
	}

	return Result{Outcome: Feasible, Schedule: &Schedule{Rounds: rounds, Cost: computeCost(commands, rounds)}}
}

// layer assigns each of n commands a round via longest-path DAG layering:
// round(i) = 1 + max(round(predecessor)) over every edge ending at i, or
// 0 if i has none. Returns an Infeasible error (wrapping
// util.ErrInfeasible) if edges contain a cycle, since no round
// assignment can then satisfy every precedence constraint.
func layer(n int, edges []depgraph.Edge) ([]int, error) {
	successors := make([][]int, n)
	indegree := make([]int, n)
	for _, e := range edges {
		successors[e.From] = append(successors[e.From], e.To)
		indegree[e.To]++
	}

	rounds := make([]int, n)
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	processed := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		processed++
		for _, v := range successors[u] {
			if rounds[u]+1 > rounds[v] {
				rounds[v] = rounds[u] + 1
			}
			indegree[v]--
			if indegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if processed != n {
		return nil, fmt.Errorf("%w: cyclic command dependency (%d of %d commands unorderable)", util.ErrInfeasible, n-processed, n)
	}
	return rounds, nil
}

func countTempSessions[P comparable](commands []command.AtomicCommand[P]) int {
	n := 0
	for _, ac := range commands {
		if ac.Command.Kind == command.UseTempSession {
			n++
		}
	}
	return n
}

func computeCost[P comparable](commands []command.AtomicCommand[P], rounds []int) Cost {
	roundsUsed := 0
	for _, r := range rounds {
		if r+1 > roundsUsed {
			roundsUsed = r + 1
		}
	}
	routers := map[int]struct{}{}
	tempSessions := 0
	for _, ac := range commands {
		routers[ac.Command.Router] = struct{}{}
		if ac.Command.Kind == command.UseTempSession {
			tempSessions++
		}
	}
	return Cost{RoundsUsed: roundsUsed, TempSessionUses: tempSessions, DistinctUpdates: len(routers)}
}
