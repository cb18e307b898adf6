// Package invariant implements the specification language of spec.md
// §4.K: FwPolicy variants over a router's forwarding state for a prefix,
// a path-condition expression language compiled to an NFA, and a Checker
// that evaluates a full specification against a forwarding.State,
// returning false on the first violation.
package invariant

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nsg-ethz/chameleon/pkg/forwarding"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

// Kind is which FwPolicy variant a Policy carries.
type Kind int

const (
	Reachable Kind = iota
	NotReachable
	LoopFree
	PathCondition
)

func (k Kind) String() string {
	switch k {
	case Reachable:
		return "reachable"
	case NotReachable:
		return "not-reachable"
	case LoopFree:
		return "loop-free"
	case PathCondition:
		return "path-condition"
	default:
		return "unknown"
	}
}

// Policy is one FwPolicy entry: a router and prefix it constrains, which
// kind of constraint, and (for PathCondition only) the expression every
// observed path must satisfy.
type Policy[P comparable] struct {
	Router int
	Prefix P
	Kind   Kind
	Expr   Expr // only read when Kind == PathCondition
}

// Spec is a full specification: router -> the policies that apply to it.
type Spec[P comparable] map[int][]Policy[P]

// Violation names the policy that failed and why.
type Violation[P comparable] struct {
	Policy Policy[P]
	Reason error
}

func (v *Violation[P]) Error() string {
	return fmt.Sprintf("router %d prefix %v (%s): %v", v.Policy.Router, v.Policy.Prefix, v.Policy.Kind, v.Reason)
}

// Checker evaluates a Spec against successive forwarding.State snapshots.
type Checker[P comparable] struct {
	spec Spec[P]
}

// NewChecker builds a checker over spec.
func NewChecker[P comparable](spec Spec[P]) *Checker[P] {
	return &Checker[P]{spec: spec}
}

// Step evaluates every policy against fw in a deterministic (router-id,
// then declaration) order and returns false on the first violation found,
// per spec.md §4.K.
func (c *Checker[P]) Step(fw *forwarding.State[P]) (bool, *Violation[P]) {
	routers := make([]int, 0, len(c.spec))
	for r := range c.spec {
		routers = append(routers, r)
	}
	sort.Ints(routers)

	for _, router := range routers {
		for _, p := range c.spec[router] {
			ok, err := evaluate(fw, p)
			if !ok {
				return false, &Violation[P]{Policy: p, Reason: err}
			}
		}
	}
	return true, nil
}

var errUnexpectedlyReachable = errors.New("expected no forwarding path but one exists")

func evaluate[P comparable](fw *forwarding.State[P], p Policy[P]) (bool, error) {
	switch p.Kind {
	case Reachable:
		_, err := fw.Paths(p.Router, p.Prefix)
		return err == nil, err

	case NotReachable:
		_, err := fw.Paths(p.Router, p.Prefix)
		var blackHole *util.BlackHoleError
		if errors.As(err, &blackHole) {
			return true, nil
		}
		if err != nil {
			return false, err // a loop is neither reachable nor cleanly unreachable
		}
		return false, errUnexpectedlyReachable

	case LoopFree:
		_, err := fw.Paths(p.Router, p.Prefix)
		var loop *util.ForwardingLoopError
		if errors.As(err, &loop) {
			return false, err
		}
		return true, nil // a black hole or a successful resolution are both loop-free

	case PathCondition:
		paths, err := fw.Paths(p.Router, p.Prefix)
		if err != nil {
			return false, err
		}
		for _, path := range paths {
			if !p.Expr.Eval(path) {
				return false, fmt.Errorf("path %v violates the path condition", path)
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("unknown policy kind %v", p.Kind)
	}
}
