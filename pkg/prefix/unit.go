package prefix

// Unit is the trivial prefix variant: there is exactly one prefix, so every
// structure collapses to a single entry. Used in tests that want to scale
// implementation cost down to the minimum semantic content — a network
// with a single destination.
type Unit struct{}

// UnitOps is the Ops value for the Unit variant. Contains is always true:
// the one prefix always covers itself.
var UnitOps = Ops[Unit]{
	Contains:    func(outer, inner Unit) bool { return true },
	Specificity: func(Unit) int { return 0 },
	Less:        func(a, b Unit) bool { return false },
	String:      func(Unit) string { return "*" },
}
