package prefix

import "strconv"

// Flat is the flat integer-keyed prefix variant: an opaque destination id
// with no nesting. Longest-prefix-match degenerates to exact match, which
// is what makes this variant cheap to use in tests that don't need real
// IPv4 semantics. Defined as an alias (rather than a distinct named type)
// so packages that are generic over router/prefix ids (both plain int)
// can use FlatOps directly without a conversion at every call site.
type Flat = int

// FlatOps is the Ops value for the Flat variant.
var FlatOps = Ops[Flat]{
	Contains:    func(outer, inner Flat) bool { return outer == inner },
	Specificity: func(Flat) int { return 0 },
	Less:        func(a, b Flat) bool { return a < b },
	String:      func(f Flat) string { return strconv.Itoa(int(f)) },
}
