package invariant

// Expr is a Boolean combination of path patterns (spec.md §4.K). A path
// satisfies an Expr if Eval returns true for it.
type Expr interface {
	Eval(path []int) bool
}

type patternExpr struct {
	compiled *nfa
}

// Match builds a leaf Expr: the path pattern formed by concatenating
// tokens in order.
func Match(tokens ...Token) Expr {
	return &patternExpr{compiled: compilePattern(tokens)}
}

func (e *patternExpr) Eval(path []int) bool { return e.compiled.accepts(path) }

type andExpr struct{ a, b Expr }

// And builds the conjunction of two expressions.
func And(a, b Expr) Expr { return &andExpr{a: a, b: b} }

func (e *andExpr) Eval(path []int) bool { return e.a.Eval(path) && e.b.Eval(path) }

type orExpr struct{ a, b Expr }

// Or builds the disjunction of two expressions.
func Or(a, b Expr) Expr { return &orExpr{a: a, b: b} }

func (e *orExpr) Eval(path []int) bool { return e.a.Eval(path) || e.b.Eval(path) }

type notExpr struct{ e Expr }

// Not negates an expression.
func Not(e Expr) Expr { return &notExpr{e: e} }

func (e *notExpr) Eval(path []int) bool { return !e.e.Eval(path) }
