package env

// SortID identifies a sort within one environment.
type SortID uint32

// TermID identifies a term or definition within one environment.
type TermID uint32

// Sort is a declared sort.
type Sort struct {
	Name string
}

// Binder is a formal parameter of a term: its name and its sort.
type Binder struct {
	Name string
	Sort SortID
}

// Term is a declared term. Abstract terms have no Def; definitions carry
// the expansion of their body.
type Term struct {
	Name string
	Args []Binder
	Ret  SortID
	Def  *Expr
}

// IsDef reports whether the term is a definition with a body.
func (t *Term) IsDef() bool { return t.Def != nil }

// Expr is the body of a definition. The first len(Args) heap entries stand
// for the formal parameters; the remaining entries are shared
// subexpressions, each referencing only lower indices. Head is the body
// itself.
type Expr struct {
	Heap []ExprNode
	Head ExprNode
}
