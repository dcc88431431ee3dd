package env

// ---------------------------------------------------------------------------
// Expression nodes (deduplicated form)
// ---------------------------------------------------------------------------

// ExprNode is the interface implemented by all heap expression nodes.
type ExprNode interface {
	exprNode() // marker method
}

// Ref references a bound parameter or an earlier heap slot by index.
type Ref struct {
	Index int
}

// App applies a term to an ordered list of argument nodes.
type App struct {
	Term TermID
	Args []ExprNode
}

// Dummy is a dummy variable. It never denotes a string.
type Dummy struct {
	Name string
	Sort SortID
}

func (*Ref) exprNode()   {}
func (*App) exprNode()   {}
func (*Dummy) exprNode() {}

// ---------------------------------------------------------------------------
// Tree values (before deduplication)
// ---------------------------------------------------------------------------

// Value is a typed term value as produced by elaboration. Values are plain
// trees; the dag package turns them into shared heaps.
type Value interface {
	value() // marker method
}

// VarValue references the Index'th formal parameter of the definition
// being elaborated.
type VarValue struct {
	Index int
}

// AppValue applies a term to argument values.
type AppValue struct {
	Term TermID
	Args []Value
}

// DummyValue is a dummy variable occurrence.
type DummyValue struct {
	Name string
	Sort SortID
}

func (*VarValue) value()   {}
func (*AppValue) value()   {}
func (*DummyValue) value() {}

// Apply is shorthand for building an application value.
func Apply(t TermID, args ...Value) *AppValue {
	return &AppValue{Term: t, Args: args}
}
