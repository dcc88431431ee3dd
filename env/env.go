package env

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrDuplicateSort = errors.New("duplicate sort")
	ErrDuplicateTerm = errors.New("duplicate term")
	ErrUnknownSort   = errors.New("unknown sort")
	ErrMalformedDef  = errors.New("malformed definition")
)

// Lookup is read access to an environment: name resolution for sorts and
// terms, and declaration access by id.
type Lookup interface {
	SortByName(name string) (SortID, bool)
	TermByName(name string) (TermID, bool)
	Sort(id SortID) *Sort
	Term(id TermID) *Term
}

// ---------------------------------------------------------------------------
// Env: the mutable environment
// ---------------------------------------------------------------------------

// Env is an append-only table of sorts and terms. Ids are assigned in
// declaration order, so a definition can only mention terms declared
// before it.
type Env struct {
	sorts     []Sort
	terms     []Term
	sortNames map[string]SortID
	termNames map[string]TermID
}

// New creates an empty environment.
func New() *Env {
	return &Env{
		sortNames: make(map[string]SortID),
		termNames: make(map[string]TermID),
	}
}

// AddSort declares a sort.
func (e *Env) AddSort(name string) (SortID, error) {
	if _, ok := e.sortNames[name]; ok {
		return 0, fmt.Errorf("%w: '%s'", ErrDuplicateSort, name)
	}
	id := SortID(len(e.sorts))
	e.sorts = append(e.sorts, Sort{Name: name})
	e.sortNames[name] = id
	return id, nil
}

// MustAddSort is like AddSort but panics on error. Useful for fixtures.
func (e *Env) MustAddSort(name string) SortID {
	id, err := e.AddSort(name)
	if err != nil {
		panic(err)
	}
	return id
}

// AddTerm declares a term or definition after checking that its sorts
// exist and, for definitions, that its body only refers backwards.
func (e *Env) AddTerm(t Term) (TermID, error) {
	if _, ok := e.termNames[t.Name]; ok {
		return 0, fmt.Errorf("%w: '%s'", ErrDuplicateTerm, t.Name)
	}
	for _, a := range t.Args {
		if int(a.Sort) >= len(e.sorts) {
			return 0, fmt.Errorf("%w %d in argument '%s' of '%s'", ErrUnknownSort, a.Sort, a.Name, t.Name)
		}
	}
	if int(t.Ret) >= len(e.sorts) {
		return 0, fmt.Errorf("%w %d as return sort of '%s'", ErrUnknownSort, t.Ret, t.Name)
	}
	id := TermID(len(e.terms))
	if t.Def != nil {
		if err := e.checkDef(id, len(t.Args), t.Def); err != nil {
			return 0, fmt.Errorf("%w '%s': %v", ErrMalformedDef, t.Name, err)
		}
	}
	e.terms = append(e.terms, t)
	e.termNames[t.Name] = id
	return id, nil
}

// MustAddTerm is like AddTerm but panics on error.
func (e *Env) MustAddTerm(t Term) TermID {
	id, err := e.AddTerm(t)
	if err != nil {
		panic(err)
	}
	return id
}

func (e *Env) checkDef(self TermID, nargs int, d *Expr) error {
	if len(d.Heap) < nargs {
		return fmt.Errorf("heap has %d entries, want at least %d", len(d.Heap), nargs)
	}
	for i := 0; i < nargs; i++ {
		r, ok := d.Heap[i].(*Ref)
		if !ok || r.Index != i {
			return fmt.Errorf("heap entry %d must reference parameter %d", i, i)
		}
	}
	for i := nargs; i < len(d.Heap); i++ {
		if err := e.checkNode(self, d.Heap[i], i); err != nil {
			return fmt.Errorf("heap entry %d: %v", i, err)
		}
	}
	if d.Head == nil {
		return errors.New("missing body")
	}
	return e.checkNode(self, d.Head, len(d.Heap))
}

// checkNode verifies that n references only heap slots below limit and
// only terms declared before self.
func (e *Env) checkNode(self TermID, n ExprNode, limit int) error {
	switch n := n.(type) {
	case *Ref:
		if n.Index < 0 || n.Index >= limit {
			return fmt.Errorf("reference %d out of range", n.Index)
		}
	case *App:
		if n.Term >= self {
			return fmt.Errorf("term %d is not declared before use", n.Term)
		}
		if want := len(e.terms[n.Term].Args); want != len(n.Args) {
			return fmt.Errorf("'%s' applied to %d arguments, want %d", e.terms[n.Term].Name, len(n.Args), want)
		}
		for _, a := range n.Args {
			if err := e.checkNode(self, a, limit); err != nil {
				return err
			}
		}
	case *Dummy:
		if int(n.Sort) >= len(e.sorts) {
			return fmt.Errorf("dummy '%s' has %v %d", n.Name, ErrUnknownSort, n.Sort)
		}
	default:
		return fmt.Errorf("unexpected node %T", n)
	}
	return nil
}

// SortByName implements Lookup.
func (e *Env) SortByName(name string) (SortID, bool) {
	id, ok := e.sortNames[name]
	return id, ok
}

// TermByName implements Lookup.
func (e *Env) TermByName(name string) (TermID, bool) {
	id, ok := e.termNames[name]
	return id, ok
}

// Sort implements Lookup. It returns nil for an unknown id.
func (e *Env) Sort(id SortID) *Sort {
	if int(id) >= len(e.sorts) {
		return nil
	}
	return &e.sorts[id]
}

// Term implements Lookup. It returns nil for an unknown id.
func (e *Env) Term(id TermID) *Term {
	if int(id) >= len(e.terms) {
		return nil
	}
	return &e.terms[id]
}

// SortCount returns the number of declared sorts.
func (e *Env) SortCount() int { return len(e.sorts) }

// TermCount returns the number of declared terms.
func (e *Env) TermCount() int { return len(e.terms) }

// Freeze returns a read-only snapshot of the environment as it is now.
// Later declarations on e are not visible through the snapshot.
func (e *Env) Freeze() *Snapshot {
	s := &Snapshot{env: Env{
		sorts:     make([]Sort, len(e.sorts)),
		terms:     make([]Term, len(e.terms)),
		sortNames: make(map[string]SortID, len(e.sortNames)),
		termNames: make(map[string]TermID, len(e.termNames)),
	}}
	copy(s.env.sorts, e.sorts)
	copy(s.env.terms, e.terms)
	for k, v := range e.sortNames {
		s.env.sortNames[k] = v
	}
	for k, v := range e.termNames {
		s.env.termNames[k] = v
	}
	return s
}

// ---------------------------------------------------------------------------
// Snapshot: frozen, shareable view
// ---------------------------------------------------------------------------

// Snapshot is an immutable environment. It is safe for concurrent reads.
type Snapshot struct {
	env Env
}

// FromDecls rebuilds a snapshot from declarations in id order, checking
// each one as AddSort and AddTerm would.
func FromDecls(sorts []Sort, terms []Term) (*Snapshot, error) {
	e := New()
	for _, s := range sorts {
		if _, err := e.AddSort(s.Name); err != nil {
			return nil, err
		}
	}
	for _, t := range terms {
		if _, err := e.AddTerm(t); err != nil {
			return nil, err
		}
	}
	return &Snapshot{env: *e}, nil
}

func (s *Snapshot) SortByName(name string) (SortID, bool) { return s.env.SortByName(name) }
func (s *Snapshot) TermByName(name string) (TermID, bool) { return s.env.TermByName(name) }
func (s *Snapshot) Sort(id SortID) *Sort                  { return s.env.Sort(id) }
func (s *Snapshot) Term(id TermID) *Term                  { return s.env.Term(id) }

// Sorts returns the declared sorts in id order.
func (s *Snapshot) Sorts() []Sort { return slices.Clone(s.env.sorts) }

// Terms returns the declared terms in id order.
func (s *Snapshot) Terms() []Term { return slices.Clone(s.env.terms) }
