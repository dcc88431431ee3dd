package output

import (
	"fmt"

	"github.com/chazu/mmout/env"
)

// Evaluator turns deduplicated string expressions into bytes. It only
// reads from Env and Registry, so one evaluator can serve any number of
// runs.
type Evaluator struct {
	Env      env.Lookup
	Registry *Registry
}

// WriteOutput evaluates heap entries in index order, each into a reusable
// part, then streams every root into w. A statement that would fail for a
// logical reason fails before any of its bytes are written.
func (ev *Evaluator) WriteOutput(heap, roots []env.ExprNode, w *Writer) error {
	if err := ev.Preflight(heap, roots); err != nil {
		return err
	}
	resolved := make([]Part, 0, len(heap))
	for _, n := range heap {
		p, err := ev.EvaluateToPart(n, resolved)
		if err != nil {
			return err
		}
		resolved = append(resolved, p)
	}
	for _, n := range roots {
		if err := ev.WriteNode(n, resolved, w); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateToPart writes n into a fresh isolated writer and captures the
// result.
func (ev *Evaluator) EvaluateToPart(n env.ExprNode, resolved []Part) (Part, error) {
	w := newPartWriter()
	if err := ev.WriteNode(n, resolved, w); err != nil {
		return Part{}, err
	}
	return w.Part(), nil
}

// WriteNode streams n into w. References index into resolved.
func (ev *Evaluator) WriteNode(n env.ExprNode, resolved []Part, w *Writer) error {
	switch n := n.(type) {
	case *env.Dummy:
		return ErrDummyNotAllowed
	case *env.Ref:
		if n.Index < 0 || n.Index >= len(resolved) {
			return fmt.Errorf("%w: reference %d out of range", ErrMalformed, n.Index)
		}
		return w.WritePart(resolved[n.Index])
	case *env.App:
		b, ok := ev.Registry.Lookup(n.Term)
		if !ok {
			return ev.unfold(n, resolved, w)
		}
		if err := checkArity(b.Op, len(n.Args)); err != nil {
			return err
		}
		switch b.Op {
		case OpEmpty:
			return nil
		case OpSingleton:
			return ev.WriteNode(n.Args[0], resolved, w)
		case OpConcat, OpCons, OpChar:
			if err := ev.WriteNode(n.Args[0], resolved, w); err != nil {
				return err
			}
			return ev.WriteNode(n.Args[1], resolved, w)
		case OpHex:
			return w.WriteHex(b.Nibble)
		}
		return fmt.Errorf("%w: unhandled op %s", ErrMalformed, b.Op)
	default:
		return fmt.Errorf("%w: unexpected node %T", ErrMalformed, n)
	}
}

// unfold substitutes the actual arguments of a definition application
// into a fresh positional frame, evaluates the definition's own heap
// against it and streams the body into the caller's writer.
func (ev *Evaluator) unfold(n *env.App, resolved []Part, w *Writer) error {
	td := ev.Env.Term(n.Term)
	if td == nil {
		return fmt.Errorf("%w: term %d", ErrUnknownDefinition, n.Term)
	}
	if !td.IsDef() {
		return fmt.Errorf("%w '%s'", ErrUnknownDefinition, td.Name)
	}
	if len(n.Args) != len(td.Args) {
		return fmt.Errorf("%w: '%s' applied to %d arguments, want %d", ErrMalformed, td.Name, len(n.Args), len(td.Args))
	}
	frame := make([]Part, 0, len(td.Def.Heap))
	for _, a := range n.Args {
		p, err := ev.EvaluateToPart(a, resolved)
		if err != nil {
			return err
		}
		frame = append(frame, p)
	}
	for _, e := range td.Def.Heap[len(n.Args):] {
		p, err := ev.EvaluateToPart(e, frame)
		if err != nil {
			return err
		}
		frame = append(frame, p)
	}
	return ev.WriteNode(td.Def.Head, frame, w)
}

// ---------------------------------------------------------------------------
// Preflight
// ---------------------------------------------------------------------------

// Preflight walks a statement and every definition reachable from it,
// reporting the errors WriteOutput would hit without producing output.
// Every node it visits is one the evaluator would also visit.
func (ev *Evaluator) Preflight(heap, roots []env.ExprNode) error {
	p := preflight{ev: ev, seen: make(map[env.TermID]bool)}
	for i, n := range heap {
		if err := p.node(n, i); err != nil {
			return err
		}
	}
	for _, n := range roots {
		if err := p.node(n, len(heap)); err != nil {
			return err
		}
	}
	return nil
}

type preflight struct {
	ev   *Evaluator
	seen map[env.TermID]bool
}

// node checks n, whose references must stay below limit.
func (p *preflight) node(n env.ExprNode, limit int) error {
	switch n := n.(type) {
	case *env.Dummy:
		return ErrDummyNotAllowed
	case *env.Ref:
		if n.Index < 0 || n.Index >= limit {
			return fmt.Errorf("%w: reference %d out of range", ErrMalformed, n.Index)
		}
		return nil
	case *env.App:
		if b, ok := p.ev.Registry.Lookup(n.Term); ok {
			if err := checkArity(b.Op, len(n.Args)); err != nil {
				return err
			}
		} else if err := p.def(n); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := p.node(a, limit); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unexpected node %T", ErrMalformed, n)
	}
}

func (p *preflight) def(n *env.App) error {
	td := p.ev.Env.Term(n.Term)
	if td == nil {
		return fmt.Errorf("%w: term %d", ErrUnknownDefinition, n.Term)
	}
	if !td.IsDef() {
		return fmt.Errorf("%w '%s'", ErrUnknownDefinition, td.Name)
	}
	if len(n.Args) != len(td.Args) {
		return fmt.Errorf("%w: '%s' applied to %d arguments, want %d", ErrMalformed, td.Name, len(n.Args), len(td.Args))
	}
	if p.seen[n.Term] {
		return nil
	}
	p.seen[n.Term] = true
	d := td.Def
	for i := len(td.Args); i < len(d.Heap); i++ {
		if err := p.node(d.Heap[i], i); err != nil {
			return err
		}
	}
	return p.node(d.Head, len(d.Heap))
}
