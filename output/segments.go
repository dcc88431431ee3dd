package output

import (
	"fmt"

	"github.com/chazu/mmout/env"
)

// ---------------------------------------------------------------------------
// Canonical segments: the static shape of a string-valued body
// ---------------------------------------------------------------------------

// Segment is one piece of a canonical segment sequence.
type Segment interface {
	segment() // marker method
}

// LitSeg is a run of literal bytes.
type LitSeg struct{ Bytes []byte }

// VarSeg is a formal parameter of the body being evaluated.
type VarSeg struct {
	Sort  env.SortID
	Index int
}

// TermSeg is an application the builder cannot see through. Each argument
// is its own finalized sequence.
type TermSeg struct {
	Term env.TermID
	Args [][]Segment
}

// HexSeg is a lone hex nibble with no partner.
type HexSeg struct{ Nibble uint8 }

func (*LitSeg) segment()  {}
func (*VarSeg) segment()  {}
func (*TermSeg) segment() {}
func (*HexSeg) segment()  {}

// SegmentBuilder accumulates a canonical sequence: adjacent literals are
// merged and consecutive nibbles are packed into bytes, high nibble first.
type SegmentBuilder struct {
	built   []Segment
	str     []byte
	hex     uint8
	pending bool
}

// PushLiteral appends literal bytes.
func (b *SegmentBuilder) PushLiteral(p []byte) {
	b.str = append(b.str, p...)
}

// PushHex appends a nibble. It completes a byte with a pending nibble or
// becomes pending itself.
func (b *SegmentBuilder) PushHex(h uint8) {
	if b.pending {
		b.str = append(b.str, b.hex<<4|h)
		b.pending = false
		return
	}
	b.hex, b.pending = h, true
}

// PushSegment appends seg. Literal and nibble segments go through
// PushLiteral and PushHex; anything else flushes first and is appended
// as is.
func (b *SegmentBuilder) PushSegment(seg Segment) {
	switch s := seg.(type) {
	case *LitSeg:
		b.PushLiteral(s.Bytes)
	case *HexSeg:
		b.PushHex(s.Nibble)
	default:
		b.flush()
		b.built = append(b.built, seg)
	}
}

func (b *SegmentBuilder) flush() {
	if len(b.str) > 0 {
		b.built = append(b.built, &LitSeg{Bytes: b.str})
		b.str = nil
	}
	if b.pending {
		b.built = append(b.built, &HexSeg{Nibble: b.hex})
		b.pending = false
	}
}

// Finish flushes pending state and returns the finalized sequence.
func (b *SegmentBuilder) Finish() []Segment {
	b.flush()
	out := b.built
	b.built = nil
	return out
}

// ---------------------------------------------------------------------------
// Static evaluation
// ---------------------------------------------------------------------------

// segEval evaluates nodes of a definition body into segments. params are
// the formal parameters; heap holds the finalized sequences of the body's
// shared entries beyond the parameters.
type segEval struct {
	reg    *Registry
	params []env.Binder
	heap   [][]Segment
}

// Evaluate interprets n into out. The only logical failure is a dummy.
func (e *segEval) Evaluate(n env.ExprNode, out *SegmentBuilder) error {
	switch n := n.(type) {
	case *env.Dummy:
		return fmt.Errorf("%w: dummy not permitted", ErrDummyNotAllowed)
	case *env.Ref:
		if n.Index < len(e.params) {
			out.PushSegment(&VarSeg{Sort: e.params[n.Index].Sort, Index: n.Index})
			return nil
		}
		j := n.Index - len(e.params)
		if j >= len(e.heap) {
			return fmt.Errorf("%w: reference %d out of range", ErrMalformed, n.Index)
		}
		for _, s := range e.heap[j] {
			out.PushSegment(s)
		}
		return nil
	case *env.App:
		b, ok := e.reg.Lookup(n.Term)
		if !ok {
			args := make([][]Segment, len(n.Args))
			for i, a := range n.Args {
				var sub SegmentBuilder
				if err := e.Evaluate(a, &sub); err != nil {
					return err
				}
				args[i] = sub.Finish()
			}
			out.PushSegment(&TermSeg{Term: n.Term, Args: args})
			return nil
		}
		if err := checkArity(b.Op, len(n.Args)); err != nil {
			return err
		}
		switch b.Op {
		case OpEmpty:
		case OpSingleton:
			return e.Evaluate(n.Args[0], out)
		case OpConcat, OpCons, OpChar:
			if err := e.Evaluate(n.Args[0], out); err != nil {
				return err
			}
			return e.Evaluate(n.Args[1], out)
		case OpHex:
			out.PushHex(b.Nibble)
		}
		return nil
	default:
		return fmt.Errorf("%w: unexpected node %T", ErrMalformed, n)
	}
}

// evaluateDef evaluates the body of definition t into a finalized
// sequence, with its parameters left symbolic.
func evaluateDef(l env.Lookup, reg *Registry, t env.TermID) ([]Segment, error) {
	td := l.Term(t)
	if td == nil || !td.IsDef() {
		return nil, fmt.Errorf("term %d should be a def", t)
	}
	e := &segEval{reg: reg, params: td.Args}
	for _, n := range td.Def.Heap[len(td.Args):] {
		var b SegmentBuilder
		if err := e.Evaluate(n, &b); err != nil {
			return nil, err
		}
		e.heap = append(e.heap, b.Finish())
	}
	var b SegmentBuilder
	if err := e.Evaluate(td.Def.Head, &b); err != nil {
		return nil, err
	}
	return b.Finish(), nil
}

func checkArity(op Op, n int) error {
	want := 0
	switch op {
	case OpSingleton:
		want = 1
	case OpConcat, OpCons, OpChar:
		want = 2
	}
	if n != want {
		return fmt.Errorf("%w: %s applied to %d arguments, want %d", ErrMalformed, op, n, want)
	}
	return nil
}
