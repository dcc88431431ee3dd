package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/mmout/env"
)

func TestSegmentBuilder_MergesLiterals(t *testing.T) {
	var b SegmentBuilder
	b.PushLiteral([]byte("ab"))
	b.PushSegment(&LitSeg{Bytes: []byte("cd")})
	segs := b.Finish()

	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if lit := segs[0].(*LitSeg); string(lit.Bytes) != "abcd" {
		t.Errorf("got %q, want abcd", lit.Bytes)
	}
}

func TestSegmentBuilder_PacksNibbles(t *testing.T) {
	var b SegmentBuilder
	b.PushHex(0x4)
	b.PushSegment(&HexSeg{Nibble: 0x2})
	b.PushHex(0xa)
	segs := b.Finish()

	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if lit := segs[0].(*LitSeg); !bytes.Equal(lit.Bytes, []byte{0x42}) {
		t.Errorf("literal: got %x, want 42", lit.Bytes)
	}
	if h := segs[1].(*HexSeg); h.Nibble != 0xa {
		t.Errorf("nibble: got %x, want a", h.Nibble)
	}
}

func TestSegmentBuilder_OpaqueSegmentsFlush(t *testing.T) {
	var b SegmentBuilder
	b.PushLiteral([]byte("x"))
	b.PushHex(1)
	b.PushSegment(&VarSeg{Sort: 0, Index: 0})
	b.PushLiteral([]byte("y"))
	segs := b.Finish()

	if len(segs) != 4 {
		t.Fatalf("got %d segments, want 4", len(segs))
	}
	if _, ok := segs[0].(*LitSeg); !ok {
		t.Errorf("segment 0: got %T, want literal", segs[0])
	}
	if _, ok := segs[1].(*HexSeg); !ok {
		t.Errorf("segment 1: got %T, want nibble", segs[1])
	}
	if _, ok := segs[2].(*VarSeg); !ok {
		t.Errorf("segment 2: got %T, want variable", segs[2])
	}
	if lit, ok := segs[3].(*LitSeg); !ok || string(lit.Bytes) != "y" {
		t.Errorf("segment 3: got %#v, want literal y", segs[3])
	}
}

func TestSegEval_Body(t *testing.T) {
	f := newFixture(t)
	reg := f.registry(t)
	opaque := f.env.MustAddTerm(env.Term{Name: "blob", Args: f.binders(f.str), Ret: f.str})

	params := f.binders(f.chr, f.str)
	e := &segEval{reg: reg, params: params}

	// sadd (s1 (ch x4 x1)) (sadd (s1 a0) (blob a1))
	n := &env.App{Term: f.sadd, Args: []env.ExprNode{
		&env.App{Term: f.s1, Args: []env.ExprNode{
			&env.App{Term: f.ch, Args: []env.ExprNode{&env.App{Term: f.x[4]}, &env.App{Term: f.x[1]}}},
		}},
		&env.App{Term: f.sadd, Args: []env.ExprNode{
			&env.App{Term: f.s1, Args: []env.ExprNode{&env.Ref{Index: 0}}},
			&env.App{Term: opaque, Args: []env.ExprNode{&env.Ref{Index: 1}}},
		}},
	}}
	var b SegmentBuilder
	if err := e.Evaluate(n, &b); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	segs := b.Finish()
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	if lit := segs[0].(*LitSeg); string(lit.Bytes) != "A" {
		t.Errorf("segment 0: got %q, want A", lit.Bytes)
	}
	if v := segs[1].(*VarSeg); *v != (VarSeg{Sort: f.chr, Index: 0}) {
		t.Errorf("segment 1: got %+v", *v)
	}
	ts := segs[2].(*TermSeg)
	if ts.Term != opaque || len(ts.Args) != 1 || len(ts.Args[0]) != 1 {
		t.Fatalf("segment 2: got %+v", ts)
	}
	if v := ts.Args[0][0].(*VarSeg); v.Index != 1 {
		t.Errorf("opaque argument: got %+v, want parameter 1", *v)
	}
}

func TestSegEval_Dummy(t *testing.T) {
	f := newFixture(t)
	e := &segEval{reg: f.registry(t)}
	var b SegmentBuilder
	err := e.Evaluate(&env.App{Term: f.s1, Args: []env.ExprNode{&env.Dummy{Name: "y", Sort: f.chr}}}, &b)
	if !errors.Is(err, ErrDummyNotAllowed) {
		t.Errorf("got %v, want ErrDummyNotAllowed", err)
	}
}

func TestSegEval_HeapSplice(t *testing.T) {
	f := newFixture(t)
	e := &segEval{
		reg:    f.registry(t),
		params: f.binders(f.str),
		heap:   [][]Segment{{&LitSeg{Bytes: []byte("a")}}, {&LitSeg{Bytes: []byte("b")}}},
	}
	var b SegmentBuilder
	n := &env.App{Term: f.sadd, Args: []env.ExprNode{&env.Ref{Index: 1}, &env.Ref{Index: 2}}}
	if err := e.Evaluate(n, &b); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	segs := b.Finish()
	if len(segs) != 1 || string(segs[0].(*LitSeg).Bytes) != "ab" {
		t.Errorf("got %#v, want single literal ab", segs)
	}
}
