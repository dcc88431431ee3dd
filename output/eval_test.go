package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/mmout/dag"
	"github.com/chazu/mmout/env"
)

func TestEval_CharFromHexPair(t *testing.T) {
	f := newFixture(t)
	for a := 0; a < 16; a++ {
		for b := 0; b < 16; b++ {
			out := f.mustRender(t, f.single(byte(a<<4|b)))
			if len(out) != 1 || out[0] != byte(a<<4|b) {
				t.Fatalf("s1(ch(x%x, x%x)): got %x", a, b, out)
			}
		}
	}
}

func TestEval_Singleton01(t *testing.T) {
	f := newFixture(t)
	v := env.Apply(f.s1, env.Apply(f.ch, env.Apply(f.x[0]), env.Apply(f.x[1])))
	if out := f.mustRender(t, v); !bytes.Equal(out, []byte{0x01}) {
		t.Errorf("got %x, want 01", out)
	}
}

func TestEval_ConcatIsAssociative(t *testing.T) {
	f := newFixture(t)
	a := func() env.Value { return f.single('a') }
	b := func() env.Value { return f.add(f.single('b'), env.Apply(f.s0)) }
	c := func() env.Value { return f.single('c') }

	left := f.mustRender(t, f.add(f.add(a(), b()), c()))
	right := f.mustRender(t, f.add(a(), f.add(b(), c())))
	if !bytes.Equal(left, right) || string(left) != "abc" {
		t.Errorf("left %q, right %q, want abc", left, right)
	}
}

func TestEval_MultipleRootsInOrder(t *testing.T) {
	f := newFixture(t)
	out := f.mustRender(t, f.single('x'), env.Apply(f.s0), f.single('y'), f.single('x'))
	if string(out) != "xyx" {
		t.Errorf("got %q, want xyx", out)
	}
}

func TestEval_UnfoldsDefinition(t *testing.T) {
	f := newFixture(t)
	// foo(x) := sadd(s1(x), s0())
	foo := f.define("foo", []env.SortID{f.chr}, f.str,
		f.add(env.Apply(f.s1, &env.VarValue{Index: 0}), env.Apply(f.s0)))

	out := f.mustRender(t, env.Apply(foo, f.char(0x42)))
	if !bytes.Equal(out, []byte{0x42}) {
		t.Errorf("got %x, want 42", out)
	}
}

func TestEval_UnfoldsNestedDefinitionsWithSharing(t *testing.T) {
	f := newFixture(t)
	// twice(s) := sadd(s, s)
	twice := f.define("twice", []env.SortID{f.str}, f.str,
		f.add(&env.VarValue{Index: 0}, &env.VarValue{Index: 0}))
	// quad(s) := twice(twice(s))
	quad := f.define("quad", []env.SortID{f.str}, f.str,
		env.Apply(twice, env.Apply(twice, &env.VarValue{Index: 0})))

	out := f.mustRender(t, env.Apply(quad, f.add(f.single('o'), f.single('k'))))
	if string(out) != "okokokok" {
		t.Errorf("got %q, want okokokok", out)
	}
}

func TestEval_HexDefinitions(t *testing.T) {
	f := newFixture(t)
	// hi() : hex := x6 ; mk(h) : char := ch(h, x1)
	hi := f.define("hi", nil, f.hex, env.Apply(f.x[6]))
	mk := f.define("mk", []env.SortID{f.hex}, f.chr,
		env.Apply(f.ch, &env.VarValue{Index: 0}, env.Apply(f.x[1])))

	out := f.mustRender(t, env.Apply(f.s1, env.Apply(mk, env.Apply(hi))))
	if string(out) != "a" {
		t.Errorf("got %q, want a", out)
	}
}

func TestEval_SharedNibbleHeapEntries(t *testing.T) {
	f := newFixture(t)
	ev := &Evaluator{Env: f.env, Registry: f.registry(t)}
	// Heap slot 0 is a lone nibble; ch(Ref 0, Ref 0) packs it twice.
	heap := []env.ExprNode{&env.App{Term: f.x[5]}}
	roots := []env.ExprNode{&env.App{Term: f.s1, Args: []env.ExprNode{
		&env.App{Term: f.ch, Args: []env.ExprNode{&env.Ref{Index: 0}, &env.Ref{Index: 0}}},
	}}}
	var buf bytes.Buffer
	if err := ev.WriteOutput(heap, roots, NewWriter(&buf)); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x55}) {
		t.Errorf("got %x, want 55", buf.Bytes())
	}
}

func TestEval_DummyWritesNothing(t *testing.T) {
	f := newFixture(t)
	dummy := &env.DummyValue{Name: "y", Sort: f.str}

	out, err := f.render(t, f.single('a'), f.add(f.single('b'), dummy))
	if !errors.Is(err, ErrDummyNotAllowed) {
		t.Fatalf("got %v, want ErrDummyNotAllowed", err)
	}
	if len(out) != 0 {
		t.Errorf("statement wrote %q before failing", out)
	}
}

func TestEval_DummyInsideDefinition(t *testing.T) {
	f := newFixture(t)
	bad := f.define("bad", []env.SortID{f.str}, f.str,
		f.add(&env.VarValue{Index: 0}, &env.DummyValue{Name: "z", Sort: f.str}))

	out, err := f.render(t, env.Apply(bad, f.single('q')))
	if !errors.Is(err, ErrDummyNotAllowed) {
		t.Fatalf("got %v, want ErrDummyNotAllowed", err)
	}
	if len(out) != 0 {
		t.Errorf("wrote %q", out)
	}
}

func TestEval_UnknownDefinition(t *testing.T) {
	f := newFixture(t)
	opaque := f.env.MustAddTerm(env.Term{Name: "opaque", Ret: f.str})

	out, err := f.render(t, f.single('a'), env.Apply(opaque))
	if !errors.Is(err, ErrUnknownDefinition) {
		t.Fatalf("got %v, want ErrUnknownDefinition", err)
	}
	if len(out) != 0 {
		t.Errorf("wrote %q", out)
	}
}

func TestEval_WriteNodeWithoutPreflight(t *testing.T) {
	f := newFixture(t)
	opaque := f.env.MustAddTerm(env.Term{Name: "opaque", Ret: f.str})
	ev := &Evaluator{Env: f.env, Registry: f.registry(t)}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := ev.WriteNode(&env.App{Term: opaque}, nil, w); !errors.Is(err, ErrUnknownDefinition) {
		t.Errorf("opaque: got %v, want ErrUnknownDefinition", err)
	}
	if err := ev.WriteNode(&env.Dummy{Name: "d"}, nil, w); !errors.Is(err, ErrDummyNotAllowed) {
		t.Errorf("dummy: got %v, want ErrDummyNotAllowed", err)
	}
	if err := ev.WriteNode(&env.Ref{Index: 3}, nil, w); !errors.Is(err, ErrMalformed) {
		t.Errorf("ref: got %v, want ErrMalformed", err)
	}
}

func TestEval_SinkFailureIsStructured(t *testing.T) {
	f := newFixture(t)
	ev := &Evaluator{Env: f.env, Registry: f.registry(t)}
	heap, roots := dag.Build([]env.Value{f.single('a'), f.single('b')})

	sink := &failingSink{n: 1}
	err := ev.WriteOutput(heap, roots, NewWriter(sink))
	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Errorf("got %v, want IOError", err)
	}
}

func TestEval_ReplayIsStable(t *testing.T) {
	f := newFixture(t)
	ev := &Evaluator{Env: f.env, Registry: f.registry(t)}
	v := f.add(f.single('r'), f.single('r'))
	heap, roots := dag.Build([]env.Value{v, v})

	var first, second bytes.Buffer
	if err := ev.WriteOutput(heap, roots, NewWriter(&first)); err != nil {
		t.Fatal(err)
	}
	if err := ev.WriteOutput(heap, roots, NewWriter(&second)); err != nil {
		t.Fatal(err)
	}
	if first.String() != "rrrr" || first.String() != second.String() {
		t.Errorf("first %q, second %q, want rrrr twice", first.String(), second.String())
	}
}
