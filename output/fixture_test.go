package output

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/chazu/mmout/dag"
	"github.com/chazu/mmout/env"
)

// fixture is an environment with the full built-in string vocabulary.
type fixture struct {
	env           *env.Env
	str, hex, chr env.SortID
	s0, s1, sadd  env.TermID
	ch            env.TermID
	x             [16]env.TermID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{env: env.New()}
	f.str = f.env.MustAddSort("string")
	f.hex = f.env.MustAddSort("hex")
	f.chr = f.env.MustAddSort("char")
	f.s0 = f.env.MustAddTerm(env.Term{Name: "s0", Ret: f.str})
	f.s1 = f.env.MustAddTerm(env.Term{Name: "s1", Args: f.binders(f.chr), Ret: f.str})
	f.sadd = f.env.MustAddTerm(env.Term{Name: "sadd", Args: f.binders(f.str, f.str), Ret: f.str})
	f.ch = f.env.MustAddTerm(env.Term{Name: "ch", Args: f.binders(f.hex, f.hex), Ret: f.chr})
	for i := range f.x {
		f.x[i] = f.env.MustAddTerm(env.Term{Name: fmt.Sprintf("x%x", i), Ret: f.hex})
	}
	return f
}

func (f *fixture) binders(sorts ...env.SortID) []env.Binder {
	bs := make([]env.Binder, len(sorts))
	for i, s := range sorts {
		bs[i] = env.Binder{Name: fmt.Sprintf("a%d", i), Sort: s}
	}
	return bs
}

// char returns ch(x_hi, x_lo).
func (f *fixture) char(b byte) env.Value {
	return env.Apply(f.ch, env.Apply(f.x[b>>4]), env.Apply(f.x[b&0xf]))
}

// single returns s1(ch(...)).
func (f *fixture) single(b byte) env.Value {
	return env.Apply(f.s1, f.char(b))
}

func (f *fixture) add(a, b env.Value) env.Value {
	return env.Apply(f.sadd, a, b)
}

// define adds a definition whose body is built by dag.BuildDef.
func (f *fixture) define(name string, params []env.SortID, ret env.SortID, body env.Value) env.TermID {
	return f.env.MustAddTerm(env.Term{
		Name: name,
		Args: f.binders(params...),
		Ret:  ret,
		Def:  dag.BuildDef(len(params), body),
	})
}

func (f *fixture) registry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Resolve(f.env)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return reg
}

// render evaluates values as one output statement.
func (f *fixture) render(t *testing.T, values ...env.Value) ([]byte, error) {
	t.Helper()
	ev := &Evaluator{Env: f.env, Registry: f.registry(t)}
	heap, roots := dag.Build(values)
	var buf bytes.Buffer
	err := ev.WriteOutput(heap, roots, NewWriter(&buf))
	return buf.Bytes(), err
}

func (f *fixture) mustRender(t *testing.T, values ...env.Value) []byte {
	t.Helper()
	out, err := f.render(t, values...)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}
