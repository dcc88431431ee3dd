package output

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/mmout/dag"
	"github.com/chazu/mmout/env"
	"github.com/chazu/mmout/syntax"
)

// logger is looked up on use so that a backend configured after package
// initialization is honored.
func logger() commonlog.Logger { return commonlog.GetLogger("mmout.output") }

// OutputString is one elaborated "output string" command: the shared heap
// and root expressions of its values. It is never mutated after
// elaboration and can be replayed any number of times.
type OutputString struct {
	Span  syntax.Span
	Heap  []env.ExprNode
	Exprs []env.ExprNode
}

// ---------------------------------------------------------------------------
// Session: elaboration-time handler
// ---------------------------------------------------------------------------

// Session is the output handler of one elaboration session. It resolves
// the registry on first use and records output commands in order.
type Session struct {
	env   env.Lookup
	reg   *Registry
	stmts []*OutputString
}

// NewSession creates a handler over l. l may keep growing while the
// session is in use; the registry is resolved against it once.
func NewSession(l env.Lookup) *Session {
	return &Session{env: l}
}

// Registry returns the session registry, resolving it on first call.
// Failures are reported at sp and are not cached.
func (s *Session) Registry(sp syntax.Span) (*Registry, error) {
	if s.reg != nil {
		return s.reg, nil
	}
	reg, err := Resolve(s.env)
	if err != nil {
		return nil, atSpan(sp, err)
	}
	_, cons := reg.Cons()
	logger().Debugf("resolved string registry: %d built-ins, cons=%v", reg.Len(), cons)
	s.reg = reg
	return reg, nil
}

// ElabOutput elaborates an output command of the given kind. Only
// "string" is supported.
func (s *Session) ElabOutput(sp syntax.Span, kind string, values []env.Value) error {
	if kind != "string" {
		return atSpan(sp, fmt.Errorf("%w '%s'", ErrUnsupportedKind, kind))
	}
	st, err := s.elabString(sp, values)
	if err != nil {
		return err
	}
	s.stmts = append(s.stmts, st)
	return nil
}

func (s *Session) elabString(sp syntax.Span, values []env.Value) (*OutputString, error) {
	reg, err := s.Registry(sp)
	if err != nil {
		return nil, err
	}
	str := reg.Sorts().Str
	for _, v := range values {
		got, err := env.InferSort(s.env, v, nil)
		if err != nil {
			return nil, atSpan(sp, err)
		}
		if got != str {
			return nil, atSpan(sp, fmt.Errorf("type error: expected string, got %s", env.SortName(s.env, got)))
		}
	}
	heap, exprs := dag.Build(values)
	return &OutputString{Span: sp, Heap: heap, Exprs: exprs}, nil
}

// EvalString elaborates values as an output command would and evaluates
// them at once, returning the bytes instead of recording a statement.
func (s *Session) EvalString(sp syntax.Span, values []env.Value) ([]byte, error) {
	st, err := s.elabString(sp, values)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	ev := &Evaluator{Env: s.env, Registry: s.reg}
	if err := ev.WriteOutput(st.Heap, st.Exprs, NewWriter(&buf)); err != nil {
		return nil, atSpan(sp, err)
	}
	return buf.Bytes(), nil
}

// StringScope returns a parser scope whose string literals expand through
// the session registry.
func (s *Session) StringScope(sp syntax.Span) *syntax.Scope {
	return &syntax.Scope{
		Env: s.env,
		String: func(b []byte) (env.Value, error) {
			reg, err := s.Registry(sp)
			if err != nil {
				return nil, err
			}
			return reg.StringValue(b), nil
		},
	}
}

// Statements returns the recorded output statements in order.
func (s *Session) Statements() []*OutputString {
	return append([]*OutputString(nil), s.stmts...)
}

// RunOutput replays every recorded statement to w against the session
// registry.
func (s *Session) RunOutput(w io.Writer) error {
	if len(s.stmts) == 0 {
		return nil
	}
	reg, err := s.Registry(s.stmts[0].Span)
	if err != nil {
		return err
	}
	ev := &Evaluator{Env: s.env, Registry: reg}
	return runStatements(ev, s.stmts, NewWriter(w))
}

// Program pairs the recorded statements with a frozen environment.
func (s *Session) Program(snap *env.Snapshot) *Program {
	return NewProgram(snap, s.Statements())
}

// ---------------------------------------------------------------------------
// Program: replay of recorded statements
// ---------------------------------------------------------------------------

// Program is a frozen environment plus its output statements. Run
// resolves the registry on first use and reuses it for every later run.
type Program struct {
	Env        *env.Snapshot
	Statements []*OutputString

	mu  sync.Mutex
	reg *Registry
}

// NewProgram creates a program over snap.
func NewProgram(snap *env.Snapshot, stmts []*OutputString) *Program {
	return &Program{Env: snap, Statements: stmts}
}

func (p *Program) registry() (*Registry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reg == nil {
		reg, err := Resolve(p.Env)
		if err != nil {
			return nil, err
		}
		p.reg = reg
	}
	return p.reg, nil
}

// Run writes every statement to w in registration order. The first
// failure stops the run; bytes already written stay written.
func (p *Program) Run(w io.Writer) error {
	if len(p.Statements) == 0 {
		return nil
	}
	reg, err := p.registry()
	if err != nil {
		return atSpan(p.Statements[0].Span, err)
	}
	ev := &Evaluator{Env: p.Env, Registry: reg}
	return runStatements(ev, p.Statements, NewWriter(w))
}

func runStatements(ev *Evaluator, stmts []*OutputString, sw *Writer) error {
	for i, st := range stmts {
		logger().Debugf("output statement %d at %s", i, st.Span)
		if err := ev.WriteOutput(st.Heap, st.Exprs, sw); err != nil {
			return atSpan(st.Span, err)
		}
	}
	return nil
}
