// Package theory loads TOML theory files into an environment and an output
// session.
//
// A theory file declares sorts, abstract terms, definitions and output
// commands:
//
//	sorts = ["string", "hex", "char"]
//
//	[[term]]
//	name = "sadd"
//	args = ["string", "string"]
//	ret = "string"
//
//	[[def]]
//	name = "foo"
//	params = [{ name = "c", sort = "char" }]
//	ret = "string"
//	body = "(s1 c)"
//
//	[[output]]
//	kind = "string"
//	exprs = ["(foo (ch x4 x2))", "\"hi\\n\""]
//
// Tables are processed in the order they appear, so a definition or an
// output command can only mention terms declared above it.
package theory

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/mmout/dag"
	"github.com/chazu/mmout/env"
	"github.com/chazu/mmout/output"
	"github.com/chazu/mmout/syntax"
)

func logger() commonlog.Logger { return commonlog.GetLogger("mmout.theory") }

var (
	ErrUnknownKey = errors.New("unknown key")
	ErrLayout     = errors.New("cannot order declarations")
)

// Theory accumulates declarations and output commands from one or more
// files.
type Theory struct {
	Env     *env.Env
	Session *output.Session
	Files   []string
}

// New creates an empty theory.
func New() *Theory {
	e := env.New()
	return &Theory{Env: e, Session: output.NewSession(e)}
}

// Load reads the given files in order into a new theory.
func Load(paths ...string) (*Theory, error) {
	th := New()
	for _, p := range paths {
		if err := th.LoadFile(p); err != nil {
			return nil, err
		}
	}
	return th, nil
}

// LoadFile reads one theory file.
func (th *Theory) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	return th.LoadSource(path, data)
}

// Program freezes the environment and returns the recorded output.
func (th *Theory) Program() *output.Program {
	return th.Session.Program(th.Env.Freeze())
}

type document struct {
	Sorts   []string     `toml:"sorts"`
	Terms   []termDecl   `toml:"term"`
	Defs    []defDecl    `toml:"def"`
	Outputs []outputDecl `toml:"output"`
}

type termDecl struct {
	Name string   `toml:"name"`
	Args []string `toml:"args"`
	Ret  string   `toml:"ret"`
}

type binderDecl struct {
	Name string `toml:"name"`
	Sort string `toml:"sort"`
}

type defDecl struct {
	Name    string       `toml:"name"`
	Params  []binderDecl `toml:"params"`
	Dummies []binderDecl `toml:"dummies"`
	Ret     string       `toml:"ret"`
	Body    string       `toml:"body"`
}

type outputDecl struct {
	Kind  string   `toml:"kind"`
	Exprs []string `toml:"exprs"`
}

// LoadSource reads theory text named file.
func (th *Theory) LoadSource(file string, data []byte) error {
	var doc document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return fmt.Errorf("parse error in %s: %w", file, err)
	}
	if und := md.Undecoded(); len(und) > 0 {
		return fmt.Errorf("%s: %w '%s'", file, ErrUnknownKey, und[0])
	}

	order := tableOrder(md)
	if err := checkLayout(order, &doc); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	spans := declSpans(file, order, scanHeaders(data))

	top := syntax.Span{File: file, Start: syntax.Position{Line: 1, Column: 1}}
	for _, name := range doc.Sorts {
		if _, err := th.Env.AddSort(name); err != nil {
			return fmt.Errorf("%s: %w", top, err)
		}
	}

	var nt, nd, no int
	for i, table := range order {
		sp := spans[i]
		switch table {
		case "term":
			err = th.addTerm(doc.Terms[nt])
			nt++
		case "def":
			err = th.addDef(sp, doc.Defs[nd])
			nd++
		case "output":
			err = th.addOutput(sp, doc.Outputs[no])
			no++
		}
		if err != nil {
			var se *output.StatementError
			if errors.As(err, &se) {
				return err
			}
			return fmt.Errorf("%s: %w", sp, err)
		}
	}

	th.Files = append(th.Files, file)
	logger().Infof("loaded %s: %d sorts, %d terms, %d defs, %d outputs",
		file, len(doc.Sorts), nt, nd, no)
	return nil
}

func (th *Theory) sort(name string) (env.SortID, error) {
	id, ok := th.Env.SortByName(name)
	if !ok {
		return 0, fmt.Errorf("%w '%s'", env.ErrUnknownSort, name)
	}
	return id, nil
}

func (th *Theory) binders(decls []binderDecl) ([]env.Binder, error) {
	bs := make([]env.Binder, len(decls))
	for i, d := range decls {
		s, err := th.sort(d.Sort)
		if err != nil {
			return nil, err
		}
		bs[i] = env.Binder{Name: d.Name, Sort: s}
	}
	return bs, nil
}

func (th *Theory) addTerm(d termDecl) error {
	ret, err := th.sort(d.Ret)
	if err != nil {
		return fmt.Errorf("term '%s': %w", d.Name, err)
	}
	args := make([]env.Binder, len(d.Args))
	for i, a := range d.Args {
		s, err := th.sort(a)
		if err != nil {
			return fmt.Errorf("term '%s': %w", d.Name, err)
		}
		args[i] = env.Binder{Name: fmt.Sprintf("a%d", i), Sort: s}
	}
	_, err = th.Env.AddTerm(env.Term{Name: d.Name, Args: args, Ret: ret})
	return err
}

func (th *Theory) addDef(sp syntax.Span, d defDecl) error {
	ret, err := th.sort(d.Ret)
	if err != nil {
		return fmt.Errorf("def '%s': %w", d.Name, err)
	}
	params, err := th.binders(d.Params)
	if err != nil {
		return fmt.Errorf("def '%s': %w", d.Name, err)
	}
	dummies, err := th.binders(d.Dummies)
	if err != nil {
		return fmt.Errorf("def '%s': %w", d.Name, err)
	}

	scope := th.Session.StringScope(sp)
	scope.Params = params
	scope.Dummies = dummies
	body, err := syntax.Parse(d.Body, scope)
	if err != nil {
		return fmt.Errorf("def '%s': %w", d.Name, err)
	}
	got, err := env.InferSort(th.Env, body, params)
	if err != nil {
		return fmt.Errorf("def '%s': %w", d.Name, err)
	}
	if got != ret {
		return fmt.Errorf("def '%s': type error: expected %s, got %s",
			d.Name, env.SortName(th.Env, ret), env.SortName(th.Env, got))
	}

	_, err = th.Env.AddTerm(env.Term{
		Name: d.Name,
		Args: params,
		Ret:  ret,
		Def:  dag.BuildDef(len(params), body),
	})
	return err
}

func (th *Theory) addOutput(sp syntax.Span, d outputDecl) error {
	kind := d.Kind
	if kind == "" {
		kind = "string"
	}
	scope := th.Session.StringScope(sp)
	values := make([]env.Value, len(d.Exprs))
	for i, src := range d.Exprs {
		v, err := syntax.Parse(src, scope)
		if err != nil {
			return fmt.Errorf("output expression %d: %w", i+1, err)
		}
		values[i] = v
	}
	return th.Session.ElabOutput(sp, kind, values)
}

// ---------------------------------------------------------------------------
// Table order
// ---------------------------------------------------------------------------

var declTables = []string{"term", "def", "output"}

func isDeclTable(name string) bool {
	for _, t := range declTables {
		if t == name {
			return true
		}
	}
	return false
}

// tableOrder lists the [[term]], [[def]] and [[output]] tables in
// document order. The decoder reports one top-level key per table.
func tableOrder(md toml.MetaData) []string {
	var order []string
	for _, k := range md.Keys() {
		if len(k) == 1 && isDeclTable(k[0]) {
			order = append(order, k[0])
		}
	}
	return order
}

// checkLayout verifies that every decoded table was seen as its own
// [[table]], which fails when tables are written as inline arrays.
func checkLayout(order []string, doc *document) error {
	counts := map[string]int{}
	for _, t := range order {
		counts[t]++
	}
	want := map[string]int{"term": len(doc.Terms), "def": len(doc.Defs), "output": len(doc.Outputs)}
	for _, table := range declTables {
		if counts[table] != want[table] {
			return fmt.Errorf("%w: %d '%s' tables but %d [[%s]] headers",
				ErrLayout, want[table], table, counts[table], table)
		}
	}
	return nil
}

type header struct {
	table string
	pos   syntax.Position
}

// scanHeaders finds lines that look like [[term]], [[def]] or [[output]]
// headers. It does not track strings; declSpans only trusts it when it
// agrees with the decoder.
func scanHeaders(data []byte) []header {
	var hs []header
	offset := 0
	for i, line := range strings.SplitAfter(string(data), "\n") {
		start := offset
		offset += len(line)

		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, "[[") {
			continue
		}
		end := strings.Index(trimmed, "]]")
		if end < 0 {
			continue
		}
		if name := strings.TrimSpace(trimmed[2:end]); isDeclTable(name) {
			col := len(line) - len(trimmed)
			hs = append(hs, header{
				table: name,
				pos:   syntax.Position{Offset: start + col, Line: i + 1, Column: col + 1},
			})
		}
	}
	return hs
}

// declSpans returns one span per table in order. Header positions are used
// when the scanned headers match order exactly; otherwise every span names
// only the file.
func declSpans(file string, order []string, hs []header) []syntax.Span {
	spans := make([]syntax.Span, len(order))
	match := len(hs) == len(order)
	for i := 0; match && i < len(hs); i++ {
		match = hs[i].table == order[i]
	}
	for i := range spans {
		spans[i] = syntax.Span{File: file}
		if match {
			spans[i].Start, spans[i].End = hs[i].pos, hs[i].pos
		}
	}
	if !match {
		logger().Debugf("%s: header lines do not match tables, using file spans", file)
	}
	return spans
}
