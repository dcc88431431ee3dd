// Package store persists elaborated output programs: a frozen environment
// together with its output statements. Programs are encoded as canonical
// CBOR and kept in a SQLite trace database, so output can be replayed
// without elaborating again.
package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/mmout/env"
	"github.com/chazu/mmout/output"
	"github.com/chazu/mmout/syntax"
)

// WireVersion is written into every encoded program. Decoding rejects
// other versions.
const WireVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const (
	nodeRef   uint8 = 1
	nodeApp   uint8 = 2
	nodeDummy uint8 = 3
)

type wireNode struct {
	Kind  uint8      `cbor:"1,keyasint"`
	Index int        `cbor:"2,keyasint,omitempty"`
	Term  uint32     `cbor:"3,keyasint,omitempty"`
	Args  []wireNode `cbor:"4,keyasint,omitempty"`
	Name  string     `cbor:"5,keyasint,omitempty"`
	Sort  uint32     `cbor:"6,keyasint,omitempty"`
}

type wireBinder struct {
	Name string `cbor:"1,keyasint"`
	Sort uint32 `cbor:"2,keyasint"`
}

type wireExpr struct {
	Heap []wireNode `cbor:"1,keyasint,omitempty"`
	Head wireNode   `cbor:"2,keyasint"`
}

type wireTerm struct {
	Name string       `cbor:"1,keyasint"`
	Args []wireBinder `cbor:"2,keyasint,omitempty"`
	Ret  uint32       `cbor:"3,keyasint"`
	Def  *wireExpr    `cbor:"4,keyasint,omitempty"`
}

type wireSpan struct {
	File   string `cbor:"1,keyasint,omitempty"`
	Offset int    `cbor:"2,keyasint,omitempty"`
	Line   int    `cbor:"3,keyasint,omitempty"`
	Column int    `cbor:"4,keyasint,omitempty"`
}

type wireStatement struct {
	Span  wireSpan   `cbor:"1,keyasint"`
	Heap  []wireNode `cbor:"2,keyasint,omitempty"`
	Exprs []wireNode `cbor:"3,keyasint"`
}

type wireProgram struct {
	Version    int             `cbor:"1,keyasint"`
	Sorts      []string        `cbor:"2,keyasint"`
	Terms      []wireTerm      `cbor:"3,keyasint"`
	Statements []wireStatement `cbor:"4,keyasint"`
}

// MarshalProgram serializes a program to CBOR bytes.
func MarshalProgram(p *output.Program) ([]byte, error) {
	wp := wireProgram{Version: WireVersion}
	for _, s := range p.Env.Sorts() {
		wp.Sorts = append(wp.Sorts, s.Name)
	}
	for _, t := range p.Env.Terms() {
		wt := wireTerm{Name: t.Name, Ret: uint32(t.Ret)}
		for _, a := range t.Args {
			wt.Args = append(wt.Args, wireBinder{Name: a.Name, Sort: uint32(a.Sort)})
		}
		if t.Def != nil {
			wt.Def = &wireExpr{Heap: encodeNodes(t.Def.Heap), Head: encodeNode(t.Def.Head)}
		}
		wp.Terms = append(wp.Terms, wt)
	}
	for _, st := range p.Statements {
		wp.Statements = append(wp.Statements, wireStatement{
			Span: wireSpan{
				File:   st.Span.File,
				Offset: st.Span.Start.Offset,
				Line:   st.Span.Start.Line,
				Column: st.Span.Start.Column,
			},
			Heap:  encodeNodes(st.Heap),
			Exprs: encodeNodes(st.Exprs),
		})
	}
	return cborEncMode.Marshal(&wp)
}

// UnmarshalProgram deserializes a program from CBOR bytes. The
// environment is checked declaration by declaration while it is rebuilt.
func UnmarshalProgram(data []byte) (*output.Program, error) {
	var wp wireProgram
	if err := cbor.Unmarshal(data, &wp); err != nil {
		return nil, fmt.Errorf("store: unmarshal program: %w", err)
	}
	if wp.Version != WireVersion {
		return nil, fmt.Errorf("store: unsupported wire version %d", wp.Version)
	}
	sorts := make([]env.Sort, len(wp.Sorts))
	for i, s := range wp.Sorts {
		sorts[i] = env.Sort{Name: s}
	}
	terms := make([]env.Term, len(wp.Terms))
	for i, wt := range wp.Terms {
		t := env.Term{Name: wt.Name, Ret: env.SortID(wt.Ret)}
		for _, a := range wt.Args {
			t.Args = append(t.Args, env.Binder{Name: a.Name, Sort: env.SortID(a.Sort)})
		}
		if wt.Def != nil {
			heap, err := decodeNodes(wt.Def.Heap)
			if err != nil {
				return nil, fmt.Errorf("store: term '%s': %w", wt.Name, err)
			}
			head, err := decodeNode(wt.Def.Head)
			if err != nil {
				return nil, fmt.Errorf("store: term '%s': %w", wt.Name, err)
			}
			t.Def = &env.Expr{Heap: heap, Head: head}
		}
		terms[i] = t
	}
	snap, err := env.FromDecls(sorts, terms)
	if err != nil {
		return nil, fmt.Errorf("store: rebuild environment: %w", err)
	}
	stmts := make([]*output.OutputString, len(wp.Statements))
	for i, ws := range wp.Statements {
		heap, err := decodeNodes(ws.Heap)
		if err != nil {
			return nil, fmt.Errorf("store: statement %d: %w", i, err)
		}
		exprs, err := decodeNodes(ws.Exprs)
		if err != nil {
			return nil, fmt.Errorf("store: statement %d: %w", i, err)
		}
		pos := syntax.Position{Offset: ws.Span.Offset, Line: ws.Span.Line, Column: ws.Span.Column}
		stmts[i] = &output.OutputString{
			Span:  syntax.Span{File: ws.Span.File, Start: pos, End: pos},
			Heap:  heap,
			Exprs: exprs,
		}
	}
	return output.NewProgram(snap, stmts), nil
}

func encodeNodes(ns []env.ExprNode) []wireNode {
	if len(ns) == 0 {
		return nil
	}
	out := make([]wireNode, len(ns))
	for i, n := range ns {
		out[i] = encodeNode(n)
	}
	return out
}

func encodeNode(n env.ExprNode) wireNode {
	switch n := n.(type) {
	case *env.Ref:
		return wireNode{Kind: nodeRef, Index: n.Index}
	case *env.App:
		return wireNode{Kind: nodeApp, Term: uint32(n.Term), Args: encodeNodes(n.Args)}
	case *env.Dummy:
		return wireNode{Kind: nodeDummy, Name: n.Name, Sort: uint32(n.Sort)}
	}
	panic(fmt.Sprintf("store: unexpected node %T", n))
}

func decodeNodes(ws []wireNode) ([]env.ExprNode, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make([]env.ExprNode, len(ws))
	for i, w := range ws {
		n, err := decodeNode(w)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func decodeNode(w wireNode) (env.ExprNode, error) {
	switch w.Kind {
	case nodeRef:
		return &env.Ref{Index: w.Index}, nil
	case nodeApp:
		args, err := decodeNodes(w.Args)
		if err != nil {
			return nil, err
		}
		return &env.App{Term: env.TermID(w.Term), Args: args}, nil
	case nodeDummy:
		return &env.Dummy{Name: w.Name, Sort: env.SortID(w.Sort)}, nil
	}
	return nil, fmt.Errorf("unknown node kind %d", w.Kind)
}
