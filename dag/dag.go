// Package dag deduplicates tree values into the shared heap form consumed
// by the output codec.
//
// Structurally equal subtrees are hash-consed under a SHA-256 key computed
// over a deterministic serialization (see key.go). A subtree with
// arguments that is referenced from more than one place gets its own heap
// slot; everything else stays inline. Heap entries are emitted in
// post-order, so every entry references only lower indices.
package dag

import (
	"github.com/chazu/mmout/env"
)

// Build deduplicates the values of one output statement. It returns the
// shared heap and one root expression per input value, in order.
func Build(values []env.Value) (heap []env.ExprNode, roots []env.ExprNode) {
	b := newBuilder(0)
	ids := make([]int, len(values))
	for i, v := range values {
		ids[i] = b.add(v)
	}
	return b.finish(ids)
}

// BuildDef deduplicates a definition body over nparams formal parameters.
// The returned heap starts with one Ref placeholder per parameter.
func BuildDef(nparams int, body env.Value) *env.Expr {
	b := newBuilder(nparams)
	id := b.add(body)
	heap, roots := b.finish([]int{id})
	return &env.Expr{Heap: heap, Head: roots[0]}
}

type kind uint8

const (
	kindVar kind = iota
	kindApp
	kindDummy
)

type entry struct {
	key      [32]byte
	kind     kind
	index    int // kindVar
	term     env.TermID
	name     string // kindDummy
	sort     env.SortID
	children []int
	uses     int
	slot     int // heap slot, -1 when inline
}

type builder struct {
	nparams int
	entries []*entry
	byKey   map[[32]byte]int
}

func newBuilder(nparams int) *builder {
	return &builder{nparams: nparams, byKey: make(map[[32]byte]int)}
}

// add interns v and its subtrees and returns the entry index of v.
func (b *builder) add(v env.Value) int {
	e := &entry{slot: -1}
	switch v := v.(type) {
	case *env.VarValue:
		e.kind = kindVar
		e.index = v.Index
	case *env.DummyValue:
		e.kind = kindDummy
		e.name = v.Name
		e.sort = v.Sort
	case *env.AppValue:
		e.kind = kindApp
		e.term = v.Term
		e.children = make([]int, len(v.Args))
		for i, a := range v.Args {
			e.children[i] = b.add(a)
		}
	default:
		panic("dag: unexpected value type")
	}
	e.key = b.keyOf(e)
	if id, ok := b.byKey[e.key]; ok {
		return id
	}
	id := len(b.entries)
	b.entries = append(b.entries, e)
	b.byKey[e.key] = id
	for _, c := range e.children {
		b.entries[c].uses++
	}
	return id
}

func (b *builder) shared(e *entry) bool {
	return e.kind == kindApp && len(e.children) > 0 && e.uses > 1
}

func (b *builder) finish(rootIDs []int) (heap []env.ExprNode, roots []env.ExprNode) {
	for _, id := range rootIDs {
		b.entries[id].uses++
	}
	heap = make([]env.ExprNode, 0, b.nparams+len(b.entries))
	for i := 0; i < b.nparams; i++ {
		heap = append(heap, &env.Ref{Index: i})
	}
	// Entries were created children-first, so walking them in order
	// fills the heap bottom-up.
	for _, e := range b.entries {
		if b.shared(e) {
			heap = append(heap, b.node(e, true))
			e.slot = len(heap) - 1
		}
	}
	roots = make([]env.ExprNode, len(rootIDs))
	for i, id := range rootIDs {
		roots[i] = b.node(b.entries[id], false)
	}
	return heap, roots
}

// node renders an entry. When expand is false a shared entry renders as a
// reference to its slot.
func (b *builder) node(e *entry, expand bool) env.ExprNode {
	if !expand && e.slot >= 0 {
		return &env.Ref{Index: e.slot}
	}
	switch e.kind {
	case kindVar:
		return &env.Ref{Index: e.index}
	case kindDummy:
		return &env.Dummy{Name: e.name, Sort: e.sort}
	default:
		args := make([]env.ExprNode, len(e.children))
		for i, c := range e.children {
			args[i] = b.node(b.entries[c], false)
		}
		return &env.App{Term: e.term, Args: args}
	}
}
