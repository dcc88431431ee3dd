package output

import (
	"fmt"
	"strings"

	"github.com/chazu/mmout/env"
)

// Op is a built-in string operation.
type Op uint8

const (
	OpEmpty     Op = iota + 1 // s0
	OpSingleton               // s1
	OpConcat                  // sadd
	OpCons                    // scons, when verified
	OpChar                    // ch
	OpHex                     // x0 .. xf
)

var opNames = map[Op]string{
	OpEmpty:     "Empty",
	OpSingleton: "Singleton",
	OpConcat:    "Concat",
	OpCons:      "Cons",
	OpChar:      "CharFromHexPair",
	OpHex:       "HexDigit",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Builtin is the classification of one built-in term. Nibble is only
// meaningful for OpHex.
type Builtin struct {
	Op     Op
	Nibble uint8
}

// Sorts holds the three sorts the codec works with.
type Sorts struct {
	Str env.SortID
	Hex env.SortID
	Chr env.SortID
}

// Symbols holds the term ids of the base vocabulary. The session uses it
// to expand string literals.
type Symbols struct {
	S0, S1, SAdd, Ch env.TermID
	Hex              [16]env.TermID
}

// Registry maps term ids to built-in operations. It is immutable once
// Resolve returns it and may be shared between output runs.
type Registry struct {
	sorts   Sorts
	symbols Symbols
	ops     map[env.TermID]Builtin
	cons    env.TermID
	hasCons bool
}

// Sorts returns the resolved string, hex and char sorts.
func (r *Registry) Sorts() Sorts { return r.sorts }

// Symbols returns the resolved base vocabulary.
func (r *Registry) Symbols() Symbols { return r.symbols }

// Lookup returns the built-in classification of t. The second result is
// false for every term that must be unfolded instead.
func (r *Registry) Lookup(t env.TermID) (Builtin, bool) {
	b, ok := r.ops[t]
	return b, ok
}

// Cons returns the term classified as the cons built-in, if any.
func (r *Registry) Cons() (env.TermID, bool) { return r.cons, r.hasCons }

// Len returns the number of classified terms.
func (r *Registry) Len() int { return len(r.ops) }

// StringValue builds the value denoting b: s0 for the empty string,
// otherwise right-nested sadd over s1 (ch hi lo) per byte.
func (r *Registry) StringValue(b []byte) env.Value {
	if len(b) == 0 {
		return env.Apply(r.symbols.S0)
	}
	var v env.Value
	for i := len(b) - 1; i >= 0; i-- {
		c := env.Apply(r.symbols.S1, env.Apply(r.symbols.Ch,
			env.Apply(r.symbols.Hex[b[i]>>4]),
			env.Apply(r.symbols.Hex[b[i]&0xf])))
		if v == nil {
			v = c
		} else {
			v = env.Apply(r.symbols.SAdd, c, v)
		}
	}
	return v
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// Resolve looks up the built-in sorts and terms in l and checks their
// signatures. If l also defines "scons" as a pass-through of its two
// arguments, it is classified as OpCons.
func Resolve(l env.Lookup) (*Registry, error) {
	s, err := resolveSorts(l)
	if err != nil {
		return nil, err
	}
	r := &Registry{sorts: s, ops: make(map[env.TermID]Builtin, 21)}
	c := checker{l: l}

	add := func(name string, args []env.SortID, ret env.SortID, b Builtin) (env.TermID, error) {
		t, err := c.term(name, args, ret, false)
		if err != nil {
			return 0, err
		}
		r.ops[t] = b
		return t, nil
	}
	if r.symbols.S0, err = add("s0", nil, s.Str, Builtin{Op: OpEmpty}); err != nil {
		return nil, err
	}
	if r.symbols.S1, err = add("s1", []env.SortID{s.Chr}, s.Str, Builtin{Op: OpSingleton}); err != nil {
		return nil, err
	}
	if r.symbols.SAdd, err = add("sadd", []env.SortID{s.Str, s.Str}, s.Str, Builtin{Op: OpConcat}); err != nil {
		return nil, err
	}
	if r.symbols.Ch, err = add("ch", []env.SortID{s.Hex, s.Hex}, s.Chr, Builtin{Op: OpChar}); err != nil {
		return nil, err
	}
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("x%x", i)
		if r.symbols.Hex[i], err = add(name, nil, s.Hex, Builtin{Op: OpHex, Nibble: uint8(i)}); err != nil {
			return nil, err
		}
	}

	if t, ok := classifyCons(l, r); ok {
		r.ops[t] = Builtin{Op: OpCons}
		r.cons, r.hasCons = t, true
	}
	return r, nil
}

func resolveSorts(l env.Lookup) (Sorts, error) {
	var s Sorts
	var err error
	if s.Str, err = checkSort(l, "string"); err != nil {
		return s, err
	}
	if s.Hex, err = checkSort(l, "hex"); err != nil {
		return s, err
	}
	if s.Chr, err = checkSort(l, "char"); err != nil {
		return s, err
	}
	return s, nil
}

func checkSort(l env.Lookup, name string) (env.SortID, error) {
	id, ok := l.SortByName(name)
	if !ok {
		return 0, &RegistryError{Kind: "sort", Symbol: name, Reason: "not found"}
	}
	return id, nil
}

type checker struct {
	l env.Lookup
}

// term checks that name is declared with exactly the given signature.
// def selects whether a definition or an abstract term is required.
func (c checker) term(name string, args []env.SortID, ret env.SortID, def bool) (env.TermID, error) {
	fail := func(reason string) error {
		return &RegistryError{Kind: "term", Symbol: name, Reason: reason, Expected: c.signature(args, ret)}
	}
	t, ok := c.l.TermByName(name)
	if !ok {
		return 0, fail("not found")
	}
	td := c.l.Term(t)
	switch {
	case !def && td.IsDef():
		return 0, &RegistryError{Kind: "def", Symbol: name, Reason: "should be a term", Expected: c.signature(args, ret)}
	case def && !td.IsDef():
		return 0, fail("should be a def")
	}
	if td.Ret != ret || len(td.Args) != len(args) {
		return 0, fail("has incorrect type")
	}
	for i, a := range td.Args {
		if a.Sort != args[i] {
			return 0, fail("has incorrect type")
		}
	}
	return t, nil
}

// signature renders "a > b > ret".
func (c checker) signature(args []env.SortID, ret env.SortID) string {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(env.SortName(c.l, a))
		sb.WriteString(" > ")
	}
	sb.WriteString(env.SortName(c.l, ret))
	return sb.String()
}
