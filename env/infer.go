package env

import "fmt"

// InferSort computes the sort of v. params are the formal parameters that
// VarValue indices refer to; pass nil for closed values. Every application
// must match the arity and argument sorts of its term.
func InferSort(l Lookup, v Value, params []Binder) (SortID, error) {
	switch v := v.(type) {
	case *VarValue:
		if v.Index < 0 || v.Index >= len(params) {
			return 0, fmt.Errorf("variable %d out of scope", v.Index)
		}
		return params[v.Index].Sort, nil
	case *DummyValue:
		return v.Sort, nil
	case *AppValue:
		t := l.Term(v.Term)
		if t == nil {
			return 0, fmt.Errorf("unknown term %d", v.Term)
		}
		if len(v.Args) != len(t.Args) {
			return 0, fmt.Errorf("'%s' expects %d arguments, got %d", t.Name, len(t.Args), len(v.Args))
		}
		for i, a := range v.Args {
			s, err := InferSort(l, a, params)
			if err != nil {
				return 0, err
			}
			if s != t.Args[i].Sort {
				return 0, fmt.Errorf("type error: argument %d of '%s': expected %s, got %s",
					i+1, t.Name, SortName(l, t.Args[i].Sort), SortName(l, s))
			}
		}
		return t.Ret, nil
	default:
		return 0, fmt.Errorf("unexpected value %T", v)
	}
}

// SortName returns the name of a sort, or a placeholder for unknown ids.
func SortName(l Lookup, id SortID) string {
	if s := l.Sort(id); s != nil {
		return s.Name
	}
	return fmt.Sprintf("<sort %d>", id)
}
