package output

import (
	"github.com/chazu/mmout/env"
)

// classifyCons reports whether the environment defines "scons" as
// char > string > string whose body is exactly its first argument
// followed by its second. reg must not yet contain a cons entry.
func classifyCons(l env.Lookup, reg *Registry) (env.TermID, bool) {
	s := reg.sorts
	t, err := checker{l: l}.term("scons", []env.SortID{s.Chr, s.Str}, s.Str, true)
	if err != nil {
		logger().Debugf("scons not classified: %v", err)
		return 0, false
	}
	segs, err := evaluateDef(l, reg, t)
	if err != nil {
		logger().Debugf("scons not classified: %v", err)
		return 0, false
	}
	if !isPassThrough(segs, s) {
		logger().Debugf("scons not classified: body is not a pass-through")
		return 0, false
	}
	return t, true
}

func isPassThrough(segs []Segment, s Sorts) bool {
	if len(segs) != 2 {
		return false
	}
	first, ok := segs[0].(*VarSeg)
	if !ok || *first != (VarSeg{Sort: s.Chr, Index: 0}) {
		return false
	}
	second, ok := segs[1].(*VarSeg)
	return ok && *second == VarSeg{Sort: s.Str, Index: 1}
}
