// Package syntax reads the s-expression term language used by theory
// files and output commands.
//
//	expr := name | "string literal" | ( name expr* )
//
// Names resolve to a formal parameter, a dummy, or a term of the
// environment, in that order. Comments run from ';' to end of line.
package syntax

import "fmt"

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in a source file.
type Span struct {
	File  string
	Start Position
	End   Position
}

func (s Span) String() string {
	file := s.File
	if file == "" {
		file = "<input>"
	}
	if s.Start.Line == 0 {
		return file
	}
	return fmt.Sprintf("%s:%d:%d", file, s.Start.Line, s.Start.Column)
}
