package output

import (
	"errors"
	"fmt"

	"github.com/chazu/mmout/syntax"
)

var (
	// ErrDummyNotAllowed is returned when a dummy variable occurs anywhere
	// in a string expression.
	ErrDummyNotAllowed = errors.New("dummy variable in string definition")

	// ErrUnknownDefinition is returned when a string expression applies
	// an abstract term that is not one of the built-ins.
	ErrUnknownDefinition = errors.New("unknown definition")

	// ErrMalformed is returned for heaps that violate their structural
	// invariants (out-of-range references, wrong arity).
	ErrMalformed = errors.New("malformed string expression")

	// ErrUnsupportedKind is returned for output commands other than
	// "string".
	ErrUnsupportedKind = errors.New("unsupported output kind")
)

// RegistryError reports a missing or ill-typed built-in symbol.
type RegistryError struct {
	Kind     string // "sort" or "term"
	Symbol   string
	Reason   string // "not found", "should be a term", ...
	Expected string // expected signature, e.g. "char > string"
}

func (e *RegistryError) Error() string {
	msg := fmt.Sprintf("%s '%s' %s", e.Kind, e.Symbol, e.Reason)
	if e.Expected != "" {
		msg += ", expected: " + e.Expected
	}
	return msg
}

// IOError wraps a failure of the output sink.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return "output: write failed: " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// StatementError attaches the span of the output statement that failed.
type StatementError struct {
	Span syntax.Span
	Err  error
}

func (e *StatementError) Error() string { return e.Span.String() + ": " + e.Err.Error() }
func (e *StatementError) Unwrap() error { return e.Err }

func atSpan(sp syntax.Span, err error) error {
	var se *StatementError
	if errors.As(err, &se) {
		return err
	}
	return &StatementError{Span: sp, Err: err}
}
