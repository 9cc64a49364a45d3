package compiler

import (
	"errors"
	"fmt"
)

// Fatal error kinds. Every *Error matches exactly one of them with errors.Is.
var (
	ErrMalformedXML           = errors.New("malformed xml")
	ErrGrammar                = errors.New("illegal document structure")
	ErrUnknownElement         = errors.New("element not implemented")
	ErrUnsupportedInstruction = errors.New("unsupported processing instruction")
)

// Error is a fatal compile error located in the source script.
type Error struct {
	Kind   error
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("%d:%d: %v: %s", e.Line, e.Column, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%d: %v: %s", e.Line, e.Kind, e.Msg)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, n *node, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Line: n.line, Column: n.column, Msg: fmt.Sprintf(format, args...)}
}

// Warning is a recoverable problem; the offending node was skipped.
type Warning struct {
	Line   int
	Column int
	Msg    string
}

func (w Warning) String() string {
	return fmt.Sprintf("%d:%d: %s", w.Line, w.Column, w.Msg)
}
