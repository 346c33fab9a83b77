// Package numscript is the public surface of the interpreter: Run a
// script against a host-supplied function map and an optional per-line
// observer, get back the script's return value or an error.
package numscript

import (
	"numscript/internal/ierr"
	"numscript/internal/script"
	"numscript/internal/value"
)

// Value is the result type every expression and Run call produces.
type Value = value.Value

// HostFunction consumes a fixed number of values from the stack top and
// returns a single result (spec §6). Register these in the map passed to
// Run to expose host capabilities (I/O, external libraries) to a script.
type HostFunction = value.HostFunction

// Stack is the argument vehicle a HostFunction reads from.
type Stack = value.Stack

// LineObserver is called once per executed statement line, and once more
// with lineNum 0 at the end of every block/loop/function-body walk
// (including the top-level script) that runs to its last line; a walk cut
// short by a return line gets no lineNum 0 call. Returning a non-nil error
// aborts the run; return ErrStopped (or wrap it) to signal a deliberate
// cancellation rather than a genuine failure.
type LineObserver = script.Observer

// Kind classifies why Run failed.
type Kind = ierr.Kind

const (
	SyntaxError   = ierr.SyntaxError
	TypeError     = ierr.TypeError
	TypeMismatch  = ierr.TypeMismatch
	NameError     = ierr.NameError
	InternalError = ierr.InternalError
	Stopped       = ierr.Stopped
)

// Error is the error type Run and every internal layer return.
type Error = ierr.Error

// ErrStopped is the sentinel an observer's error should wrap (or be) to
// request cooperative cancellation; check with errors.Is(err, ErrStopped).
var ErrStopped = ierr.ErrStopped

// Null is the absent-value singleton.
var Null = value.Null

// StrOf and BoolOf wrap a Go value as a script Value, for host functions
// that need to return a result of a given kind.
func StrOf(s string) Value { return value.StrOf(s) }
func BoolOf(b bool) Value  { return value.BoolOf(b) }

// Run parses and executes script line by line, calling observer before
// every statement and resolving function calls against hostFuncs first,
// then the built-in table. observer may be nil to run unobserved.
func Run(scriptText string, hostFuncs map[string]HostFunction, observer LineObserver) (Value, error) {
	r := script.NewRunner(hostFuncs, observer)
	return r.Run(scriptText)
}
