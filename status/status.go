// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package status defines the error-kind taxonomy shared across this
// module's operators, in place of panics or exceptions. Every fallible
// call returns an error built from one of these kinds; call sites
// either recover locally (NotFound on a lookup is normal) or propagate
// upward to the adapt driver, which logs and aborts the pass.
package status

import "fmt"

// Kind classifies why an operation failed.
type Kind int

const (
	// Success is never actually returned as an error; it exists so
	// zero-valued Kind reads as "no failure" when embedded in structs.
	Success Kind = iota
	// Null reports a nil/zero-value input where a real one was required.
	Null
	// Invalid reports a precondition violation (e.g. negative global id).
	Invalid
	// NotFound reports a search miss; normal at most call sites.
	NotFound
	// DivZero reports numeric degeneracy recoverable by a safe default.
	DivZero
	// Failure reports a violated invariant (assertion-grade).
	Failure
	// IncreaseLimit reports a caller-sized buffer too small for the result.
	IncreaseLimit
	// Implement reports a code path that is not yet implemented.
	Implement
)

// String names the kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case Success:
		return "SUCCESS"
	case Null:
		return "NULL"
	case Invalid:
		return "INVALID"
	case NotFound:
		return "NOT_FOUND"
	case DivZero:
		return "DIV_ZERO"
	case Failure:
		return "FAILURE"
	case IncreaseLimit:
		return "INCREASE_LIMIT"
	case Implement:
		return "IMPLEMENT"
	}
	return "UNKNOWN"
}

// Error is the concrete error type returned by every fallible operation
// in this module. Op names the failing operation (e.g. "node.Add") so
// that propagated errors read like a call stack without needing one.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Errf builds an *Error with a formatted message.
func Errf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a *Error of the given kind. It follows the
// same contract as errors.Is so callers may write status.Is(err, status.NotFound).
func Is(err error, kind Kind) bool {
	se, ok := err.(*Error)
	if !ok {
		return false
	}
	return se.Kind == kind
}

// NotFoundf is a convenience constructor for the common NotFound case.
func NotFoundf(op, format string, args ...interface{}) *Error {
	return Errf(NotFound, op, format, args...)
}

// Invalidf is a convenience constructor for the common Invalid case.
func Invalidf(op, format string, args ...interface{}) *Error {
	return Errf(Invalid, op, format, args...)
}
