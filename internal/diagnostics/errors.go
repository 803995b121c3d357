package diagnostics

import (
	"fmt"

	"github.com/funvibe/ctaint/internal/token"
)

type ErrorCode string

// Syntax errors.
const (
	ErrP001 ErrorCode = "P001" // expression expected
	ErrP002 ErrorCode = "P002" // unmatched bracket
	ErrP003 ErrorCode = "P003" // operator in wrong position
	ErrP004 ErrorCode = "P004" // identifier expected
	ErrP005 ErrorCode = "P005" // specific token expected
	ErrP006 ErrorCode = "P006" // generic syntax error
	ErrP007 ErrorCode = "P007" // bad literal
)

// Type errors.
const (
	ErrT001 ErrorCode = "T001" // incompatible assignment
	ErrT002 ErrorCode = "T002" // invalid operation for operand types
	ErrT003 ErrorCode = "T003" // member access on non-aggregate
	ErrT004 ErrorCode = "T004" // unknown member
	ErrT005 ErrorCode = "T005" // not callable
	ErrT006 ErrorCode = "T006" // bad type
)

// Lvalue errors.
const (
	ErrL001 ErrorCode = "L001" // not an lvalue
	ErrL002 ErrorCode = "L002" // const violation
)

// Runtime faults.
const (
	ErrR001 ErrorCode = "R001" // undefined identifier
	ErrR002 ErrorCode = "R002" // already defined
	ErrR003 ErrorCode = "R003" // null pointer
	ErrR004 ErrorCode = "R004" // index out of bounds
	ErrR005 ErrorCode = "R005" // division by zero
	ErrR006 ErrorCode = "R006" // out of memory
	ErrR007 ErrorCode = "R007" // too many arguments
	ErrR008 ErrorCode = "R008" // not enough arguments
	ErrR009 ErrorCode = "R009" // invalid memory access
	ErrR010 ErrorCode = "R010" // undefined goto label
	ErrR011 ErrorCode = "R011" // assumption or assertion failed
	ErrR012 ErrorCode = "R012" // call depth exceeded
	ErrR013 ErrorCode = "R013" // function without a body
)

// Non-determinism misuse.
const (
	ErrN001 ErrorCode = "N001" // unsupported operator while resolving a non-deterministic value
)

// Warnings.
const (
	WarnW001 ErrorCode = "W001" // missing return value
	WarnW002 ErrorCode = "W002" // main not defined
)

var messages = map[ErrorCode]string{
	ErrP001: "expression expected, got %s",
	ErrP002: "brackets not closed",
	ErrP003: "operator %s not expected here",
	ErrP004: "identifier expected, got %s",
	ErrP005: "'%s' expected, got %s",
	ErrP006: "%s",
	ErrP007: "bad literal: %s",

	ErrT001: "can't assign %s to %s",
	ErrT002: "invalid operation %s on %s and %s",
	ErrT003: "can't use '%s' on %s",
	ErrT004: "%s doesn't have a member called %s",
	ErrT005: "%s is not a function",
	ErrT006: "%s",

	ErrL001: "can't assign to this",
	ErrL002: "can't assign to const %s",

	ErrR001: "'%s' is undefined",
	ErrR002: "'%s' is already defined",
	ErrR003: "null pointer dereference",
	ErrR004: "index %d out of bounds",
	ErrR005: "division by zero",
	ErrR006: "out of memory",
	ErrR007: "too many arguments to %s()",
	ErrR008: "not enough arguments to %s()",
	ErrR009: "invalid memory access: %s",
	ErrR010: "couldn't find goto label '%s'",
	ErrR011: "%s",
	ErrR012: "call depth exceeded in %s()",
	ErrR013: "function %s() is declared but never defined",

	ErrN001: "unsupported operator %s while resolving non-deterministic '%s'",

	WarnW001: "no value returned from %s()",
	WarnW002: "main() is not defined",
}

// Process exit statuses for fatal conditions. The values follow the
// validator's result protocol.
const (
	ExitFailure      = 1
	ExitNonDetMisuse = 247
	ExitAssumption   = 248
	ExitBadGoto      = 249
	ExitOutOfMemory  = 251
)

type DiagnosticError struct {
	Code  ErrorCode
	Token token.Token
	File  string
	Msg   string
}

func NewError(code ErrorCode, tok token.Token, args ...interface{}) *DiagnosticError {
	format, ok := messages[code]
	if !ok {
		format = "%v"
	}
	return &DiagnosticError{
		Code:  code,
		Token: tok,
		Msg:   fmt.Sprintf(format, args...),
	}
}

func (e *DiagnosticError) Error() string {
	pos := ""
	if e.Token.Line > 0 {
		pos = fmt.Sprintf("%d:%d: ", e.Token.Line, e.Token.Column)
	}
	if e.File != "" {
		pos = e.File + ":" + pos
	}
	return fmt.Sprintf("%serror [%s]: %s", pos, e.Code, e.Msg)
}

// Category names the error family of the code.
func (e *DiagnosticError) Category() string {
	if e.Code == "" {
		return "Error"
	}
	switch e.Code[0] {
	case 'P':
		return "SyntaxError"
	case 'T':
		return "TypeError"
	case 'L':
		return "LValueError"
	case 'R':
		return "RuntimeFault"
	case 'N':
		return "NonDeterminismMisuse"
	case 'W':
		return "Warning"
	}
	return "Error"
}

// ExitStatus is the process status a driver should report for e.
func (e *DiagnosticError) ExitStatus() int {
	switch e.Code {
	case ErrR006:
		return ExitOutOfMemory
	case ErrR011:
		return ExitAssumption
	case ErrN001:
		return ExitNonDetMisuse
	case ErrR010:
		return ExitBadGoto
	}
	return ExitFailure
}

// Fatal reports whether e ends the whole run rather than the current
// statement.
func (e *DiagnosticError) Fatal() bool {
	return e.ExitStatus() != ExitFailure
}
