package spec

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes loader and normalizer errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location, JSON Pointer and
// line/column information. Line and Column are 1-based and zero when unknown.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Line        int
	Column      int
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// IsCode reports whether err is a *SpecError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *SpecError
	return errors.As(err, &se) && se.Code == code
}

var (
	// ErrNotFound is returned when a pointer does not designate any node.
	ErrNotFound = errors.New("pointer target not found")
	// ErrUnsupportedPointer is returned for external or malformed references.
	ErrUnsupportedPointer = errors.New("unsupported reference form")
	// ErrExpansionLimit marks references left unexpanded once the per-call budget is spent.
	ErrExpansionLimit = errors.New("reference expansion limit reached")
)

// ReferenceError describes a reference that could not be inlined. It is never
// fatal: the original reference node stays in place.
type ReferenceError struct {
	Pointer string // the $ref value
	At      string // where the reference occurred
	Reason  error
}

func (e *ReferenceError) Error() string {
	if e.At == "" {
		return fmt.Sprintf("unresolved reference %q: %v", e.Pointer, e.Reason)
	}
	return fmt.Sprintf("unresolved reference %q at %s: %v", e.Pointer, e.At, e.Reason)
}

func (e *ReferenceError) Unwrap() error { return e.Reason }
