// Package errors provides the kind-tagged error type shared by the matching
// engine and its hosts.
package errors

import (
	"errors"
	"fmt"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// Error kinds reported by the engine.
const (
	KindArithmetic        = "ArithmeticError"
	KindAssetMismatch     = "AssetMismatchError"
	KindOrderNotFillable  = "OrderNotFillableError"
	KindNegativeSpread    = "NegativeSpreadError"
	KindLengthMismatch    = "LengthMismatchError"
	KindInvalidPair       = "InvalidPairError"
	KindEmptyOrders       = "EmptyOrdersError"
	KindInvalidFillUpdate = "InvalidFillUpdateError"
)

// Sentinels compared with errors.Is. Matching is by Kind, so any error built
// from a sentinel with Explain or Wrap still matches it.
var (
	ErrArithmetic        = NewWithKind(KindArithmetic)
	ErrAssetMismatch     = NewWithKind(KindAssetMismatch)
	ErrOrderNotFillable  = NewWithKind(KindOrderNotFillable)
	ErrNegativeSpread    = NewWithKind(KindNegativeSpread)
	ErrLengthMismatch    = NewWithKind(KindLengthMismatch)
	ErrInvalidPair       = NewWithKind(KindInvalidPair)
	ErrEmptyOrders       = NewWithKind(KindEmptyOrders)
	ErrInvalidFillUpdate = NewWithKind(KindInvalidFillUpdate)
)

// FieldError points at the offending input of a failed match.
type FieldError struct {
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message,omitempty"`
}

func (f *FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Field, f.Kind, f.Message)
}

func NewFieldError(kind, field, reason string) FieldError {
	return FieldError{Kind: kind, Field: field, Message: reason}
}

// Error is a custom error type for passing more information
type Error struct {
	// Kind is the returned error type
	Kind string `json:"kind"`
	// Message is the human readable string that indicate the error
	Message string `json:"message"`
	// Fields names the inputs that caused the error.
	Fields []FieldError `json:"fields,omitempty"`

	cause error
}

var _ error = (*Error)(nil)

func NewWithKind(kind string) *Error {
	return &Error{Kind: kind}
}

func Wrap(err error) *Error {
	return &Error{Kind: "Unknown", cause: err}
}

// Error implements error
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s]", e.Kind)
	if e.Message != "" {
		str += " " + e.Message
	}
	if e.cause != nil {
		str += fmt.Sprintf(" (%s)", e.cause)
	}
	return str
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Wrap returns a copy of the error with the given cause.
func (e *Error) Wrap(cause error) *Error {
	err := *e
	err.cause = cause
	return &err
}

// Explain makes a copy of the error with given message
func (e *Error) Explain(message string, args ...any) *Error {
	err := *e
	err.Message = fmt.Sprintf(message, args...)
	return &err
}

// WithField returns a copy of error with the field appended.
func (e *Error) WithField(kind, field, message string) *Error {
	newError := *e
	newError.Fields = append(append([]FieldError(nil), e.Fields...), NewFieldError(kind, field, message))
	return &newError
}

// Is implements the needed interface for errors.Is
// It checks kind for equality
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	if e.cause != nil {
		return Is(e.cause, target)
	}
	return false
}

// KindOf returns the first kind other than "Unknown" found in err's chain,
// or "Unknown".
func KindOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind != "Unknown" && e.Kind != "" {
			return e.Kind
		}
		err = Unwrap(err)
	}
	return "Unknown"
}
