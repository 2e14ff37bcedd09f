// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode classifies pipeline failures
// Values are stable; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeInvalidArgument is for bad call parameters (batch size, empty url)
	ErrorCodeInvalidArgument

	// ErrorCodeNotFound is for a missing input path
	ErrorCodeNotFound

	// ErrorCodeConnection is for network failures and non success responses
	ErrorCodeConnection

	// ErrorCodeDecode is for corrupt compressed data or invalid text encoding
	ErrorCodeDecode

	// ErrorCodeParse is for a malformed dump line
	ErrorCodeParse

	// ErrorCodeFilterConfig is for an invalid filter configuration
	ErrorCodeFilterConfig

	// ErrorCodeWrite is for flush or finalize failures of an output sink
	ErrorCodeWrite

	// ErrorCodeCanceled is for a canceled or expired context
	ErrorCodeCanceled
)

// String returns a short name for the code, used in logs
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeInvalidArgument:
		return "invalid_argument"
	case ErrorCodeNotFound:
		return "not_found"
	case ErrorCodeConnection:
		return "connection"
	case ErrorCodeDecode:
		return "decode"
	case ErrorCodeParse:
		return "parse"
	case ErrorCodeFilterConfig:
		return "filter_config"
	case ErrorCodeWrite:
		return "write"
	case ErrorCodeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// field is optional (for validation); op is optional operation tag
// line is the 1-based input line for per-row failures, 0 otherwise
// orig is the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
	line  int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// Line returns the input line number, 0 when the error is not tied to a line
func (e *Error) Line() int { return e.line }

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// LineOf returns the input line an error refers to, 0 if none
func LineOf(err error) int {
	if e, ok := As(err); ok {
		return e.line
	}
	return 0
}

// IsFatal reports whether err must stop a pipeline
// Parse errors and line scoped decode errors are per row; everything else is fatal
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case ErrorCodeParse:
		return false
	case ErrorCodeDecode:
		return LineOf(err) == 0
	default:
		return true
	}
}

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is forwards to the standard library so callers need a single import
func Is(err, target error) bool { return stderrs.Is(err, target) }

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// WithLine attaches an input line number to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithLine(err error, line int) error {
	if e, ok := As(err); ok {
		c := *e
		c.line = line
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// Connectionf returns a connection error
func Connectionf(format string, a ...any) error { return Newf(ErrorCodeConnection, format, a...) }

// Parsef returns a per row parse error for the given input line
func Parsef(line int, format string, a ...any) error {
	return &Error{code: ErrorCodeParse, msg: fmt.Sprintf(format, a...), line: line}
}

// FilterConfigf returns a filter configuration error
func FilterConfigf(format string, a ...any) error { return Newf(ErrorCodeFilterConfig, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }
