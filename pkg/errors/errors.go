// Package errors provides the coded error type shared by the dynsvg
// libraries, the CLI and the HTTP API.
//
// Every failure a caller may want to branch on carries a [Code]. The HTTP
// API reports the code next to [UserMessage]; the CLI prints only the
// message.
//
// # Error Codes
//
//   - INVALID_*: rejected input (transforms, selectors, categories, SVG, config)
//   - *_NOT_FOUND, NOT_LOADED: missing or not yet available resources
//   - NETWORK_ERROR, TIMEOUT: failures while fetching content
//   - INTERNAL_ERROR, UNSUPPORTED: everything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidTransform, "malformed transform: %q", s)
//	if errors.Is(err, errors.ErrCodeInvalidTransform) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidTransform Code = "INVALID_TRANSFORM"
	ErrCodeInvalidSelector  Code = "INVALID_SELECTOR"
	ErrCodeInvalidCategory  Code = "INVALID_CATEGORY"
	ErrCodeInvalidElement   Code = "INVALID_ELEMENT"
	ErrCodeInvalidSVG       Code = "INVALID_SVG"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeInvalidID        Code = "INVALID_ID"

	// Geometry errors
	ErrCodeEmptyBounds Code = "EMPTY_BOUNDS"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeHostNotFound Code = "HOST_NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeNotLoaded    Code = "NOT_LOADED"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coded is implemented by error types other than *Error that carry a code.
type coded interface {
	ErrorCode() Code
}

// Is reports whether the outermost coded error in err's chain has code.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// GetCode returns the code of the outermost coded error in err's chain, or
// "" if there is none.
func GetCode(err error) Code {
	for ; err != nil; err = errors.Unwrap(err) {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coded:
			return e.ErrorCode()
		}
	}
	return ""
}

// UserMessage renders err without codes: the messages of the coded errors in
// the chain joined by ": ", ending with the first uncoded cause.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + UserMessage(e.Cause)
}

// StaleError reports element handles that no longer exist in their document.
type StaleError struct {
	Handles []int
}

func (e *StaleError) Error() string {
	if len(e.Handles) == 1 {
		return fmt.Sprintf("stale element handle %d", e.Handles[0])
	}
	return fmt.Sprintf("%d stale element handles", len(e.Handles))
}

// ErrorCode returns ErrCodeInvalidElement.
func (e *StaleError) ErrorCode() Code {
	return ErrCodeInvalidElement
}
