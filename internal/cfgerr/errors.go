// Package cfgerr defines the error taxonomy shared by the include resolver,
// the compiler and the sync engine.
//
// Every failure surfaced to a caller is an *Error carrying a Code. Callers
// match on categories with errors.Is against the package sentinels:
//
//	if errors.Is(err, cfgerr.ErrCyclicInclude) { ... }
//
// The sentinels compare by Code only, so wrapped errors with a different
// path or message still match.
package cfgerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes an Error.
type Code string

const (
	// CodeFileNotFound indicates a local config file is missing.
	CodeFileNotFound Code = "FILE_NOT_FOUND"

	// CodeCyclicInclude indicates an include chain revisits an ancestor.
	CodeCyclicInclude Code = "CYCLIC_INCLUDE"

	// CodeMalformedHeader indicates a remote document lacks a valid path header.
	CodeMalformedHeader Code = "MALFORMED_HEADER"

	// CodeRemoteUnavailable indicates the document store could not be reached
	// or rejected the request.
	CodeRemoteUnavailable Code = "REMOTE_UNAVAILABLE"

	// CodeWriteFailure indicates the local filesystem refused a write.
	CodeWriteFailure Code = "WRITE_FAILURE"

	// CodeNameCollision indicates two local files map to the same remote name.
	CodeNameCollision Code = "NAME_COLLISION"

	// CodeInvalidConfig indicates the merged configuration failed validation.
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// Sentinels for errors.Is matching.
var (
	ErrFileNotFound      = &Error{Code: CodeFileNotFound}
	ErrCyclicInclude     = &Error{Code: CodeCyclicInclude}
	ErrMalformedHeader   = &Error{Code: CodeMalformedHeader}
	ErrRemoteUnavailable = &Error{Code: CodeRemoteUnavailable}
	ErrWriteFailure      = &Error{Code: CodeWriteFailure}
	ErrNameCollision     = &Error{Code: CodeNameCollision}
	ErrInvalidConfig     = &Error{Code: CodeInvalidConfig}
)

// Error is a categorized failure.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Path is the relative path, document name or collection the error is about.
	Path string

	// Message is a human-readable description.
	Message string

	// Chain holds the include chain for cycle errors, root first.
	Chain []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// FileNotFound creates an error for a missing local file.
func FileNotFound(path string, cause error) *Error {
	return &Error{
		Code:    CodeFileNotFound,
		Path:    path,
		Message: "config file not found",
		Err:     cause,
	}
}

// CyclicInclude creates an error for an include chain that revisits an
// ancestor. chain lists the files from the root to the repeated file.
func CyclicInclude(chain []string) *Error {
	path := ""
	if len(chain) > 0 {
		path = chain[len(chain)-1]
	}
	return &Error{
		Code:    CodeCyclicInclude,
		Path:    path,
		Message: "include cycle: " + strings.Join(chain, " → "),
		Chain:   chain,
	}
}

// MalformedHeader creates an error for a remote document without a valid
// path header.
func MalformedHeader(name, reason string) *Error {
	return &Error{
		Code:    CodeMalformedHeader,
		Path:    name,
		Message: reason,
	}
}

// RemoteUnavailable creates an error for a failed store round-trip.
func RemoteUnavailable(collection, op string, cause error) *Error {
	return &Error{
		Code:    CodeRemoteUnavailable,
		Path:    collection,
		Message: op + " failed",
		Err:     cause,
	}
}

// WriteFailure creates an error for a refused local write.
func WriteFailure(path string, cause error) *Error {
	return &Error{
		Code:    CodeWriteFailure,
		Path:    path,
		Message: "write failed",
		Err:     cause,
	}
}

// NameCollision creates an error for two relative paths sharing a remote name.
func NameCollision(name, first, second string) *Error {
	return &Error{
		Code:    CodeNameCollision,
		Path:    name,
		Message: fmt.Sprintf("%s and %s map to the same remote document", first, second),
	}
}

// PathCollision creates an error for remote documents whose headers name
// the same local path.
func PathCollision(path string, names []string) *Error {
	return &Error{
		Code:    CodeNameCollision,
		Path:    path,
		Message: "documents " + strings.Join(names, ", ") + " all write the same path",
	}
}

// InvalidConfig creates a configuration validation error.
func InvalidConfig(message string, cause error) *Error {
	return &Error{
		Code:    CodeInvalidConfig,
		Message: message,
		Err:     cause,
	}
}

// IsFileNotFound returns true if err is a FILE_NOT_FOUND error.
func IsFileNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound)
}

// IsCyclicInclude returns true if err is a CYCLIC_INCLUDE error.
func IsCyclicInclude(err error) bool {
	return errors.Is(err, ErrCyclicInclude)
}

// IsRemoteUnavailable returns true if err is a REMOTE_UNAVAILABLE error.
func IsRemoteUnavailable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}
