package cli

import (
	"errors"

	"github.com/roach88/cfgsync/internal/cfgerr"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric           = "E001" // Generic/unknown error
	ErrCodeFileNotFound      = "E002" // Config file not found
	ErrCodeCyclicInclude     = "E003" // Include cycle
	ErrCodeMalformedHeader   = "E004" // Remote document without a path header
	ErrCodeRemoteUnavailable = "E005" // Store unreachable or rejected the request
	ErrCodeWriteFailed       = "E006" // File write error
	ErrCodeNameCollision     = "E007" // Two files share a remote name
	ErrCodeInvalidConfig     = "E008" // Configuration invalid or incomplete
	ErrCodeJournal           = "E009" // Sync journal unavailable
)

// MapErrorCode maps an error to its CLI error code.
func MapErrorCode(err error) string {
	switch cfgerr.CodeOf(err) {
	case cfgerr.CodeFileNotFound:
		return ErrCodeFileNotFound
	case cfgerr.CodeCyclicInclude:
		return ErrCodeCyclicInclude
	case cfgerr.CodeMalformedHeader:
		return ErrCodeMalformedHeader
	case cfgerr.CodeRemoteUnavailable:
		return ErrCodeRemoteUnavailable
	case cfgerr.CodeWriteFailure:
		return ErrCodeWriteFailed
	case cfgerr.CodeNameCollision:
		return ErrCodeNameCollision
	case cfgerr.CodeInvalidConfig:
		return ErrCodeInvalidConfig
	default:
		return ErrCodeGeneric
	}
}

// errorDetails exposes structured fields of a categorized error.
func errorDetails(err error) any {
	var e *cfgerr.Error
	if !errors.As(err, &e) {
		return nil
	}
	details := map[string]any{"category": string(e.Code)}
	if e.Path != "" {
		details["path"] = e.Path
	}
	if len(e.Chain) > 0 {
		details["chain"] = e.Chain
	}
	return details
}

// outputError reports err and returns the matching command error.
func outputError(formatter *OutputFormatter, err error) error {
	code := MapErrorCode(err)
	_ = formatter.Error(code, err.Error(), errorDetails(err))
	return WrapExitError(ExitCommandError, code, err)
}
