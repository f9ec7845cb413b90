package csv2hyper

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := converter.Convert(ctx, config)
//	if errors.Is(err, csv2hyper.ErrUnsupportedDType) {
//	    // Override the offending column with --dtype or --text-column
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedDType indicates a column dtype has no Hyper column type.
	ErrUnsupportedDType = errors.New("unsupported dtype")

	// ErrLoadFailed indicates the engine rejected the COPY statement.
	ErrLoadFailed = errors.New("load failed")

	// ErrEngineUnavailable indicates the hyperd process could not be started or reached.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrConnectionFailed indicates a connection to the engine failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrApprovalDenied indicates the user denied replacing an existing extract.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrAuthenticationFailed indicates Tableau rejected the credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrProjectNotFound indicates no project on the server carries the requested name.
	ErrProjectNotFound = errors.New("project not found")

	// ErrPublishFailed indicates the server rejected a REST call during publishing.
	ErrPublishFailed = errors.New("publish failed")
)

// LoadError carries the row number the engine reported for a failed COPY.
// Row is 0 when the engine message did not name one.
type LoadError struct {
	Row int
	Err error
}

func (e *LoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load failed at row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("load failed: %v", e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoadFailed, e.Err}
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedDType):
		return ExitUnsupportedDType
	case errors.Is(err, ErrLoadFailed):
		return ExitLoadFailed
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrEngineUnavailable), errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrProjectNotFound),
		errors.Is(err, ErrPublishFailed):
		return ExitPublishFailed
	}

	errStr := err.Error()
	for _, prefix := range usageErrorPrefixes {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// cobra reports argument and flag misuse with these message prefixes.
var usageErrorPrefixes = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
	"flag needs an argument",
	"missing required argument",
}
