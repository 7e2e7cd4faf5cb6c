package importer

import (
	"errors"
	"fmt"
)

// Error is a classified import failure.
//
// A fatal Error carries the run token for log correlation and the
// warnings accumulated before the failure, so the caller can still
// report what happened up to that point.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// RunToken identifies the affected import run.
	RunToken string

	// Warnings accumulated before the failure, in order.
	Warnings []string

	// Err is the underlying cause, if any.
	Err error
}

// Code categorizes import errors.
type Code string

const (
	// CodeMalformedInput indicates the input could not be read at all.
	// Malformed rows inside an otherwise readable input are recovered
	// as warnings instead.
	CodeMalformedInput Code = "MALFORMED_INPUT"

	// CodeUnsupportedSchema indicates a snapshot held no recognizable
	// wellness tables.
	CodeUnsupportedSchema Code = "UNSUPPORTED_SCHEMA"

	// CodeNoDataFound indicates parsing succeeded structurally but
	// yielded zero usable records.
	CodeNoDataFound Code = "NO_DATA_FOUND"

	// CodePartialMergeFailure indicates a single record failed to
	// merge. Recovered per record; it surfaces in summary warnings,
	// never as a run error.
	CodePartialMergeFailure Code = "PARTIAL_MERGE_FAILURE"

	// CodeStorageFailure indicates the store rejected a read or write.
	// Fatal for the rest of the run; records already written stay
	// written and the summary reflects them.
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.RunToken != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunToken)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause so errors.Is and errors.As see
// through the classification.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the import error code from err, if it carries one.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) (Code, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code, true
	}
	return "", false
}

// IsNoDataFound reports whether err is a NoDataFound import error.
func IsNoDataFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeNoDataFound
}

// IsStorageFailure reports whether err is a StorageFailure import error.
func IsStorageFailure(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeStorageFailure
}
