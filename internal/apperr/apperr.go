// Package apperr defines the typed error used across the processing
// pipeline. Callers match on Kind via errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a processing failure.
type Kind string

const (
	// KindValidation covers rejected uploads: empty, oversized, wrong type.
	KindValidation Kind = "VALIDATION_FAILURE"
	// KindInvalidState is an out-of-order transition request.
	KindInvalidState Kind = "INVALID_STATE"
	// KindSessionNotFound means the session id is unknown or already deleted.
	KindSessionNotFound Kind = "SESSION_NOT_FOUND"
	// KindConversion is a failure in the archival PDF conversion step.
	KindConversion Kind = "CONVERSION_FAILURE"
	// KindGeneration is a failure while producing the e-invoice artifact.
	KindGeneration Kind = "GENERATION_FAILURE"
	// KindIO is a filesystem failure.
	KindIO Kind = "IO_FAILURE"
	// KindConformance means the conformance validator itself could not run.
	KindConformance Kind = "CONFORMANCE_FAILURE"
	// KindInternal is the catch-all for unexpected failures.
	KindInternal Kind = "INTERNAL_UNEXPECTED"
)

// Error carries an operator-facing message plus a lower-level detail string
// for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a wrapped cause.
func New(kind Kind, message, detail string) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail}
}

// Wrap builds an Error around a cause, using the cause as detail.
func Wrap(kind Kind, message string, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{Kind: kind, Message: message, Detail: detail, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// SessionNotFound is the lookup failure for unknown or deleted sessions.
func SessionNotFound(sessionID string) *Error {
	return New(KindSessionNotFound, "session not found: "+sessionID,
		"the session expired or never existed")
}

// InvalidState rejects an out-of-order transition request, naming the
// status the session is actually in.
func InvalidState(message, currentStatus string) *Error {
	return New(KindInvalidState, message, "current status: "+currentStatus)
}
