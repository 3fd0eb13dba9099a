// Package rerrors provides tagged error variants for the reconciliation
// engine. Every error the core raises carries a Kind that callers can
// switch on, plus enough Context to act on it without parsing message
// strings.
package rerrors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies one of the core's error variants.
type Kind string

const (
	// KindInvalidPath is raised when a blob path component violates the
	// path-safety contract.
	KindInvalidPath Kind = "invalid_path"
	// KindNotFound is raised when a blob or DB row is absent when required.
	KindNotFound Kind = "not_found"
	// KindReadError is raised when a source file cannot be parsed.
	KindReadError Kind = "read_error"
	// KindColumnValidation is raised when required columns are missing
	// after header-row skip.
	KindColumnValidation Kind = "column_validation"
	// KindReconciliationError is raised for a missing paired file or
	// duplicate reconcilable keys within a partition.
	KindReconciliationError Kind = "reconciliation_error"
	// KindDbUniqueViolation describes a per-row unique-key hit. The
	// persister detects those hits from the Postgres error code inside a
	// nested savepoint and counts them as skipped without building an error
	// of this kind, so it never escapes a run.
	KindDbUniqueViolation Kind = "db_unique_violation"
	// KindDbOperationError covers any other DB failure: constraint,
	// deadlock, connection loss.
	KindDbOperationError Kind = "db_operation_error"
)

// exitCodes maps each kind to the process exit code cmd/reconciler reports.
var exitCodes = map[Kind]int{
	KindInvalidPath:         2,
	KindNotFound:            3,
	KindReadError:           4,
	KindColumnValidation:    5,
	KindReconciliationError: 6,
	KindDbUniqueViolation:   0, // never fatal, recovered before it surfaces
	KindDbOperationError:    7,
}

// Context carries structured detail about an error occurrence.
type Context map[string]interface{}

// Error is the core's tagged error type.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Context    Context
	Cause      error
	stack      pkgerrors.StackTrace
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// StackTrace returns the captured stack for diagnostics.
func (e *Error) StackTrace() pkgerrors.StackTrace {
	return e.stack
}

// ExitCode returns the process exit code associated with this error's kind.
func (e *Error) ExitCode() int {
	if code, ok := exitCodes[e.Kind]; ok {
		return code
	}
	return 1
}

// WithContext attaches a key/value pair of diagnostic context.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches operator-facing remediation guidance.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// New creates a bare tagged error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		stack:   pkgerrors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap attaches a kind and message to an existing error, preserving it as
// the unwrap target and capturing a fresh stack trace at the wrap site.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
		stack:   pkgerrors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// InvalidPath builds a KindInvalidPath error for a rejected blob path
// component.
func InvalidPath(gateway, filename, reason string) *Error {
	return New(KindInvalidPath, fmt.Sprintf("invalid path component (gateway=%q, filename=%q): %s", gateway, filename, reason)).
		WithSuggestion("path components must match ^[A-Za-z0-9][A-Za-z0-9._-]*$ and must not contain '..', '/', or '\\'").
		WithContext("gateway", gateway).
		WithContext("filename", filename)
}

// NotFound builds a KindNotFound error for an absent blob or row.
func NotFound(resource, identifier string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found: %s", resource, identifier)).
		WithContext("resource", resource).
		WithContext("identifier", identifier)
}

// ReadError wraps an underlying parse failure for a source file.
func ReadError(filename string, err error) *Error {
	return Wrap(err, KindReadError, fmt.Sprintf("failed to read %s", filename)).
		WithSuggestion("verify the file is a valid .xlsx, .xls, or .csv export for this gateway").
		WithContext("filename", filename)
}

// ColumnValidation builds a KindColumnValidation error listing the missing
// required columns.
func ColumnValidation(filename string, missing []string) *Error {
	return New(KindColumnValidation, fmt.Sprintf("missing required columns in %s: %s", filename, strings.Join(missing, ", "))).
		WithSuggestion("check the gateway's column_mapping and required_columns configuration").
		WithContext("filename", filename).
		WithContext("missing_columns", missing)
}

// ReconciliationError builds a KindReconciliationError for a run-fatal
// reconciliation-stage failure (missing paired file, duplicate reconcilable
// keys).
func ReconciliationError(message string) *Error {
	return New(KindReconciliationError, message)
}

// DbUniqueViolation builds a KindDbUniqueViolation error describing the
// violated composite key. Callers recover from this locally; it is never
// propagated as a run-fatal error.
func DbUniqueViolation(reconciliationKey, gateway string, cause error) *Error {
	return Wrap(cause, KindDbUniqueViolation, fmt.Sprintf("duplicate key (%s, %s)", reconciliationKey, gateway)).
		WithContext("reconciliation_key", reconciliationKey).
		WithContext("gateway", gateway)
}

// DbOperationError wraps any other DB failure (constraint violation other
// than the tracked unique key, deadlock, connection loss) as run-fatal.
func DbOperationError(operation string, cause error) *Error {
	return Wrap(cause, KindDbOperationError, fmt.Sprintf("database operation failed: %s", operation)).
		WithSuggestion("check database connectivity and server logs").
		WithContext("operation", operation)
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if pkgerrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As extracts a *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if pkgerrors.As(err, &e) {
		return e, true
	}
	return nil, false
}
