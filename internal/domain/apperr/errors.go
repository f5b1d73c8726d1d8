// Package apperr holds the typed failures returned by the identity workflows.
//
// Every failure path of a workflow returns one of these types, so callers can
// classify any error with KindOf instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error for the transport collaborator.
type Kind string

const (
	KindUnknown            Kind = "unknown"
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
	KindNotFound           Kind = "not_found"
	KindImageRejected      Kind = "image_rejected"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindHashing            Kind = "hashing"
	KindPersistence        Kind = "persistence"
)

// Field names used in ValidationError and ConflictError.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldUsername = "username"
	FieldAvatar   = "avatar"
)

// ValidationError reports malformed input keyed by field. It never follows a
// state change.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a message for field, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports that a unique field is already taken. Pre-checks and
// lost races at persistence time produce the same value.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already taken"
}

// NotFoundError reports that a referenced identity does not exist.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// ImageRejectedError reports an avatar payload that failed format or dimension
// policy. Reason is one of bad_format, too_large, decode_error.
type ImageRejectedError struct {
	Reason string
}

func (e *ImageRejectedError) Error() string {
	return "image rejected: " + e.Reason
}

// InvalidCredentialsError is returned by sign-in for unknown accounts, accounts
// without a password and wrong passwords alike.
type InvalidCredentialsError struct{}

func (e *InvalidCredentialsError) Error() string {
	return "invalid email or password"
}

// HashingError is an internal credential hashing malfunction.
type HashingError struct {
	Err error
}

func (e *HashingError) Error() string {
	return "credential hashing failed: " + errString(e.Err)
}

func (e *HashingError) Unwrap() error { return e.Err }

// PersistenceError is a store failure other than a uniqueness conflict.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence failure in " + e.Op + ": " + errString(e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err unless it is nil or already classified.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// KindOf classifies err.
func KindOf(err error) Kind {
	var (
		verr *ValidationError
		cerr *ConflictError
		nerr *NotFoundError
		ierr *ImageRejectedError
		aerr *InvalidCredentialsError
		herr *HashingError
		perr *PersistenceError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &cerr):
		return KindConflict
	case errors.As(err, &nerr):
		return KindNotFound
	case errors.As(err, &ierr):
		return KindImageRejected
	case errors.As(err, &aerr):
		return KindInvalidCredentials
	case errors.As(err, &herr):
		return KindHashing
	case errors.As(err, &perr):
		return KindPersistence
	default:
		return KindUnknown
	}
}

// ConflictField returns the conflicting field when err is a ConflictError.
func ConflictField(err error) (string, bool) {
	var cerr *ConflictError
	if errors.As(err, &cerr) {
		return cerr.Field, true
	}
	return "", false
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
