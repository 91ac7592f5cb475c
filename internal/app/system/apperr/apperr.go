// Package apperr defines the error kinds shared by the catalog, folder tree
// and share ledger. Services wrap these with %w; only the HTTP boundary
// (jsonutil.WriteError) translates them into status codes.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated means the credential was missing or invalid.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUnauthorized means the caller is known but does not own the resource.
	ErrUnauthorized = errors.New("not authorized")
	// ErrValidation means the input was rejected; see ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConflict means a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrNotFound means the resource does not exist for this caller.
	ErrNotFound = errors.New("not found")
	// ErrUploadFailed means the blob write failed; no metadata was written.
	ErrUploadFailed = errors.New("upload failed")
	// ErrStorageUnavailable means the blob store or database failed or timed out.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError carries field-level messages. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

// Invalid returns a ValidationError for a single field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Fields returns the field messages of a validation error in err's chain,
// or nil if there is none.
func Fields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
