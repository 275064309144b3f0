package attachment

import (
	"errors"
	"fmt"
)

// ValidationReason is the machine-readable rejection code surfaced to
// callers as part of a 400 response.
type ValidationReason string

const (
	ReasonBlockedExtension  ValidationReason = "blocked-extension"
	ReasonDisallowedMime    ValidationReason = "disallowed-mime"
	ReasonTooLarge          ValidationReason = "too-large"
	ReasonSignatureMismatch ValidationReason = "signature-mismatch"
	ReasonInvalidName       ValidationReason = "invalid-name"
)

// ValidationError rejects an upload before any bytes are written.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// AsValidationError returns the wrapped ValidationError, or nil.
func AsValidationError(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}

// AuthorizationError denies access for a principal/owner combination.
type AuthorizationError struct {
	PrincipalID string
	Owner       OwnerRef
	Reason      string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("principal %s denied on %s %s: %s", e.PrincipalID, e.Owner.Type, e.Owner.ID, e.Reason)
}

// AsAuthorizationError returns the wrapped AuthorizationError, or nil.
func AsAuthorizationError(err error) *AuthorizationError {
	var aerr *AuthorizationError
	if errors.As(err, &aerr) {
		return aerr
	}
	return nil
}

var (
	// ErrNotFound marks an unknown attachment id.
	ErrNotFound = errors.New("attachment not found")
	// ErrOwnerNotFound marks an unknown owning task or subtask.
	ErrOwnerNotFound = errors.New("owner not found")
)

// StorageError wraps a fault at the storage driver layer. It is never
// retried by the subsystem itself.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
