package domain

import "errors"

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrStorage          = errors.New("storage error")
	ErrDatabase         = errors.New("database error")
)

// Domain error types. Each wraps a message and matches its sentinel
// through errors.Is, so callers can branch on the kind without
// depending on the concrete type.
type (
	// NotFoundError indicates the referenced entity does not exist or
	// has been soft-deleted.
	NotFoundError struct {
		Message string
	}

	// PermissionDeniedError indicates an ACL check failed. It is always
	// distinct from NotFoundError so callers can tell "no such document"
	// from "exists but you can't touch it".
	PermissionDeniedError struct {
		Message string
	}

	// ValidationError indicates malformed input. Client-correctable,
	// never retried.
	ValidationError struct {
		Message string
	}

	// StorageError indicates the object store rejected a read or write.
	StorageError struct {
		Message string
		Err     error
	}

	// DatabaseError wraps an underlying persistence failure.
	DatabaseError struct {
		Message string
		Err     error
	}
)

func (e *NotFoundError) Error() string         { return e.Message }
func (e *PermissionDeniedError) Error() string { return e.Message }
func (e *ValidationError) Error() string       { return e.Message }

func (e *StorageError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DatabaseError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *NotFoundError) Is(target error) bool         { return target == ErrNotFound }
func (e *PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }
func (e *ValidationError) Is(target error) bool       { return target == ErrValidation }
func (e *StorageError) Is(target error) bool          { return target == ErrStorage }
func (e *DatabaseError) Is(target error) bool         { return target == ErrDatabase }

func (e *StorageError) Unwrap() error  { return e.Err }
func (e *DatabaseError) Unwrap() error { return e.Err }
