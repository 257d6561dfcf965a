package storage

import (
	"errors"
	"fmt"
)

// StoreError represents a failure reported by a storage backend.
//
// These are the only errors the SDK surfaces to callers: every fallible
// operation either succeeds (nil error) or produces a StoreError carrying a
// stable numeric code and a human-readable message. Foreign bindings marshal
// the code and message across the call boundary unchanged.
//
// The SDK never recovers from backend failures on the caller's behalf; retry
// policy belongs to the caller.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the filesystem path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// Errorf creates a StoreError with a formatted message and no path.
func Errorf(code ErrorCode, format string, args ...any) *StoreError {
	return &StoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode represents the category of a storage error.
//
// The numeric values form the wire contract of the C binding (the `code`
// field of a datenlord_error) and are documented in include/datenlord.h.
// They must never be renumbered or reused.
type ErrorCode uint32

const (
	// ErrInvalidArgument indicates invalid parameters were provided.
	// Examples: empty path, nil buffer with non-zero length
	ErrInvalidArgument ErrorCode = 1

	// ErrNotFound indicates the requested file or directory doesn't exist
	ErrNotFound ErrorCode = 2

	// ErrAlreadyExists indicates a file/directory with the name already exists
	ErrAlreadyExists ErrorCode = 3

	// ErrNotEmpty indicates a directory is not empty (cannot be removed
	// without the recursive flag)
	ErrNotEmpty ErrorCode = 4

	// ErrPermissionDenied indicates the backend refused access
	ErrPermissionDenied ErrorCode = 5

	// ErrIOError indicates a generic backend I/O failure
	ErrIOError ErrorCode = 6

	// ErrConfigError indicates the SDK configuration could not be parsed
	// or validated
	ErrConfigError ErrorCode = 7

	// ErrConnectionError indicates the backing store could not be reached
	// or established during initialization
	ErrConnectionError ErrorCode = 8

	// ErrInvalidHandle indicates an unknown or already-released SDK handle,
	// or an operation on a client after Close
	ErrInvalidHandle ErrorCode = 9
)

// String returns the symbolic name of the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrNotEmpty:
		return "NotEmpty"
	case ErrPermissionDenied:
		return "PermissionDenied"
	case ErrIOError:
		return "IOError"
	case ErrConfigError:
		return "ConfigError"
	case ErrConnectionError:
		return "ConnectionError"
	case ErrInvalidHandle:
		return "InvalidHandle"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint32(c))
	}
}

// CodeOf extracts the ErrorCode from an error returned by the SDK.
// Non-StoreError values (including wrapped context errors) map to ErrIOError.
// A nil error has no code; CodeOf panics if called with nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		panic("storage: CodeOf called with nil error")
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrIOError
}
