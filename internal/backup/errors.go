package backup

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific backup error types
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota
	// ErrConfig represents a configuration error
	ErrConfig
	// ErrIO represents an I/O error
	ErrIO
	// ErrDatabase represents a failure to snapshot the database
	ErrDatabase
	// ErrInsufficientSpace represents insufficient storage space
	ErrInsufficientSpace
	// ErrUnsupported represents a backend that cannot be backed up
	ErrUnsupported
	// ErrCanceled represents a canceled operation
	ErrCanceled
	// ErrValidation represents a validation error
	ErrValidation
	// ErrSecurity represents a host key or authentication failure
	ErrSecurity
	// ErrLocked represents a backup that is already running
	ErrLocked
)

var codeNames = map[ErrorCode]string{
	ErrUnknown:           "unknown",
	ErrConfig:            "config",
	ErrIO:                "io",
	ErrDatabase:          "database",
	ErrInsufficientSpace: "insufficient_space",
	ErrUnsupported:       "unsupported",
	ErrCanceled:          "canceled",
	ErrValidation:        "validation",
	ErrSecurity:          "security",
	ErrLocked:            "locked",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return codeNames[ErrUnknown]
}

// Error represents a backup operation error
type Error struct {
	Code    ErrorCode // Error classification
	Message string    // Human-readable error message
	Err     error     // Original error if any
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backup: %s: %v", e.Message, e.Err)
	}
	return "backup: " + e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new backup error
func NewError(code ErrorCode, message string, err error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsErrorCode checks if an error is a backup error with the specified code
func IsErrorCode(err error, code ErrorCode) bool {
	var backupErr *Error
	if err == nil {
		return false
	}
	if errors.As(err, &backupErr) {
		return backupErr.Code == code
	}
	return false
}

// IsInsufficientSpaceError checks if an error is an insufficient space error
func IsInsufficientSpaceError(err error) bool {
	return IsErrorCode(err, ErrInsufficientSpace)
}

// IsUnsupportedError checks if the backend cannot be backed up
func IsUnsupportedError(err error) bool {
	return IsErrorCode(err, ErrUnsupported)
}
