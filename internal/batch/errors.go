package batch

import (
	"errors"
	"fmt"
	"io/fs"
)

// BatchError represents a failure while hashing a numbered file range.
//
// Batch errors include:
//   - Missing file: an expected input index has no file on disk
//   - I/O error: a file exists but could not be read
//   - Invalid count: a negative item count was requested
//
// BatchError includes structured fields for diagnostics; there is no retry
// or downgrade path, every batch error is fatal to the run.
type BatchError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the item index being processed, -1 when not applicable.
	Index int

	// Path is the input file path involved, empty when not applicable.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes batch errors.
type ErrorCode string

const (
	// ErrCodeMissingFile indicates a required input file is absent.
	ErrCodeMissingFile ErrorCode = "MISSING_FILE"

	// ErrCodeIO indicates a read failure on an existing input file.
	ErrCodeIO ErrorCode = "IO_ERROR"

	// ErrCodeInvalidCount indicates a negative item count.
	ErrCodeInvalidCount ErrorCode = "INVALID_COUNT"
)

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (index=%d, path=%s)", e.Code, e.Message, e.Index, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// IsMissingFile returns true if the error is a missing-input error.
// Uses errors.As to handle wrapped errors.
func IsMissingFile(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code == ErrCodeMissingFile
	}
	return false
}

// IsInvalidCount returns true if the error is a negative-count error.
func IsInvalidCount(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code == ErrCodeInvalidCount
	}
	return false
}

// newHashError classifies a digest failure for one index. A not-exist cause
// becomes MISSING_FILE, anything else IO_ERROR.
func newHashError(index int, path string, err error) *BatchError {
	if errors.Is(err, fs.ErrNotExist) {
		return &BatchError{
			Code:    ErrCodeMissingFile,
			Message: "input file does not exist",
			Index:   index,
			Path:    path,
			Err:     err,
		}
	}
	return &BatchError{
		Code:    ErrCodeIO,
		Message: "input file could not be read",
		Index:   index,
		Path:    path,
		Err:     err,
	}
}

// newCountError creates a BatchError for an invalid item count.
func newCountError(count int) *BatchError {
	return &BatchError{
		Code:    ErrCodeInvalidCount,
		Message: fmt.Sprintf("item count must be >= 0, got %d", count),
		Index:   -1,
	}
}
