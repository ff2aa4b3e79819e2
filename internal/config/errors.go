package config

import "fmt"

// ErrorCode categorizes fatal configuration errors. Every code aborts
// the run before any segment processing begins.
type ErrorCode string

const (
	// ErrCodeMergeConflict indicates the same key holds incompatible
	// value kinds (list vs mapping) across merged documents.
	ErrCodeMergeConflict ErrorCode = "MERGE_CONFLICT"

	// ErrCodeChecksumMismatch indicates the loaded ROM does not match
	// the checksum declared in the configuration.
	ErrCodeChecksumMismatch ErrorCode = "CHECKSUM_MISMATCH"

	// ErrCodeSchemaViolation indicates the merged document failed CUE
	// schema validation.
	ErrCodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"

	// ErrCodeNotFound indicates a referenced config or target path does
	// not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error is a fatal configuration error. Configuration-time errors fail
// fast: nothing has been scanned or written when one is returned.
type Error struct {
	Code    ErrorCode
	Key     string // offending key or path, when known
	Message string
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Key, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
