package segment

import "fmt"

// BuildErrorCode categorizes fatal segment-graph construction errors.
// Every one of these aborts the run before any binary processing.
type BuildErrorCode string

const (
	// ErrCodeUnknownType indicates a descriptor's type tag has no
	// registered behavior.
	ErrCodeUnknownType BuildErrorCode = "UNKNOWN_SEGMENT_TYPE"

	// ErrCodeDuplicateName indicates two segments whose type requires a
	// unique name share one.
	ErrCodeDuplicateName BuildErrorCode = "DUPLICATE_SEGMENT_NAME"

	// ErrCodeNestingViolation indicates a subsegment's range escapes
	// its parent group's range.
	ErrCodeNestingViolation BuildErrorCode = "NESTING_VIOLATION"

	// ErrCodeDuplicateID indicates two distinct segments derived the
	// same deterministic id. Treated as a build error, never a silent
	// cache-key overwrite.
	ErrCodeDuplicateID BuildErrorCode = "DUPLICATE_SEGMENT_ID"

	// ErrCodeBadDescriptor indicates a descriptor that cannot be
	// decoded (missing start, unordered starts, malformed entry).
	ErrCodeBadDescriptor BuildErrorCode = "BAD_DESCRIPTOR"
)

// BuildError is a fatal error from segment-graph construction.
type BuildError struct {
	Code    BuildErrorCode
	Segment string // segment or descriptor name, when known
	Message string
}

func (e *BuildError) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("%s: segment %q: %s", e.Code, e.Segment, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
