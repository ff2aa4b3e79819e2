package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// Validate checks the merged document against the embedded CUE schema.
// Uses the CUE SDK's Go API directly (not a CLI subprocess). Returns a
// *Error with ErrCodeSchemaViolation on any constraint failure.
func Validate(doc Document) error {
	// The segments list is the one structurally required field. Checked
	// here as well as in the schema: a missing key must fail loudly, not
	// validate as an incomplete-but-open document.
	if _, ok := doc["segments"]; !ok {
		return &Error{
			Code:    ErrCodeSchemaViolation,
			Key:     "segments",
			Message: "missing required field: segments",
		}
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// The schema is embedded; failing to compile it is a bug, not
		// a configuration problem.
		return fmt.Errorf("compile embedded schema: %w", err)
	}

	value := ctx.Encode(map[string]any(doc))
	if err := value.Err(); err != nil {
		return &Error{Code: ErrCodeSchemaViolation, Message: formatCUEError(err)}
	}

	unified := schema.Unify(value)
	if err := unified.Err(); err != nil {
		return &Error{Code: ErrCodeSchemaViolation, Message: formatCUEError(err)}
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &Error{Code: ErrCodeSchemaViolation, Message: formatCUEError(err)}
	}

	return nil
}

// formatCUEError flattens a CUE error list into one message with the
// first error's position, mirroring how compile errors are reported.
func formatCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		pos := positions[0]
		return fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), first.Error())
	}
	return first.Error()
}
