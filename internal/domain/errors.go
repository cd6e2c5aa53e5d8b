package domain

import "fmt"

// MissingFieldError reports a required field absent from a batch record.
// Analysis fails fast on the first one found.
type MissingFieldError struct {
	Index int    // position of the record in the submitted batch
	Field string // wire name of the missing field
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("receivable %d: missing required field %q", e.Index, e.Field)
}
