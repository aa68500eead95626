package target

import (
	"fmt"
)

// MissingColumnsError reports required input columns absent from a stream
// batch. Fatal; the message lists found vs required.
type MissingColumnsError struct {
	Stream   string
	Found    []string
	Required []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("input stream %q is missing required columns: found=%v required=%v", e.Stream, e.Found, e.Required)
}

// UnexpectedCategoryError reports a transaction classification outside the
// recognized set. Fatal.
type UnexpectedCategoryError struct {
	Value string
}

func (e *UnexpectedCategoryError) Error() string {
	return fmt.Sprintf("unexpected transaction type %q: expected charge, payment, fee, adjustment or refund", e.Value)
}
