package errors

import (
	"fmt"
)

// EmptyDatasetError occurs when First or Reduce is invoked on a Dataset with zero rows
type EmptyDatasetError struct{}

// Error returns a textual representation of this EmptyDatasetError
func (e EmptyDatasetError) Error() string {
	return "Dataset contains no rows"
}

// TypeShapeError occurs when a key/value-only operation encounters a Row which
// is not a KeyValue pair, or when keys are not mutually comparable
type TypeShapeError struct{ Op string }

// Error returns a textual representation of this TypeShapeError
func (e TypeShapeError) Error() string {
	return fmt.Sprintf("Operation %s requires key/value rows", e.Op)
}

// PathExistsError occurs when the target path of SaveAsTextFile already exists
type PathExistsError struct{ Path string }

// Error returns a textual representation of this PathExistsError
func (e PathExistsError) Error() string {
	return fmt.Sprintf("Target path %s already exists", e.Path)
}

// UserFunctionError wraps a failure raised inside a caller-supplied function,
// carrying the originating partition index and row offset for diagnostics.
// Partition and Offset are -1 for failures during driver-side aggregation.
type UserFunctionError struct {
	Partition int
	Offset    int
	Err       error
}

// Error returns a textual representation of this UserFunctionError
func (e UserFunctionError) Error() string {
	return fmt.Sprintf("User function failed at partition %d row %d: %v", e.Partition, e.Offset, e.Err)
}

// Unwrap returns the underlying failure
func (e UserFunctionError) Unwrap() error {
	return e.Err
}
