package cell

import "fmt"

// ComputationError wraps a failure raised by a user-supplied function
// during a derivation or a watcher notification. The failed cell stays
// dirty, so a later read re-attempts the computation instead of
// returning a cached error.
type ComputationError struct {
	// CellID identifies the cell whose computation failed.
	CellID uint64

	// Err is the underlying failure. If the function panicked with a
	// non-error value, the value is formatted into an error.
	Err error
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("cell: computation failed (cell %d): %v", e.CellID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ComputationError) Unwrap() error {
	return e.Err
}

// CyclicDependencyError reports that a cell's computation read its own
// value, directly or transitively. The cycle is detected at read time,
// so the computation fails instead of recursing forever; the cell
// remains eligible for retry once the cycle no longer holds.
type CyclicDependencyError struct {
	// CellID identifies the cell whose computation re-entered itself.
	CellID uint64
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cell: cyclic dependency detected (cell %d)", e.CellID)
}

// newComputationError wraps a recovered panic value. Reactive errors
// already carrying cell identity pass through unwrapped so callers can
// match them with errors.As.
func newComputationError(cellID uint64, recovered any) error {
	switch v := recovered.(type) {
	case *ComputationError:
		return v
	case *CyclicDependencyError:
		return v
	case error:
		return &ComputationError{CellID: cellID, Err: v}
	default:
		return &ComputationError{CellID: cellID, Err: fmt.Errorf("panic: %v", v)}
	}
}
