package layers

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrUndefinedBlob       = errors.New("undefined blob")
	ErrOutputCount         = errors.New("output count mismatch")
	ErrInputCount          = errors.New("input count mismatch")
	ErrInvalidParam        = errors.New("invalid layer parameter")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrUnsupportedKind     = errors.New("unsupported layer kind")
	ErrWeightMismatch      = errors.New("weight shape mismatch")
	ErrMissingWeights      = errors.New("missing weights")
	ErrEmptyCheckpoint     = errors.New("checkpoint has no layers")
)

// StructuralError reports a malformed topology: an undefined blob, an
// output count mismatch or a bad parameter. It is always fatal.
type StructuralError struct {
	Layer   string // Layer name
	Kind    Kind   // Layer kind
	Err     error  // Sentinel category
	Details string // Additional details
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("layer %q (%v): %v: %s", e.Layer, e.Kind, e.Err, e.Details)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Details)
}

// Unwrap returns the sentinel category.
func (e *StructuralError) Unwrap() error {
	return e.Err
}

// WeightMismatchError reports a checkpoint block whose size does not match
// the operation's parameter tensor.
type WeightMismatchError struct {
	Layer string // Layer name
	Kind  Kind   // Layer kind
	Block int    // Block index within the checkpoint record
	Param string // Parameter being filled (weight, bias, mean, ...)
	Want  int    // Expected element count
	Got   int    // Element count in the checkpoint
}

// Error implements the error interface.
func (e *WeightMismatchError) Error() string {
	return fmt.Sprintf("layer %q (%v): %v: block %d (%s) has %d elements, want %d",
		e.Layer, e.Kind, ErrWeightMismatch, e.Block, e.Param, e.Got, e.Want)
}

// Unwrap returns ErrWeightMismatch.
func (e *WeightMismatchError) Unwrap() error {
	return ErrWeightMismatch
}

func structural(rec *LayerRecord, err error, format string, args ...any) *StructuralError {
	return &StructuralError{Layer: rec.Name, Kind: rec.Kind, Err: err, Details: fmt.Sprintf(format, args...)}
}
