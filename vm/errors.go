package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Runtime error taxonomy
// ---------------------------------------------------------------------------

// Errors.
var (
	// ErrStepBudget is returned by Run and Step when the configured step
	// budget is exhausted. The machine is left valid and resumable.
	ErrStepBudget = errors.New("step budget exhausted")

	// ErrHalted is returned by Step when the machine has already
	// terminated.
	ErrHalted = errors.New("machine halted")
)

// TapeBoundsError reports a pointer move that would leave the tape.
// Pointer is the cell the move targeted, which is always -1 or Length.
type TapeBoundsError struct {
	Pointer int // target cell of the rejected move
	Length  int // tape length
	Offset  int // source offset of the offending instruction
}

func (e *TapeBoundsError) Error() string {
	return fmt.Sprintf("tape pointer out of bounds: cell %d of %d (source offset %d)",
		e.Pointer, e.Length, e.Offset)
}

// OutputError wraps a failed write or flush of the output stream.
type OutputError struct {
	Offset int // source offset of the . that failed
	Err    error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("write output (source offset %d): %v", e.Offset, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// InputError wraps a failed read of the input stream. End of input is
// not an input error; it follows the machine's EOF policy.
type InputError struct {
	Offset int // source offset of the , that failed
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("read input (source offset %d): %v", e.Offset, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
