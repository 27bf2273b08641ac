package accum

import (
	"errors"
	"fmt"
)

// ErrResourceExhausted is the signal a Stepper returns, possibly wrapped,
// when the compute device ran out of memory for the attempted micro-batch
// size. It is the only error the controller retries on.
var ErrResourceExhausted = errors.New("resource exhausted")

// A SplitExhaustedError reports that resource exhaustion persisted even with
// single-sample micro-batches, so the logical batch cannot be made to fit.
type SplitExhaustedError struct {
	BatchSize   int
	SplitFactor int
}

func (e *SplitExhaustedError) Error() string {
	return fmt.Sprintf(
		"resource exhausted even at %d micro-batches of a %d-sample batch",
		e.SplitFactor, e.BatchSize)
}

// Unwrap lets errors.Is(err, ErrResourceExhausted) hold for the fatal case
// too, since the underlying condition is still device memory.
func (e *SplitExhaustedError) Unwrap() error {
	return ErrResourceExhausted
}

// A NonRetryableError wraps a step failure that is not resource exhaustion.
// The controller never retries these. The wrapped error is the Stepper's
// original failure, unchanged.
type NonRetryableError struct {
	MicroBatchIndex int
	SplitFactor     int
	Err             error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("step failed on micro-batch %d of %d: %s",
		e.MicroBatchIndex, e.SplitFactor, e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}
