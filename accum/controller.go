package accum

import (
	"errors"
	"fmt"
)

// A Stepper is the capability the training loop hands to the controller. It
// runs the forward/backward computation over one micro-batch and accumulates
// the gradients on the side of the caller. The caller must only apply the
// optimizer update after the micro-batch flagged isLast succeeds.
//
// Step reports resource exhaustion by returning an error that matches
// ErrResourceExhausted under errors.Is. Every other error is treated as
// non-retryable.
type Stepper interface {
	Step(microBatch Batch, isLast bool) error

	// Rollback discards any gradient or optimizer state the current attempt
	// has accumulated so far. The controller calls it exactly once before
	// retrying a logical batch.
	Rollback()
}

// StepperFunc adapts a step function and a rollback function into a Stepper.
type StepperFunc struct {
	StepFunc     func(microBatch Batch, isLast bool) error
	RollbackFunc func()
}

// Step runs the step function.
func (s StepperFunc) Step(microBatch Batch, isLast bool) error {
	return s.StepFunc(microBatch, isLast)
}

// Rollback runs the rollback function if one is set.
func (s StepperFunc) Rollback() {
	if s.RollbackFunc != nil {
		s.RollbackFunc()
	}
}

// A StepResult reports how a logical batch completed.
type StepResult struct {
	// SplitFactor is the number of micro-batches of the successful attempt.
	SplitFactor int

	// Attempts is the number of attempts the batch took, including the
	// successful one.
	Attempts int
}

// SplitRaise is the Detail payload of HookPosSplitRaise.
type SplitRaise struct {
	PreviousSplitFactor int
	NewSplitFactor      int
	BatchIndex          int
}

// AttemptInfo is the Detail payload of HookPosAttemptStart,
// HookPosAttemptAbort, and HookPosBatchComplete.
type AttemptInfo struct {
	BatchIndex  int
	BatchSize   int
	SplitFactor int
	Attempt     int
}

// A Controller wraps training steps and transparently retries a logical
// batch with more, smaller micro-batches whenever the step reports resource
// exhaustion. The caller keeps its logical batch size. The controller owns
// how the batch is split.
type Controller struct {
	HookableBase

	name   string
	state  *State
	policy GrowthPolicy
	served int
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// State returns the controller state for diagnostics. Callers must not
// mutate it while a run is in flight.
func (c *Controller) State() *State {
	return c.state
}

// RunStep runs one logical batch through the stepper, splitting it into
// State().SplitFactor() micro-batches. On resource exhaustion it rolls the
// attempt back, raises the split factor, and retries the whole batch from
// its first micro-batch. Once raised, the split factor stays raised for all
// later batches.
//
// The returned error is a *SplitExhaustedError when even single-sample
// micro-batches exhaust the resource, or a *NonRetryableError wrapping any
// other step failure.
func (c *Controller) RunStep(batch Batch, stepper Stepper) (StepResult, error) {
	if batch == nil || batch.Size() == 0 {
		panic("logical batch must not be empty")
	}

	batchIndex := c.served
	c.served++
	c.state.batchIndex = batchIndex

	n := batch.Size()
	attempt := 0

	for {
		attempt++

		// The persistent factor can exceed the size of a short final batch.
		// The plan caps it for this batch only. The persistent factor is
		// never lowered.
		plan := MakePlan(n, c.state.splitFactor)
		k := plan.SplitFactor()

		c.state.phase = PhaseAttempting
		c.invokeAttemptHook(HookPosAttemptStart, batch, batchIndex, k, attempt)

		failedAt, err := c.runAttempt(batch, plan, stepper)
		if err == nil {
			c.state.phase = PhaseSucceeded
			c.invokeAttemptHook(
				HookPosBatchComplete, batch, batchIndex, k, attempt)

			return StepResult{SplitFactor: k, Attempts: attempt}, nil
		}

		if !errors.Is(err, ErrResourceExhausted) {
			c.state.phase = PhaseFatalFailed
			wrapped := &NonRetryableError{
				MicroBatchIndex: failedAt,
				SplitFactor:     k,
				Err:             err,
			}
			c.state.lastFailure = wrapped
			c.invokeAttemptHook(HookPosStepError, batch, batchIndex, k, attempt)

			return StepResult{}, wrapped
		}

		stepper.Rollback()

		if k == n {
			c.state.phase = PhaseFatalFailed
			fatal := &SplitExhaustedError{BatchSize: n, SplitFactor: k}
			c.state.lastFailure = fatal
			c.invokeAttemptHook(
				HookPosSplitExhausted, batch, batchIndex, k, attempt)

			return StepResult{}, fatal
		}

		c.invokeAttemptHook(HookPosAttemptAbort, batch, batchIndex, k, attempt)
		c.raiseSplitFactor(batch, batchIndex, k, n)
	}
}

func (c *Controller) runAttempt(
	batch Batch,
	plan Plan,
	stepper Stepper,
) (failedAt int, err error) {
	k := plan.SplitFactor()

	for i := 0; i < k; i++ {
		start, end := plan.Bounds(i)
		isLast := i == k-1

		err := stepper.Step(batch.Slice(start, end), isLast)
		if err != nil {
			c.state.lastFailure = err
			return i, err
		}
	}

	return 0, nil
}

func (c *Controller) raiseSplitFactor(batch Batch, batchIndex, k, n int) {
	newFactor := c.policy.NextSplitFactor(k)
	if newFactor <= k {
		panic(fmt.Sprintf(
			"growth policy must raise the split factor, got %d from %d",
			newFactor, k))
	}

	if newFactor > n {
		newFactor = n
	}

	if newFactor > c.state.splitFactor {
		c.state.splitFactor = newFactor
	}
	c.state.raiseCount++

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosSplitRaise,
		Item:   batch,
		Detail: SplitRaise{
			PreviousSplitFactor: k,
			NewSplitFactor:      newFactor,
			BatchIndex:          batchIndex,
		},
	})
}

func (c *Controller) invokeAttemptHook(
	pos *HookPos,
	batch Batch,
	batchIndex, k, attempt int,
) {
	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   batch,
		Detail: AttemptInfo{
			BatchIndex:  batchIndex,
			BatchSize:   batch.Size(),
			SplitFactor: k,
			Attempt:     attempt,
		},
	})
}
