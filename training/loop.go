package training

import (
	"context"
	"errors"
	"sync"

	"github.com/trainware/microbatch/accum"
	"github.com/trainware/microbatch/monitoring"
)

// A Loop drives logical batches from a source through the controller until
// the source is exhausted or a fatal failure surfaces. The loop never
// changes the batch size it is handed. Fitting the batch into device memory
// is the controller's job.
type Loop struct {
	run     *Run
	source  BatchSource
	stepper accum.Stepper

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	batchesDoneLock sync.Mutex
	batchesDone     int
}

// NewLoop creates a Loop over the given run, source, and stepper.
func NewLoop(run *Run, source BatchSource, stepper accum.Stepper) *Loop {
	l := &Loop{
		run:     run,
		source:  source,
		stepper: stepper,
	}

	if run.Monitor() != nil {
		run.Monitor().RegisterLoop(l)
	}

	return l
}

// BatchesDone returns the number of logical batches completed so far. It is
// safe to call while Run is in flight.
func (l *Loop) BatchesDone() int {
	l.batchesDoneLock.Lock()
	defer l.batchesDoneLock.Unlock()

	return l.batchesDone
}

func (l *Loop) addBatchDone() {
	l.batchesDoneLock.Lock()
	defer l.batchesDoneLock.Unlock()

	l.batchesDone++
}

// Run processes batches until the source is exhausted, the context is
// canceled, or the controller reports a fatal failure. Fatal failures are
// returned unchanged, so the caller can distinguish a split-exhausted run
// from a bad step with errors.As.
func (l *Loop) Run(ctx context.Context) error {
	bar := l.progressBar()

	for {
		err := ctx.Err()
		if err != nil {
			return err
		}

		l.pauseLock.Lock()

		batch, err := l.source.Next()
		if err != nil {
			l.pauseLock.Unlock()

			if errors.Is(err, ErrNoMoreBatches) {
				l.finishProgressBar(bar)
				return nil
			}

			return err
		}

		if bar != nil {
			bar.StartBatch()
		}

		result, err := l.run.Controller().RunStep(batch, l.stepper)

		l.pauseLock.Unlock()

		if err != nil {
			if bar != nil {
				bar.AbandonBatch()
			}
			l.finishProgressBar(bar)

			return err
		}

		l.addBatchDone()
		if bar != nil {
			bar.FinishBatch(result.SplitFactor, result.Attempts)
		}
	}
}

// Pause prevents the loop from starting more batches. The batch in flight
// still completes.
func (l *Loop) Pause() {
	l.isPausedLock.Lock()
	defer l.isPausedLock.Unlock()

	if l.isPaused {
		return
	}

	l.pauseLock.Lock()
	l.isPaused = true
}

// Continue allows a paused loop to process more batches.
func (l *Loop) Continue() {
	l.isPausedLock.Lock()
	defer l.isPausedLock.Unlock()

	if !l.isPaused {
		return
	}

	l.pauseLock.Unlock()
	l.isPaused = false
}

func (l *Loop) progressBar() *monitoring.ProgressBar {
	monitor := l.run.Monitor()
	if monitor == nil {
		return nil
	}

	sized, ok := l.source.(SizedSource)
	if !ok {
		return nil
	}

	return monitor.CreateProgressBar("batches", uint64(sized.NumBatches()))
}

func (l *Loop) finishProgressBar(bar *monitoring.ProgressBar) {
	if bar == nil {
		return
	}

	l.run.Monitor().CompleteProgressBar(bar)
}
