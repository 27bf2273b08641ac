package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks logical batches moving through a run, together with
// the split factor the controller is currently running at and the attempts
// the batches took so far.
type ProgressBar struct {
	sync.Mutex
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StartTime       time.Time `json:"start_time"`
	TotalBatches    uint64    `json:"total_batches"`
	FinishedBatches uint64    `json:"finished_batches"`
	InFlight        uint64    `json:"in_flight"`
	SplitFactor     int       `json:"split_factor"`
	TotalAttempts   uint64    `json:"total_attempts"`
}

// StartBatch marks one logical batch as in flight.
func (b *ProgressBar) StartBatch() {
	b.Lock()
	defer b.Unlock()

	b.InFlight++
}

// FinishBatch moves the in-flight batch to finished. splitFactor is the
// factor the batch completed at, attempts the number of attempts it took.
func (b *ProgressBar) FinishBatch(splitFactor, attempts int) {
	b.Lock()
	defer b.Unlock()

	b.InFlight--
	b.FinishedBatches++
	b.SplitFactor = splitFactor
	b.TotalAttempts += uint64(attempts)
}

// AbandonBatch takes the in-flight batch off the bar without finishing it,
// as when the run dies on a fatal failure.
func (b *ProgressBar) AbandonBatch() {
	b.Lock()
	defer b.Unlock()

	b.InFlight--
}
