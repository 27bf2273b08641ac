package training

import (
	"errors"

	"github.com/trainware/microbatch/accum"
)

// ErrNoMoreBatches is returned by a BatchSource when the run is over.
var ErrNoMoreBatches = errors.New("no more batches")

// A BatchSource produces the logical batches of a run, in order.
type BatchSource interface {
	// Next returns the next logical batch, or ErrNoMoreBatches.
	Next() (accum.Batch, error)
}

// A SizedSource is a BatchSource that knows how many batches it will
// produce. The loop uses it to scale the progress bar.
type SizedSource interface {
	BatchSource

	NumBatches() int
}

// SliceSource serves a fixed list of batches.
type SliceSource struct {
	batches []accum.Batch
	next    int
}

// NewSliceSource creates a SliceSource over the given batches.
func NewSliceSource(batches ...accum.Batch) *SliceSource {
	return &SliceSource{batches: batches}
}

// Next returns the next batch in the list.
func (s *SliceSource) Next() (accum.Batch, error) {
	if s.next >= len(s.batches) {
		return nil, ErrNoMoreBatches
	}

	batch := s.batches[s.next]
	s.next++

	return batch, nil
}

// NumBatches returns the total number of batches the source serves.
func (s *SliceSource) NumBatches() int {
	return len(s.batches)
}

// SourceFunc adapts a function into a BatchSource.
type SourceFunc func() (accum.Batch, error)

// Next calls the function.
func (f SourceFunc) Next() (accum.Batch, error) {
	return f()
}
