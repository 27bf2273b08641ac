package accum

// A Batch is an ordered collection of samples that one optimizer step is
// mathematically defined over. The controller never looks at the samples. It
// only needs the size of the batch and the ability to carve out contiguous
// sub-ranges as micro-batches.
type Batch interface {
	// Size returns the number of samples in the batch.
	Size() int

	// Slice returns the contiguous sub-batch [start, end).
	Slice(start, end int) Batch
}

// SliceBatch adapts a plain Go slice into a Batch.
type SliceBatch[S any] struct {
	Samples []S
}

// NewSliceBatch creates a SliceBatch over the given samples.
func NewSliceBatch[S any](samples []S) SliceBatch[S] {
	return SliceBatch[S]{Samples: samples}
}

// Size returns the number of samples in the batch.
func (b SliceBatch[S]) Size() int {
	return len(b.Samples)
}

// Slice returns the sub-batch [start, end). The returned batch shares the
// underlying sample storage.
func (b SliceBatch[S]) Slice(start, end int) Batch {
	return SliceBatch[S]{Samples: b.Samples[start:end]}
}
