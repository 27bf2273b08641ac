package accum

import "fmt"

// A Plan partitions a logical batch into contiguous, near-equal-size
// micro-batches. With N samples and split factor k, every micro-batch holds
// either ceil(N/k) or floor(N/k) samples, and the larger ones come first.
type Plan struct {
	batchSize   int
	splitFactor int
}

// MakePlan creates a Plan that splits batchSize samples into splitFactor
// micro-batches. The split factor is capped at the batch size so that no
// micro-batch is ever empty.
func MakePlan(batchSize, splitFactor int) Plan {
	if batchSize <= 0 {
		panic(fmt.Sprintf("batch size must be positive, got %d", batchSize))
	}

	if splitFactor <= 0 {
		panic(fmt.Sprintf("split factor must be positive, got %d", splitFactor))
	}

	if splitFactor > batchSize {
		splitFactor = batchSize
	}

	return Plan{
		batchSize:   batchSize,
		splitFactor: splitFactor,
	}
}

// BatchSize returns the number of samples the plan covers.
func (p Plan) BatchSize() int {
	return p.batchSize
}

// SplitFactor returns the number of micro-batches, after capping.
func (p Plan) SplitFactor() int {
	return p.splitFactor
}

// MicroBatchSize returns the number of samples in micro-batch i.
func (p Plan) MicroBatchSize(i int) int {
	start, end := p.Bounds(i)
	return end - start
}

// Bounds returns the sample range [start, end) of micro-batch i. The
// remainder of the division is spread over the earliest micro-batches.
func (p Plan) Bounds(i int) (start, end int) {
	if i < 0 || i >= p.splitFactor {
		panic(fmt.Sprintf("micro-batch index %d out of range [0, %d)",
			i, p.splitFactor))
	}

	base := p.batchSize / p.splitFactor
	remainder := p.batchSize % p.splitFactor

	if i < remainder {
		start = i * (base + 1)
		return start, start + base + 1
	}

	start = remainder*(base+1) + (i-remainder)*base

	return start, start + base
}
