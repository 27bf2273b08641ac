package accum

// A GrowthPolicy decides the next split factor after a resource-exhaustion
// failure. The returned value is capped at the batch size by the controller,
// and must be strictly larger than the current factor.
type GrowthPolicy interface {
	NextSplitFactor(current int) int
}

// Doubling doubles the split factor on each raise. Doubling halves the peak
// micro-batch memory per raise, so the controller converges in at most
// log2(batch size) retries.
type Doubling struct{}

// NextSplitFactor returns twice the current split factor.
func (Doubling) NextSplitFactor(current int) int {
	return current * 2
}

// Linear raises the split factor by a fixed step on each raise.
type Linear struct {
	Step int
}

// NextSplitFactor returns the current split factor plus the step. A
// non-positive step counts as 1.
func (p Linear) NextSplitFactor(current int) int {
	step := p.Step
	if step < 1 {
		step = 1
	}

	return current + step
}
