package accum

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Plan", func() {
	It("should split evenly when the factor divides the batch", func() {
		plan := MakePlan(8, 4)

		Expect(plan.SplitFactor()).To(Equal(4))
		for i := 0; i < 4; i++ {
			Expect(plan.MicroBatchSize(i)).To(Equal(2))
		}
	})

	It("should spread the remainder over the earliest micro-batches", func() {
		plan := MakePlan(10, 4)

		Expect(plan.MicroBatchSize(0)).To(Equal(3))
		Expect(plan.MicroBatchSize(1)).To(Equal(3))
		Expect(plan.MicroBatchSize(2)).To(Equal(2))
		Expect(plan.MicroBatchSize(3)).To(Equal(2))
	})

	It("should cap the split factor at the batch size", func() {
		plan := MakePlan(3, 8)

		Expect(plan.SplitFactor()).To(Equal(3))
		for i := 0; i < 3; i++ {
			Expect(plan.MicroBatchSize(i)).To(Equal(1))
		}
	})

	It("should cover every sample exactly once", func() {
		for n := 1; n <= 33; n++ {
			for k := 1; k <= 40; k++ {
				plan := MakePlan(n, k)

				next := 0
				total := 0
				for i := 0; i < plan.SplitFactor(); i++ {
					start, end := plan.Bounds(i)
					Expect(start).To(Equal(next))
					Expect(end).To(BeNumerically(">", start))
					total += end - start
					next = end
				}

				Expect(next).To(Equal(n))
				Expect(total).To(Equal(n))
			}
		}
	})

	It("should never let micro-batch sizes differ by more than one", func() {
		for n := 1; n <= 33; n++ {
			for k := 1; k <= n; k++ {
				plan := MakePlan(n, k)

				minSize := n
				maxSize := 0
				for i := 0; i < k; i++ {
					size := plan.MicroBatchSize(i)
					if size < minSize {
						minSize = size
					}
					if size > maxSize {
						maxSize = size
					}
				}

				Expect(maxSize - minSize).To(BeNumerically("<=", 1))
			}
		}
	})

	It("should panic on a non-positive batch size", func() {
		Expect(func() { MakePlan(0, 1) }).To(Panic())
	})

	It("should panic on a non-positive split factor", func() {
		Expect(func() { MakePlan(4, 0) }).To(Panic())
	})

	It("should panic on an out-of-range micro-batch index", func() {
		plan := MakePlan(4, 2)

		Expect(func() { plan.Bounds(2) }).To(Panic())
		Expect(func() { plan.Bounds(-1) }).To(Panic())
	})
})
