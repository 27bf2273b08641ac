package accum

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("State", func() {
	It("should start idle at split factor 1", func() {
		s := NewState()

		Expect(s.SplitFactor()).To(Equal(1))
		Expect(s.Phase()).To(Equal(PhaseIdle))
		Expect(s.RaiseCount()).To(Equal(0))
		Expect(s.LastFailure()).To(BeNil())
	})

	It("should never lower the split factor when seeded", func() {
		s := NewState()

		s.Seed(4)
		Expect(s.SplitFactor()).To(Equal(4))

		s.Seed(2)
		Expect(s.SplitFactor()).To(Equal(4))
	})

	It("should return to the initial state on reset", func() {
		s := NewState()
		s.Seed(8)

		s.Reset()

		Expect(s.SplitFactor()).To(Equal(1))
		Expect(s.Phase()).To(Equal(PhaseIdle))
	})
})

var _ = Describe("GrowthPolicy", func() {
	It("should double", func() {
		Expect(Doubling{}.NextSplitFactor(1)).To(Equal(2))
		Expect(Doubling{}.NextSplitFactor(4)).To(Equal(8))
	})

	It("should grow linearly", func() {
		Expect(Linear{Step: 2}.NextSplitFactor(3)).To(Equal(5))
	})

	It("should treat a non-positive linear step as one", func() {
		Expect(Linear{}.NextSplitFactor(3)).To(Equal(4))
	})
})
