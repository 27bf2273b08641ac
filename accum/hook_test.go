package accum

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HookableBase", func() {
	It("should invoke hooks in registration order", func() {
		hookable := NewHookableBase()

		var order []int
		first := &orderedHook{id: 1, order: &order}
		second := &orderedHook{id: 2, order: &order}

		hookable.AcceptHook(first)
		hookable.AcceptHook(second)

		hookable.InvokeHook(HookCtx{Pos: HookPosSplitRaise})

		Expect(order).To(Equal([]int{1, 2}))
	})
})

type orderedHook struct {
	id    int
	order *[]int
}

func (h *orderedHook) Func(ctx HookCtx) {
	*h.order = append(*h.order, h.id)
}

var _ = Describe("SplitLogger", func() {
	It("should print split raises", func() {
		buf := &bytes.Buffer{}
		logger := NewSplitLogger(log.New(buf, "", 0))

		logger.Func(HookCtx{
			Pos: HookPosSplitRaise,
			Detail: SplitRaise{
				PreviousSplitFactor: 2,
				NewSplitFactor:      4,
				BatchIndex:          7,
			},
		})

		Expect(buf.String()).To(Equal("batch 7, split factor 2 -> 4\n"))
	})

	It("should ignore other hook positions", func() {
		buf := &bytes.Buffer{}
		logger := NewSplitLogger(log.New(buf, "", 0))

		logger.Func(HookCtx{Pos: HookPosAttemptStart})

		Expect(buf.String()).To(BeEmpty())
	})
})
