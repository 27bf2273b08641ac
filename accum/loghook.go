package accum

import "log"

// SplitLogger is a hook that prints split-factor raises to a logger.
type SplitLogger struct {
	*log.Logger
}

// NewSplitLogger returns a SplitLogger that writes into the given logger.
func NewSplitLogger(logger *log.Logger) *SplitLogger {
	h := new(SplitLogger)
	h.Logger = logger
	return h
}

// Func writes the split raise into the logger.
func (h *SplitLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosSplitRaise {
		return
	}

	raise, ok := ctx.Detail.(SplitRaise)
	if !ok {
		return
	}

	h.Logger.Printf("batch %d, split factor %d -> %d",
		raise.BatchIndex,
		raise.PreviousSplitFactor,
		raise.NewSplitFactor)
}
