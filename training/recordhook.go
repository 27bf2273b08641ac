package training

import (
	"time"

	"github.com/trainware/microbatch/accum"
	"github.com/trainware/microbatch/recording"
)

// recordingHook persists controller events into the run's data recorder.
type recordingHook struct {
	runID    string
	recorder recording.DataRecorder
}

func newRecordingHook(
	runID string,
	recorder recording.DataRecorder,
) *recordingHook {
	return &recordingHook{
		runID:    runID,
		recorder: recorder,
	}
}

// Func records split raises and attempt outcomes.
func (h *recordingHook) Func(ctx accum.HookCtx) {
	now := float64(time.Now().UnixNano()) / 1e9

	switch ctx.Pos {
	case accum.HookPosSplitRaise:
		raise := ctx.Detail.(accum.SplitRaise)
		h.recorder.InsertData(recording.SplitRaiseTable,
			recording.SplitRaiseEntry{
				RunID:       h.runID,
				BatchIndex:  raise.BatchIndex,
				PreviousK:   raise.PreviousSplitFactor,
				NewK:        raise.NewSplitFactor,
				TimeSeconds: now,
			})
	case accum.HookPosAttemptAbort:
		h.recordAttempt(ctx, recording.OutcomeAborted, now)
	case accum.HookPosBatchComplete:
		h.recordAttempt(ctx, recording.OutcomeCompleted, now)
	case accum.HookPosSplitExhausted:
		h.recordAttempt(ctx, recording.OutcomeSplitExhausted, now)
	case accum.HookPosStepError:
		h.recordAttempt(ctx, recording.OutcomeStepError, now)
	}
}

func (h *recordingHook) recordAttempt(
	ctx accum.HookCtx,
	outcome string,
	now float64,
) {
	info := ctx.Detail.(accum.AttemptInfo)

	h.recorder.InsertData(recording.StepAttemptTable,
		recording.StepAttemptEntry{
			RunID:       h.runID,
			BatchIndex:  info.BatchIndex,
			BatchSize:   info.BatchSize,
			SplitFactor: info.SplitFactor,
			Attempt:     info.Attempt,
			Outcome:     outcome,
			TimeSeconds: now,
		})
}
