package recording

// Table names used by the training run recorder.
const (
	RunInfoTable     = "run_info"
	SplitRaiseTable  = "split_raises"
	StepAttemptTable = "step_attempts"
)

// A SplitRaiseEntry is one split-factor raise recorded during a run.
type SplitRaiseEntry struct {
	RunID       string
	BatchIndex  int
	PreviousK   int
	NewK        int
	TimeSeconds float64
}

// A StepAttemptEntry is one attempt at a logical batch.
type StepAttemptEntry struct {
	RunID       string
	BatchIndex  int
	BatchSize   int
	SplitFactor int
	Attempt     int
	Outcome     string
	TimeSeconds float64
}

// Outcome values for StepAttemptEntry.
const (
	OutcomeCompleted      = "completed"
	OutcomeAborted        = "aborted"
	OutcomeSplitExhausted = "split_exhausted"
	OutcomeStepError      = "step_error"
)
