package accum

// Phase is the stage the controller is in while serving one logical batch.
type Phase int

// The phases a controller moves through.
const (
	PhaseIdle Phase = iota
	PhaseAttempting
	PhaseSucceeded
	PhaseFatalFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseAttempting:
		return "Attempting"
	case PhaseSucceeded:
		return "Succeeded"
	case PhaseFatalFailed:
		return "FatalFailed"
	default:
		return "Unknown"
	}
}

// State holds the split factor and the diagnostic counters of a controller.
// It lives for a whole training run and is shared across logical batches, so
// a split factor raised on batch 10 is where batch 11 starts. The controller
// is the only writer. Callers read it for diagnostics.
type State struct {
	splitFactor int
	phase       Phase

	raiseCount  int
	batchIndex  int
	lastFailure error
}

// NewState creates a State with the split factor starting at 1.
func NewState() *State {
	return &State{splitFactor: 1, phase: PhaseIdle}
}

// SplitFactor returns the current split factor.
func (s *State) SplitFactor() int {
	return s.splitFactor
}

// Phase returns the stage the controller is currently in.
func (s *State) Phase() Phase {
	return s.phase
}

// RaiseCount returns the number of times the split factor has been raised.
func (s *State) RaiseCount() int {
	return s.raiseCount
}

// BatchIndex returns the index of the logical batch the controller served
// most recently.
func (s *State) BatchIndex() int {
	return s.batchIndex
}

// LastFailure returns the most recent step failure, or nil if every step so
// far has succeeded.
func (s *State) LastFailure() error {
	return s.lastFailure
}

// Seed sets the split factor before a run starts, typically to the value a
// previous run ended with. Seeding never lowers the factor, so a stale
// recording cannot undo what the current run has already learned.
func (s *State) Seed(splitFactor int) {
	if splitFactor > s.splitFactor {
		s.splitFactor = splitFactor
	}
}

// Reset returns the split factor to 1 and clears the counters. The
// controller never calls Reset itself. It exists for callers that reuse a
// State across unrelated runs.
func (s *State) Reset() {
	s.splitFactor = 1
	s.phase = PhaseIdle
	s.raiseCount = 0
	s.batchIndex = 0
	s.lastFailure = nil
}
