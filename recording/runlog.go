package recording

import (
	"os"
	"strings"
	"time"
)

// A runInfo entry describes one property of the recorded run.
type runInfo struct {
	Property string
	Value    string
}

// A RunLog records how and when the training run was executed.
type RunLog struct {
	recorder DataRecorder
	entries  []runInfo
}

// NewRunLog creates a RunLog writing into the given recorder.
func NewRunLog(recorder DataRecorder) *RunLog {
	l := &RunLog{recorder: recorder}

	l.recorder.CreateTable(RunInfoTable, runInfo{})

	return l
}

// Start captures the start time and the command line of the run.
func (l *RunLog) Start(runID string) {
	startTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	l.entries = append(l.entries, runInfo{"Run ID", runID})
	l.entries = append(l.entries, runInfo{"Start Time", startTime})

	cmd := strings.Join(os.Args, " ")
	l.entries = append(l.entries, runInfo{"Command", cmd})

	cwd, err := os.Getwd()
	if err == nil {
		l.entries = append(l.entries, runInfo{"Working Directory", cwd})
	}
}

// End writes the collected properties along with the end time.
func (l *RunLog) End() {
	for _, entry := range l.entries {
		l.recorder.InsertData(RunInfoTable, entry)
	}
	l.entries = nil

	endTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	l.recorder.InsertData(RunInfoTable, runInfo{"End Time", endTime})

	l.recorder.Flush()
}
