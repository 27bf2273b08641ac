// Package training drives logical batches from a batch source through the
// adaptive micro-batch controller and owns the run-level services around it:
// the data recorder, the run log, and the monitor.
package training

import (
	"github.com/trainware/microbatch/accum"
	"github.com/trainware/microbatch/monitoring"
	"github.com/trainware/microbatch/recording"
)

// A Run provides the services required to execute one training run.
type Run struct {
	id string

	controller   *accum.Controller
	dataRecorder recording.DataRecorder
	runLog       *recording.RunLog
	monitor      *monitoring.Monitor
}

// ID returns the unique ID of the run.
func (r *Run) ID() string {
	return r.id
}

// Controller returns the micro-batch controller of the run.
func (r *Run) Controller() *accum.Controller {
	return r.controller
}

// DataRecorder returns the data recorder used in the run.
func (r *Run) DataRecorder() recording.DataRecorder {
	return r.dataRecorder
}

// Monitor returns the monitor used in the run, or nil when monitoring is
// disabled.
func (r *Run) Monitor() *monitoring.Monitor {
	return r.monitor
}

// Terminate finishes the run log and closes the recorder.
func (r *Run) Terminate() {
	r.runLog.End()
	r.dataRecorder.Close()
}
