package training

import (
	"github.com/rs/xid"

	"github.com/trainware/microbatch/accum"
	"github.com/trainware/microbatch/monitoring"
	"github.com/trainware/microbatch/recording"
)

// Builder can be used to build a training run.
type Builder struct {
	monitorOn          bool
	monitorPort        int
	outputFileName     string
	dataRecorder       recording.DataRecorder
	policy             accum.GrowthPolicy
	initialSplitFactor int
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:          true,
		policy:             accum.Doubling{},
		initialSplitFactor: 1,
	}
}

// WithoutMonitoring sets the run to not start a monitor server.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithDataRecorder sets a custom data recorder, such as a ClickHouse
// recorder, instead of the default SQLite recorder.
func (b Builder) WithDataRecorder(r recording.DataRecorder) Builder {
	b.dataRecorder = r
	return b
}

// WithGrowthPolicy sets the policy the controller raises the split factor
// with.
func (b Builder) WithGrowthPolicy(p accum.GrowthPolicy) Builder {
	b.policy = p
	return b
}

// WithInitialSplitFactor seeds the split factor, typically restored from a
// previous run.
func (b Builder) WithInitialSplitFactor(k int) Builder {
	b.initialSplitFactor = k
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if b.dataRecorder != nil && b.outputFileName != "" {
		panic("output file name cannot be set with a custom data recorder")
	}
}

// Build builds the training run.
func (b Builder) Build() *Run {
	b.parametersMustBeValid()

	r := &Run{}
	r.id = xid.New().String()

	r.dataRecorder = b.dataRecorder
	if r.dataRecorder == nil {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "microbatch_run_" + r.id
		}
		r.dataRecorder = recording.NewDataRecorder(outputPath)
	}

	r.dataRecorder.CreateTable(
		recording.SplitRaiseTable, recording.SplitRaiseEntry{})
	r.dataRecorder.CreateTable(
		recording.StepAttemptTable, recording.StepAttemptEntry{})

	r.runLog = recording.NewRunLog(r.dataRecorder)
	r.runLog.Start(r.id)

	r.controller = accum.MakeBuilder().
		WithGrowthPolicy(b.policy).
		WithInitialSplitFactor(b.initialSplitFactor).
		Build("Controller")
	r.controller.AcceptHook(newRecordingHook(r.id, r.dataRecorder))

	if b.monitorOn {
		r.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			r.monitor.WithPortNumber(b.monitorPort)
		}
		r.monitor.RegisterController(r.controller)
		r.monitor.StartServer()
	}

	return r
}
