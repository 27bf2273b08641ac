package training_test

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/trainware/microbatch/accum"
	"github.com/trainware/microbatch/recording"
	"github.com/trainware/microbatch/training"
)

// limitedDevice fails any micro-batch larger than its capacity.
type limitedDevice struct {
	capacity  int
	steps     int
	rollbacks int
}

func (d *limitedDevice) Step(microBatch accum.Batch, isLast bool) error {
	d.steps++

	if microBatch.Size() > d.capacity {
		return accum.ErrResourceExhausted
	}

	return nil
}

func (d *limitedDevice) Rollback() {
	d.rollbacks++
}

// faultyDevice fails every step with a non-retryable error.
type faultyDevice struct {
	err error
}

func (d *faultyDevice) Step(microBatch accum.Batch, isLast bool) error {
	return d.err
}

func (d *faultyDevice) Rollback() {}

func buildRun() *training.Run {
	return training.MakeBuilder().
		WithoutMonitoring().
		WithOutputFileName(filepath.Join(GinkgoT().TempDir(), "run")).
		Build()
}

func batchesOfSize(count, size int) []accum.Batch {
	batches := make([]accum.Batch, count)
	for i := range batches {
		batches[i] = accum.NewSliceBatch(make([]float32, size))
	}
	return batches
}

func readStepAttempts(outputPath string) []*recording.StepAttemptEntry {
	reader := recording.NewDataReader(outputPath)
	defer reader.Close()

	reader.MapTable(recording.StepAttemptTable, recording.StepAttemptEntry{})

	results, _, err := reader.Query(
		context.Background(),
		recording.StepAttemptTable,
		recording.QueryParams{OrderBy: "Attempt"},
	)
	Expect(err).To(BeNil())

	attempts := make([]*recording.StepAttemptEntry, len(results))
	for i, r := range results {
		attempts[i] = r.(*recording.StepAttemptEntry)
	}

	return attempts
}

var _ = Describe("Loop", func() {
	It("should drive all batches through the controller", func() {
		run := buildRun()
		defer run.Terminate()

		device := &limitedDevice{capacity: 8}
		source := training.NewSliceSource(batchesOfSize(5, 8)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(context.Background())

		Expect(err).To(BeNil())
		Expect(loop.BatchesDone()).To(Equal(5))
		Expect(device.steps).To(Equal(5))
	})

	It("should keep the raised split factor across batches", func() {
		run := buildRun()
		defer run.Terminate()

		device := &limitedDevice{capacity: 2}
		source := training.NewSliceSource(batchesOfSize(3, 8)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(context.Background())

		Expect(err).To(BeNil())
		Expect(run.Controller().State().SplitFactor()).To(Equal(4))
		// First batch: 1 step at k=1, 1 at k=2 (fails), 4 at k=4.
		// Later batches: 4 steps each.
		Expect(device.steps).To(Equal(14))
		Expect(device.rollbacks).To(Equal(2))
	})

	It("should stop on a fatal failure", func() {
		run := buildRun()
		defer run.Terminate()

		device := &limitedDevice{capacity: 0}
		source := training.NewSliceSource(batchesOfSize(3, 4)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(context.Background())

		var fatal *accum.SplitExhaustedError
		Expect(errors.As(err, &fatal)).To(BeTrue())
		Expect(loop.BatchesDone()).To(Equal(0))
	})

	It("should report progress while the loop is running", func() {
		run := buildRun()
		defer run.Terminate()

		device := &limitedDevice{capacity: 8}
		source := training.NewSliceSource(batchesOfSize(50, 8)...)
		loop := training.NewLoop(run, source, device)

		done := make(chan error)
		go func() {
			done <- loop.Run(context.Background())
		}()

		Eventually(loop.BatchesDone).Should(Equal(50))
		Expect(<-done).To(BeNil())
	})

	It("should clear the progress bar when a run dies", func() {
		run := training.MakeBuilder().
			WithOutputFileName(filepath.Join(GinkgoT().TempDir(), "run")).
			Build()
		defer run.Terminate()

		device := &limitedDevice{capacity: 0}
		source := training.NewSliceSource(batchesOfSize(1, 4)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(context.Background())

		Expect(err).To(HaveOccurred())
		Expect(run.Monitor().ProgressBars()).To(BeEmpty())
	})

	It("should stop when the context is canceled", func() {
		run := buildRun()
		defer run.Terminate()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		device := &limitedDevice{capacity: 8}
		source := training.NewSliceSource(batchesOfSize(3, 8)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
		Expect(device.steps).To(Equal(0))
	})

	It("should propagate source errors", func() {
		run := buildRun()
		defer run.Terminate()

		sourceErr := errors.New("shard unreadable")
		source := training.SourceFunc(func() (accum.Batch, error) {
			return nil, sourceErr
		})
		loop := training.NewLoop(run, source, &limitedDevice{capacity: 8})

		err := loop.Run(context.Background())

		Expect(err).To(MatchError(sourceErr))
	})
})

var _ = Describe("Run", func() {
	It("should record split raises that a later run can resume from", func() {
		outputPath := filepath.Join(GinkgoT().TempDir(), "run")

		run := training.MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(outputPath).
			Build()

		device := &limitedDevice{capacity: 2}
		source := training.NewSliceSource(batchesOfSize(1, 8)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(context.Background())
		Expect(err).To(BeNil())

		run.Terminate()

		k, err := training.LastRecordedSplitFactor(outputPath)
		Expect(err).To(BeNil())
		Expect(k).To(Equal(4))

		resumed := training.MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(outputPath + "_resumed").
			WithInitialSplitFactor(k).
			Build()
		defer resumed.Terminate()

		Expect(resumed.Controller().State().SplitFactor()).To(Equal(4))
	})

	It("should record step attempts", func() {
		outputPath := filepath.Join(GinkgoT().TempDir(), "run")

		run := training.MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(outputPath).
			Build()

		device := &limitedDevice{capacity: 2}
		source := training.NewSliceSource(batchesOfSize(1, 4)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(context.Background())
		Expect(err).To(BeNil())

		run.Terminate()

		attempts := readStepAttempts(outputPath)

		Expect(attempts).To(HaveLen(2))
		Expect(attempts[0].Outcome).To(Equal(recording.OutcomeAborted))
		Expect(attempts[0].SplitFactor).To(Equal(1))
		Expect(attempts[1].Outcome).To(Equal(recording.OutcomeCompleted))
		Expect(attempts[1].SplitFactor).To(Equal(2))
	})

	It("should record the final attempt of an exhausted run", func() {
		outputPath := filepath.Join(GinkgoT().TempDir(), "run")

		run := training.MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(outputPath).
			Build()

		device := &limitedDevice{capacity: 0}
		source := training.NewSliceSource(batchesOfSize(1, 4)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(context.Background())
		Expect(err).To(HaveOccurred())

		run.Terminate()

		attempts := readStepAttempts(outputPath)

		Expect(attempts).To(HaveLen(3))
		Expect(attempts[0].Outcome).To(Equal(recording.OutcomeAborted))
		Expect(attempts[1].Outcome).To(Equal(recording.OutcomeAborted))
		Expect(attempts[2].Outcome).To(Equal(recording.OutcomeSplitExhausted))
		Expect(attempts[2].SplitFactor).To(Equal(4))
	})

	It("should record the attempt a step error killed", func() {
		outputPath := filepath.Join(GinkgoT().TempDir(), "run")

		run := training.MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(outputPath).
			Build()

		device := &faultyDevice{err: errors.New("loss is not finite")}
		source := training.NewSliceSource(batchesOfSize(1, 4)...)
		loop := training.NewLoop(run, source, device)

		err := loop.Run(context.Background())

		var nonRetryable *accum.NonRetryableError
		Expect(errors.As(err, &nonRetryable)).To(BeTrue())

		run.Terminate()

		attempts := readStepAttempts(outputPath)

		Expect(attempts).To(HaveLen(1))
		Expect(attempts[0].Outcome).To(Equal(recording.OutcomeStepError))
		Expect(attempts[0].SplitFactor).To(Equal(1))
		Expect(attempts[0].Attempt).To(Equal(1))
	})

	It("should reject a monitor port without monitoring", func() {
		Expect(func() {
			training.MakeBuilder().
				WithoutMonitoring().
				WithMonitorPort(8080).
				Build()
		}).To(Panic())
	})
})
