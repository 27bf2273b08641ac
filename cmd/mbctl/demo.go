package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/trainware/microbatch/accum"
	"github.com/trainware/microbatch/training"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a synthetic training run against a simulated device memory.",
	Long: `demo fabricates a batch source and a device with a fixed memory ` +
		`capacity. Micro-batches that do not fit the capacity fail with a ` +
		`resource-exhaustion signal, so the controller raises the split ` +
		`factor until the run completes.`,
	Run: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Int("batches", 20, "number of logical batches to run")
	demoCmd.Flags().Int("batch-size", 64, "samples per logical batch")
	demoCmd.Flags().Int("sample-bytes", 4096,
		"device memory footprint of one sample")
	demoCmd.Flags().Int("capacity", 65536,
		"device memory capacity in bytes")
	demoCmd.Flags().Int("monitor-port", envInt("MBCTL_MONITOR_PORT", 0),
		"port for the monitoring server, 0 picks a random port")
	demoCmd.Flags().Bool("no-monitor", false,
		"disable the monitoring server")
	demoCmd.Flags().Bool("open-dashboard", false,
		"open the monitoring page in a browser")
	demoCmd.Flags().String("output", os.Getenv("MBCTL_OUTPUT"),
		"output database name, without the .sqlite3 suffix")
	demoCmd.Flags().String("resume-from", "",
		"database of a previous run to restore the split factor from")
	demoCmd.Flags().String("policy", "double",
		"split growth policy, double or linear")
	demoCmd.Flags().Int("linear-step", 1,
		"step of the linear growth policy")
}

// demoDevice emulates a device memory of fixed capacity. A micro-batch fits
// when its samples fit the capacity.
type demoDevice struct {
	capacityBytes int
	sampleBytes   int

	accumulated int
	applied     int
}

func (d *demoDevice) Step(microBatch accum.Batch, isLast bool) error {
	footprint := microBatch.Size() * d.sampleBytes
	if footprint > d.capacityBytes {
		return fmt.Errorf("allocating %d bytes on a %d-byte device: %w",
			footprint, d.capacityBytes, accum.ErrResourceExhausted)
	}

	d.accumulated += microBatch.Size()

	if isLast {
		d.applied++
		d.accumulated = 0
	}

	return nil
}

func (d *demoDevice) Rollback() {
	d.accumulated = 0
}

func runDemo(cmd *cobra.Command, _ []string) {
	batches, _ := cmd.Flags().GetInt("batches")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	sampleBytes, _ := cmd.Flags().GetInt("sample-bytes")
	capacity, _ := cmd.Flags().GetInt("capacity")

	run := buildDemoRun(cmd)
	defer run.Terminate()

	openDashboard, _ := cmd.Flags().GetBool("open-dashboard")
	if openDashboard && run.Monitor() != nil {
		err := run.Monitor().OpenDashboard()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open dashboard: %s\n", err)
		}
	}

	device := &demoDevice{
		capacityBytes: capacity,
		sampleBytes:   sampleBytes,
	}

	source := demoSource(batches, batchSize)
	loop := training.NewLoop(run, source, device)

	err := loop.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run %s failed: %s\n", run.ID(), err)
		atexit.Exit(1)
	}

	fmt.Printf(
		"Run %s applied %d optimizer steps, final split factor %d\n",
		run.ID(), device.applied,
		run.Controller().State().SplitFactor())

	atexit.Exit(0)
}

func buildDemoRun(cmd *cobra.Command) *training.Run {
	b := training.MakeBuilder()

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		b = b.WithOutputFileName(output)
	}

	noMonitor, _ := cmd.Flags().GetBool("no-monitor")
	if noMonitor {
		b = b.WithoutMonitoring()
	} else {
		monitorPort, _ := cmd.Flags().GetInt("monitor-port")
		if monitorPort > 0 {
			b = b.WithMonitorPort(monitorPort)
		}
	}

	policy, _ := cmd.Flags().GetString("policy")
	switch policy {
	case "double":
		b = b.WithGrowthPolicy(accum.Doubling{})
	case "linear":
		step, _ := cmd.Flags().GetInt("linear-step")
		b = b.WithGrowthPolicy(accum.Linear{Step: step})
	default:
		fmt.Fprintf(os.Stderr, "Unknown growth policy: %s\n", policy)
		atexit.Exit(1)
	}

	resumeFrom, _ := cmd.Flags().GetString("resume-from")
	if resumeFrom != "" {
		k, err := training.LastRecordedSplitFactor(resumeFrom)
		if err != nil {
			fmt.Fprintf(os.Stderr,
				"Cannot restore the split factor from %s: %s\n",
				resumeFrom, err)
			atexit.Exit(1)
		}

		fmt.Fprintf(os.Stderr,
			"Resuming with split factor %d from %s\n", k, resumeFrom)
		b = b.WithInitialSplitFactor(k)
	}

	return b.Build()
}

func demoSource(batches, batchSize int) *training.SliceSource {
	list := make([]accum.Batch, batches)
	for i := range list {
		samples := make([]float32, batchSize)
		list[i] = accum.NewSliceBatch(samples)
	}

	return training.NewSliceSource(list...)
}

func envInt(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return n
}
