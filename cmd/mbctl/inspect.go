package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/trainware/microbatch/recording"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [database]",
	Short: "List run information and split raises from a recorded run.",
	Long: `inspect opens the database a run recorded, without the .sqlite3 ` +
		`suffix, and prints the run information and the split-factor raises.`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

type infoRow struct {
	Property string
	Value    string
}

func runInspect(_ *cobra.Command, args []string) {
	reader := recording.NewDataReader(args[0])
	defer reader.Close()

	ctx := context.Background()

	printRunInfo(ctx, reader)
	printSplitRaises(ctx, reader)
}

func printRunInfo(ctx context.Context, reader recording.DataReader) {
	reader.MapTable(recording.RunInfoTable, infoRow{})

	results, _, err := reader.Query(
		ctx, recording.RunInfoTable, recording.QueryParams{})
	if err != nil {
		log.Fatalf("Cannot read run info: %s", err)
	}

	for _, r := range results {
		row := r.(*infoRow)
		fmt.Printf("%-20s %s\n", row.Property, row.Value)
	}
}

func printSplitRaises(ctx context.Context, reader recording.DataReader) {
	reader.MapTable(recording.SplitRaiseTable, recording.SplitRaiseEntry{})

	results, total, err := reader.Query(
		ctx,
		recording.SplitRaiseTable,
		recording.QueryParams{OrderBy: "TimeSeconds"},
	)
	if err != nil {
		log.Fatalf("Cannot read split raises: %s", err)
	}

	fmt.Printf("\n%d split raises\n", total)
	for _, r := range results {
		raise := r.(*recording.SplitRaiseEntry)
		fmt.Printf("batch %4d: %d -> %d\n",
			raise.BatchIndex, raise.PreviousK, raise.NewK)
	}
}
