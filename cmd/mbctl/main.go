// mbctl is the command-line interface for running and inspecting adaptive
// micro-batch training runs.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use: "mbctl",
	Short: "mbctl runs and inspects training runs that use the adaptive " +
		"micro-batch controller.",
	Long: `mbctl runs and inspects training runs that use the adaptive ` +
		`micro-batch controller. The demo subcommand exercises the ` +
		`controller against a simulated device memory. The inspect ` +
		`subcommand queries the database a run recorded.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env file is optional.
		_ = godotenv.Load()
	},
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
