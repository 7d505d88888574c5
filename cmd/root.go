package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "benchswarm",
	Short: "Cloud benchmarking harness",
	Long: `Benchswarm provisions ephemeral VM fleets on GCP, AWS, DigitalOcean, or
Yandex Cloud, optionally grouped by a placement policy, runs a benchmark
workload on every machine over SSH, syncs the results back, and tears
everything down.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
