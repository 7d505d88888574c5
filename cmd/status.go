package cmd

import (
	"context"
	"fmt"
	"time"

	"benchswarm/internal/config"
	"benchswarm/internal/logging"
	"benchswarm/internal/state"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusRunID string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded benchmark runs",
	Long:  `List benchmark runs recorded in etcd, or show one run in detail with --id.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
		}

		store, err := state.NewStore(cfg.Etcd.Endpoints)
		if err != nil {
			logging.Logger().Fatal("Failed to connect to state store", zap.Error(err))
		}
		defer closeQuietly("state store", store.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if statusRunID != "" {
			showRun(ctx, store, statusRunID)
			return
		}
		listRuns(ctx, store)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusRunID, "id", "", "Run ID")
}

func listRuns(ctx context.Context, store state.Store) {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		logging.Logger().Fatal("Could not list runs", zap.Error(err))
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return
	}

	for _, run := range runs {
		fmt.Printf("%s  %-12s  %-16s  %s  (%d VMs, %d resources)\n",
			run.ID, run.Status, run.Benchmark, run.Cloud, len(run.VMs), len(run.Resources))
	}
}

func showRun(ctx context.Context, store state.Store, runID string) {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		logging.Logger().Fatal("Could not get run", zap.Error(err))
	}

	fmt.Printf("Run ID: %s\n", run.ID)
	fmt.Printf("Benchmark: %s\n", run.Benchmark)
	fmt.Printf("Cloud: %s\n", run.Cloud)
	fmt.Printf("Status: %s\n", run.Status)
	fmt.Printf("Created: %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated: %s\n", run.UpdatedAt.Format(time.RFC3339))

	if len(run.Resources) > 0 {
		fmt.Println("\nResources:")
		for _, res := range run.Resources {
			fmt.Printf("- [%s] %s %s (zone %s)\n", res.Role, res.Name, res.ID, res.Zone)
		}
	}

	if len(run.VMs) > 0 {
		fmt.Println("\nVMs:")
		for _, v := range run.VMs {
			fmt.Printf("- %s (%s, %s): %s, stages %v\n",
				v.Name, v.InstanceID, v.InstanceIP, v.Status, v.CompletedStages)
			if v.Error != "" {
				fmt.Printf("  error: %s\n", v.Error)
			}
		}
	}
}
