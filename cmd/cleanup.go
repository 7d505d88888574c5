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

var (
	cleanupRunID string
	cleanupAll   bool
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove recorded run state",
	Long: `Delete run records from etcd. Runs that did not finish cleanly keep their
resource records so the cloud console can be checked against them; review
a run with 'benchswarm status --id' before removing it.`,
	Run: func(cmd *cobra.Command, args []string) {
		if cleanupRunID == "" && !cleanupAll {
			logging.Logger().Fatal("Either --id or --all is required")
		}

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

		if cleanupRunID != "" {
			if err := store.DeleteRun(ctx, cleanupRunID); err != nil {
				logging.Logger().Fatal("Could not delete run", zap.Error(err))
			}
			fmt.Printf("Deleted run %s\n", cleanupRunID)
			return
		}

		runs, err := store.ListRuns(ctx)
		if err != nil {
			logging.Logger().Fatal("Could not list runs", zap.Error(err))
		}
		for _, run := range runs {
			if err := store.DeleteRun(ctx, run.ID); err != nil {
				logging.Logger().Error("Could not delete run",
					zap.String("run_id", run.ID),
					zap.Error(err))
				continue
			}
			fmt.Printf("Deleted run %s (%s)\n", run.ID, run.Status)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().StringVar(&cleanupRunID, "id", "", "Run ID to delete")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "Delete every recorded run")
}
