package cmd

import (
	"context"

	"benchswarm/internal/benchmark"
	"benchswarm/internal/config"
	"benchswarm/internal/control"
	"benchswarm/internal/logging"
	"benchswarm/internal/placement"
	"benchswarm/internal/providers"
	"benchswarm/internal/registry"
	"benchswarm/internal/runner"
	"benchswarm/internal/spec"
	"benchswarm/internal/sshkeys"
	"benchswarm/internal/state"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runBenchmarkFile string
	runStyle         string
	runZone          string
	runImage         string
	runUsername      string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [benchmark file]",
	Short: "Run a benchmark",
	Long: `Provision the VM fleet described by a benchmark YAML file, execute the
workload on every machine, sync results back, and delete everything.

Flags override the corresponding benchmark file options.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if runBenchmarkFile == "" {
			if len(args) > 0 {
				runBenchmarkFile = args[0]
			} else {
				logging.Logger().Fatal("Benchmark file is required")
			}
		}

		runBenchmark(cmd, runBenchmarkFile)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runBenchmarkFile, "benchmark", "f", "", "Path to benchmark YAML file")
	runCmd.Flags().StringVar(&runStyle, "placement-style", "", "Override the placement group style")
	runCmd.Flags().StringVar(&runZone, "zone", "", "Override the zone for every resource")
	runCmd.Flags().StringVar(&runImage, "image", "", "Override the VM image")
	runCmd.Flags().StringVar(&runUsername, "username", "", "Override the VM username")
}

// overridesFromFlags maps explicitly set flags onto spec overrides. A flag
// the user did not touch stays nil so the benchmark file value wins.
func overridesFromFlags(cmd *cobra.Command) spec.Overrides {
	var ov spec.Overrides
	if cmd.Flags().Changed("placement-style") {
		ov.PlacementStyle = &runStyle
	}
	if cmd.Flags().Changed("zone") {
		ov.Zone = &runZone
	}
	if cmd.Flags().Changed("image") {
		ov.Image = &runImage
	}
	if cmd.Flags().Changed("username") {
		ov.Username = &runUsername
	}
	return ov
}

func runBenchmark(cmd *cobra.Command, benchmarkFile string) {
	logging.Logger().Info("Loading configuration")
	cfg, err := config.Load()
	if err != nil {
		logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
	}

	b, err := benchmark.Load(benchmarkFile)
	if err != nil {
		logging.Logger().Fatal("Failed to load benchmark", zap.Error(err))
	}

	ctx := context.Background()

	if err := providers.Register(ctx, registry.Default, &cfg.Provider); err != nil {
		logging.Logger().Fatal("Failed to register provider", zap.Error(err))
	}

	keys, err := sshkeys.NewEtcdKeyProvider(cfg.Etcd.Endpoints)
	if err != nil {
		logging.Logger().Fatal("Failed to create key provider", zap.Error(err))
	}
	defer closeQuietly("key provider", keys.Close)

	store, err := state.NewStore(cfg.Etcd.Endpoints)
	if err != nil {
		logging.Logger().Fatal("Failed to connect to state store", zap.Error(err))
	}
	defer closeQuietly("state store", store.Close)

	ov := overridesFromFlags(cmd)
	if ov.PlacementStyle != nil {
		logging.Logger().Info("placement style overridden from flag",
			zap.String("style", *ov.PlacementStyle),
			zap.Strings("accepted", placement.Styles))
	}

	r := runner.New(cfg, registry.Default, keys, store, control.NewController)
	if err := r.Run(ctx, b, ov); err != nil {
		logging.Logger().Fatal("benchmark run failed", zap.Error(err))
	}

	logging.Logger().Info("benchmark run completed",
		zap.String("benchmark", b.Name),
		zap.String("results_dir", cfg.ResultsDir))
}

func closeQuietly(name string, closer func() error) {
	if err := closer(); err != nil {
		logging.Logger().Warn("failed to close "+name, zap.Error(err))
	}
}
