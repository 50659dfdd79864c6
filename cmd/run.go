package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/scibench/internal/benchmarks"
	_ "github.com/imishinist/scibench/internal/benchmarks/synthetic"
	"github.com/imishinist/scibench/internal/config"
	"github.com/imishinist/scibench/internal/distributed"
	"github.com/imishinist/scibench/internal/parser"
	"github.com/imishinist/scibench/internal/runner"
	"github.com/imishinist/scibench/internal/tracking"
)

var runCmd = &cobra.Command{
	Use:   "run <benchmark>",
	Short: "Run a benchmark",
	Long: `Run a registered benchmark: train and/or predict according to --exec-mode,
writing run artifacts under <model-dir>/<benchmark>/<timestamp>/.`,
	Args: cobra.ExactArgs(1),
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("exec-mode", "", "Phases to run: train, predict, or train,predict")
	runCmd.Flags().Int("batch-size", 0, "Per-replica batch size")
	runCmd.Flags().Float64("learning-rate", 0, "Base learning rate before replica scaling")
	runCmd.Flags().Int("epochs", 0, "Training epochs (dataset-driven benchmarks)")
	runCmd.Flags().Bool("log-batch", false, "Track per-batch metrics in addition to per-epoch")
	runCmd.Flags().Int("lr-warmup", 0, "Warmup epochs for the learning-rate ramp")
	runCmd.Flags().Duration("log-interval", 0, "Telemetry sampling interval")
	runCmd.Flags().Int("replicas", 0, "Number of local workers to simulate")
	runCmd.Flags().String("from-file", "", "Load parameter overrides from file (JSON/YAML)")
	runCmd.Flags().String("tracking-uri", "", "MLflow tracking URI for run mirroring (optional)")
	runCmd.Flags().String("experiment-id", "", "MLflow experiment ID for run mirroring")

	viper.BindPFlag("exec_mode", runCmd.Flags().Lookup("exec-mode"))
	viper.BindPFlag("batch_size", runCmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("learning_rate", runCmd.Flags().Lookup("learning-rate"))
	viper.BindPFlag("epochs", runCmd.Flags().Lookup("epochs"))
	viper.BindPFlag("log_batch", runCmd.Flags().Lookup("log-batch"))
	viper.BindPFlag("lr_warmup", runCmd.Flags().Lookup("lr-warmup"))
	viper.BindPFlag("log_interval", runCmd.Flags().Lookup("log-interval"))
	viper.BindPFlag("replicas", runCmd.Flags().Lookup("replicas"))
	viper.BindPFlag("tracking_uri", runCmd.Flags().Lookup("tracking-uri"))
	viper.BindPFlag("experiment_id", runCmd.Flags().Lookup("experiment-id"))
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	p := cfg.RunParams()

	if fromFile, _ := cmd.Flags().GetString("from-file"); fromFile != "" {
		overrides, err := loadParamsFile(fromFile)
		if err != nil {
			return err
		}
		p = overrides.Apply(p)
	}

	var mirror *tracking.Mirror
	if cfg.MirrorEnabled() {
		var err error
		mirror, err = tracking.NewMirror(tracking.MirrorConfig{
			TrackingURI:     cfg.TrackingURI,
			ExperimentID:    cfg.ExperimentID,
			DatabricksHost:  cfg.DatabricksHost,
			DatabricksToken: cfg.DatabricksToken,
		})
		if err != nil {
			return fmt.Errorf("failed to create MLflow mirror: %w", err)
		}
	}

	ctx := context.Background()

	// All workers must resolve the same timestamped run directory.
	started := time.Now()
	opts := runner.Options{
		LogInterval: cfg.LogInterval,
		Now:         func() time.Time { return started },
	}
	if mirror != nil {
		opts.Mirror = mirror
	}

	if cfg.Replicas == 1 {
		instance, err := benchmarks.New(name)
		if err != nil {
			return err
		}
		opts.Comm = distributed.SingleProcess{}
		return runner.RunBenchmark(ctx, instance, p, opts)
	}

	log.Infof("Simulating %d local workers", cfg.Replicas)
	group := distributed.NewLocalGroup(cfg.Replicas)

	var wg sync.WaitGroup
	errs := make([]error, cfg.Replicas)
	for rank := 0; rank < cfg.Replicas; rank++ {
		instance, err := benchmarks.New(name)
		if err != nil {
			return err
		}

		workerOpts := opts
		workerOpts.Comm = group.Comm(rank)

		wg.Add(1)
		go func(rank int, instance interface{}, o runner.Options) {
			defer wg.Done()
			errs[rank] = runner.RunBenchmark(ctx, instance, p, o)
		}(rank, instance, workerOpts)
	}
	wg.Wait()

	for rank, err := range errs {
		if err != nil {
			return fmt.Errorf("worker %d: %w", rank, err)
		}
	}
	return nil
}

func loadParamsFile(path string) (*parser.ParamsFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return parser.ParseJSONParams(file)
	case ".yaml", ".yml":
		return parser.ParseYAMLParams(file)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}
