package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/scibench/internal/distributed"
	"github.com/imishinist/scibench/internal/params"
	"github.com/imishinist/scibench/internal/system"
	"github.com/imishinist/scibench/internal/telemetry"
	"github.com/imishinist/scibench/internal/tracking"
	"github.com/imishinist/scibench/internal/train"
)

// ErrUnbuiltModel is returned when Train or Predict is called before Build.
var ErrUnbuiltModel = errors.New(
	"model has not been built: call Build to compile the model first")

// Runner orchestrates setup → build → train → predict for one benchmark
// across a distributed worker group. Whether this worker is the
// coordinator is fixed at construction; only the coordinator writes shared
// artifacts.
type Runner struct {
	benchmark   Benchmark
	outputDir   string
	comm        distributed.Comm
	coordinator bool
	nodeName    string

	model    train.Model
	setup    bool
	logBatch bool
}

// New creates a runner for the benchmark, writing host and device metadata
// once per host (local rank 0).
func New(benchmark Benchmark, outputDir string, comm distributed.Comm) (*Runner, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	host := system.NewHostSpec()
	r := &Runner{
		benchmark:   benchmark,
		outputDir:   outputDir,
		comm:        comm,
		coordinator: comm.Rank() == 0,
		nodeName:    host.NodeName,
	}

	if comm.LocalRank() == 0 {
		if err := r.logHostInfo(host); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Runner) logHostInfo(host system.HostSpec) error {
	db, err := tracking.NewClient(filepath.Join(r.outputDir, host.NodeName+"_host.json"))
	if err != nil {
		return err
	}
	if err := db.LogTag("host_info", host); err != nil {
		return fmt.Errorf("failed to log host info: %w", err)
	}

	devices := system.NewDeviceSpecs()
	defer devices.Shutdown()

	info := map[string]interface{}{
		"gpu_count": devices.DeviceCount(),
	}
	for i, spec := range devices.Devices() {
		info[fmt.Sprintf("gpu_%d", i)] = spec
	}

	db, err = tracking.NewClient(filepath.Join(r.outputDir, host.NodeName+"_devices.json"))
	if err != nil {
		return err
	}
	if err := db.LogTag("device_info", info); err != nil {
		return fmt.Errorf("failed to log device info: %w", err)
	}
	return nil
}

// Benchmark returns the benchmark under test.
func (r *Runner) Benchmark() Benchmark { return r.benchmark }

// OutputDir returns the run's artifact directory.
func (r *Runner) OutputDir() string { return r.outputDir }

// Setup derives replica-aware batch sizing from the group size. Must be
// called exactly once, before Build.
func (r *Runner) Setup(p params.RunParams) (params.RunParams, error) {
	out, err := p.Setup(r.comm.Size())
	if err != nil {
		return p, err
	}
	r.setup = true
	return out, nil
}

// Build constructs and compiles the model with the distributed optimizer.
// Documented as single-call, but recompiling is safe.
func (r *Runner) Build(p params.RunParams) error {
	if !r.setup {
		return fmt.Errorf("setup must run before build")
	}
	r.logBatch = p.LogBatch

	model, err := r.benchmark.Model(r.benchmark.DataLoader().InputShape(), p)
	if err != nil {
		return fmt.Errorf("failed to construct model: %w", err)
	}

	opt, err := distributed.NewOptimizerFactory(r.comm).Distribute(r.benchmark.Optimizer())
	if err != nil {
		return err
	}

	loss := r.benchmark.Loss()
	log.Debug(loss.Name())

	err = model.Compile(train.CompileConfig{
		Optimizer: opt,
		Loss:      loss,
		Metrics:   r.benchmark.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to compile model: %w", err)
	}

	if r.coordinator {
		if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}

	r.model = model
	return nil
}

// trainCallbacks builds the hook list shared by Train and Predict:
// broadcast first, then metric averaging, with coordinator-only tracking.
func (r *Runner) trainCallbacks(p params.RunParams, withCSV bool) (*train.CallbackBuilder, error) {
	b := train.NewCallbackBuilder().
		Broadcast(train.NewBroadcastCallback(r.comm, 0)).
		MetricAveraging(train.NewMetricAverageCallback(r.comm))

	if r.coordinator {
		db, err := tracking.NewClient(filepath.Join(r.outputDir, "logs.json"))
		if err != nil {
			return nil, err
		}
		b.Tracking(train.NewTrackingCallback(db, p.GlobalBatchSize, r.logBatch))

		if withCSV {
			b.Logger(train.NewCSVLogger(filepath.Join(r.outputDir, "training.log")))
		}
	}
	return b, nil
}

// Train runs the fit loop and, on the coordinator, persists final weights.
func (r *Runner) Train(ctx context.Context, p params.RunParams) error {
	if r.model == nil {
		return ErrUnbuiltModel
	}

	cbs, err := r.trainCallbacks(p, true)
	if err != nil {
		return err
	}

	log.Info("Begin Training...")
	log.Infof("Training for %d epochs", r.benchmark.Epochs())

	dataset := r.benchmark.DataLoader().Dataset(p.BatchSize)
	err = train.Fit(ctx, r.model, dataset, train.FitConfig{
		Epochs:        r.benchmark.Epochs(),
		StepsPerEpoch: r.benchmark.FitParams().StepsPerEpoch,
		Callbacks:     cbs.Build(),
		Verbose:       r.coordinator && p.Verbosity > 1,
	})
	if err != nil {
		return err
	}

	if r.coordinator {
		weightsFile := filepath.Join(r.outputDir, WeightsFileName)
		if err := r.model.SaveWeights(weightsFile); err != nil {
			return fmt.Errorf("failed to save weights: %w", err)
		}
	}
	return nil
}

// Predict evaluates the model over the validation set. When this run never
// trained, the most recent weights from any sibling run are loaded.
func (r *Runner) Predict(ctx context.Context, p params.RunParams) error {
	if r.model == nil {
		return ErrUnbuiltModel
	}

	weightsFile := filepath.Join(r.outputDir, WeightsFileName)
	if _, err := os.Stat(weightsFile); err != nil {
		log.Info("Searching for pre-trained models")
		weightsFile, err = findLatestWeights(modelRoot(r.outputDir))
		if err != nil {
			return err
		}
	}

	log.Infof("Using weights file: %s", weightsFile)
	if err := r.model.LoadWeights(weightsFile); err != nil {
		return fmt.Errorf("failed to load weights: %w", err)
	}

	cbs, err := r.trainCallbacks(p, false)
	if err != nil {
		return err
	}

	log.Info("Begin Predict...")

	dataset := r.benchmark.ValidationDataLoader().Dataset(p.BatchSize)
	_, err = train.Evaluate(ctx, r.model, dataset, train.EvalConfig{
		Callbacks: cbs.Build(),
		Verbose:   r.coordinator && p.Verbosity > 1,
	})
	return err
}

// Run performs the full lifecycle: setup, build, parameter logging on the
// coordinator, then each requested phase under a telemetry scope.
func (r *Runner) Run(ctx context.Context, p params.RunParams, logInterval time.Duration) error {
	p, err := r.Setup(p)
	if err != nil {
		return err
	}
	if err := r.Build(p); err != nil {
		return err
	}

	if r.coordinator {
		db, err := tracking.NewClient(filepath.Join(r.outputDir, "logs.json"))
		if err != nil {
			return err
		}
		if err := db.LogParam("params", p.Map()); err != nil {
			return fmt.Errorf("failed to log parameters: %w", err)
		}
	}

	log.Infof("Number of Replicas: %d", p.NumReplicas)
	log.Infof("Global Batch Size: %d", p.GlobalBatchSize)
	log.Infof("Replica Batch Size: %d", p.BatchSize)

	if p.WantsTrain() {
		if err := r.runPhase(ctx, p, "train", logInterval, r.Train); err != nil {
			return err
		}
		// Workers must not enter predict before the coordinator has
		// persisted the trained weights.
		if p.WantsPredict() {
			if err := r.comm.AllreduceMean(make([]float64, 1)); err != nil {
				return err
			}
		}
	}
	if p.WantsPredict() {
		if err := r.runPhase(ctx, p, "predict", logInterval, r.Predict); err != nil {
			return err
		}
	}
	return nil
}

// runPhase wraps one phase in a node telemetry scope. The logger is
// stopped (and its samples flushed) even when the phase fails. Telemetry
// is per host: only local rank 0 samples.
func (r *Runner) runPhase(ctx context.Context, p params.RunParams, phase string, logInterval time.Duration, fn func(context.Context, params.RunParams) error) error {
	if r.comm.LocalRank() == 0 {
		nl, err := telemetry.Start(r.outputDir, r.nodeName, phase, logInterval)
		if err != nil {
			return err
		}
		defer nl.Stop()
	}
	return fn(ctx, p)
}
