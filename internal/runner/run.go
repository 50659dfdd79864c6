package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/scibench/internal/distributed"
	"github.com/imishinist/scibench/internal/params"
	"github.com/imishinist/scibench/internal/tracking"
)

// RunFolderFormat names run directories so that lexicographic order is
// chronological order.
const RunFolderFormat = "2006-01-02-1504"

// RunMirror is the remote-tracking surface RunBenchmark drives on the
// coordinator: run lifecycle plus parameter and metric publication.
// *tracking.Mirror satisfies it.
type RunMirror interface {
	StartRun(ctx context.Context, benchmarkName string, tags map[string]string) error
	LogParams(ctx context.Context, params map[string]string) error
	LogMetric(ctx context.Context, key string, value float64, step int) error
	EndRun(ctx context.Context, failed bool) error
}

// Options configures RunBenchmark.
type Options struct {
	// Comm is this worker's group handle; nil means a single worker.
	Comm distributed.Comm

	// LogInterval is the telemetry sampling interval.
	LogInterval time.Duration

	// Mirror, when set, publishes the run to an MLflow server. Used only
	// on the coordinator; mirror failures never abort the run.
	Mirror RunMirror

	// Now supplies the run timestamp. Workers in one run must share it so
	// they resolve the same run directory.
	Now func() time.Time
}

// RunBenchmark is the composition entry point: it validates the
// benchmark's capability set, resolves the run's artifact directory, and
// drives the runner's full lifecycle.
func RunBenchmark(ctx context.Context, v interface{}, p params.RunParams, opts Options) error {
	benchmark, err := ValidateBenchmark(v)
	if err != nil {
		return err
	}

	comm := opts.Comm
	if comm == nil {
		comm = distributed.SingleProcess{}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	folder := now().Format(RunFolderFormat)
	p.DataDir = filepath.Join(p.DataDir, benchmark.Name())
	p.ModelDir = filepath.Join(p.ModelDir, benchmark.Name(), folder)
	p.Metrics = benchmark.Metrics()
	p.BatchSize = benchmark.BatchSize()

	if err := os.MkdirAll(p.ModelDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	log.Debugf("Benchmark %s", benchmark.Name())
	log.Debugf("Loss %s", benchmark.Loss().Name())
	log.Debugf("Batch size %d", benchmark.BatchSize())
	log.Debugf("Optimizer %s", benchmark.Optimizer().Name())
	log.Debugf("Epochs %d", benchmark.Epochs())

	r, err := New(benchmark, p.ModelDir, comm)
	if err != nil {
		return err
	}

	mirror := opts.Mirror
	if mirror != nil && comm.Rank() != 0 {
		mirror = nil
	}
	if mirror != nil {
		if err := mirror.StartRun(ctx, benchmark.Name(), nil); err != nil {
			log.Warnf("mlflow mirror disabled: %v", err)
			mirror = nil
		}
	}

	runErr := r.Run(ctx, p, opts.LogInterval)

	if mirror != nil {
		if err := mirror.LogParams(ctx, p.Map()); err != nil {
			log.Warnf("mlflow mirror: %v", err)
		}
		if err := mirrorMetrics(ctx, mirror, filepath.Join(p.ModelDir, "logs.json")); err != nil {
			log.Warnf("mlflow mirror: %v", err)
		}
		if err := mirror.EndRun(ctx, runErr != nil); err != nil {
			log.Warnf("mlflow mirror: %v", err)
		}
	}
	return runErr
}

// mirrorMetrics replays the run's locally tracked metrics to the mirror.
// The local store stays authoritative; the mirror gets the same
// observations at the same steps.
func mirrorMetrics(ctx context.Context, mirror RunMirror, path string) error {
	db, err := tracking.NewClient(path)
	if err != nil {
		return err
	}
	for _, r := range db.MetricRecords() {
		v, ok := r.Value.(float64)
		if !ok {
			continue
		}
		if err := mirror.LogMetric(ctx, r.Key, v, r.Step); err != nil {
			return err
		}
	}
	return nil
}
