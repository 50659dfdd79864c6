package runner

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/scibench/internal/distributed"
	"github.com/imishinist/scibench/internal/params"
	"github.com/imishinist/scibench/internal/tracking"
	"github.com/imishinist/scibench/internal/train"
)

// ModelFunc constructs a model for the given sample dimensions.
type ModelFunc func(dims []int, p params.RunParams) (train.Model, error)

// MultiNodeDataset is the data source for the dataset-driven orchestration
// path: it reports its sizes and produces train/test dataset handles.
type MultiNodeDataset interface {
	Dimensions() []int
	TrainSize() int
	TestSize() int
	TrainFn(batchSize int) train.Dataset
	TestFn(batchSize int) train.Dataset
}

// StepsPerEpoch is the number of optimizer steps needed to cover size
// samples at the given global batch size.
func StepsPerEpoch(size, globalBatchSize int) int {
	return int(math.Ceil(float64(size) / float64(globalBatchSize)))
}

// MultiNodeBenchmark is the dataset-driven orchestration path used by
// simpler benchmark definitions: parameterized directly by a
// model-constructing function and a dataset, with an explicit
// learning-rate warmup. Build/train/predict preconditions and coordinator
// gating match the main runner.
type MultiNodeBenchmark struct {
	modelFn ModelFunc
	dataset MultiNodeDataset

	comm        distributed.Comm
	coordinator bool

	model     train.Model
	optimizer train.Optimizer
	loss      train.Loss
	metrics   []string
	logBatch  bool
}

// NewMultiNodeBenchmark creates the alternate path around a model function
// and a dataset. Loss defaults to binary crossentropy and metrics to
// accuracy, matching the simple classifiers this path serves.
func NewMultiNodeBenchmark(modelFn ModelFunc, dataset MultiNodeDataset, comm distributed.Comm) *MultiNodeBenchmark {
	return &MultiNodeBenchmark{
		modelFn:     modelFn,
		dataset:     dataset,
		comm:        comm,
		coordinator: comm.Rank() == 0,
		loss:        train.BinaryCrossentropy{},
		metrics:     []string{"accuracy"},
	}
}

// SetLoss overrides the default loss. Must be called before Build.
func (b *MultiNodeBenchmark) SetLoss(loss train.Loss) { b.loss = loss }

// SetMetrics overrides the default metric set. Must be called before Build.
func (b *MultiNodeBenchmark) SetMetrics(metrics []string) { b.metrics = metrics }

// Build constructs the model and compiles it with the distributed
// optimizer derived from the configured learning rate.
func (b *MultiNodeBenchmark) Build(p params.RunParams) error {
	b.logBatch = p.LogBatch

	model, err := b.modelFn(b.dataset.Dimensions(), p)
	if err != nil {
		return fmt.Errorf("failed to construct model: %w", err)
	}

	opt, err := distributed.NewOptimizerFactory(b.comm).Distribute(train.NewAdam(p.LearningRate))
	if err != nil {
		return err
	}

	err = model.Compile(train.CompileConfig{
		Optimizer: opt,
		Loss:      b.loss,
		Metrics:   b.metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to compile model: %w", err)
	}

	if b.coordinator {
		if err := os.MkdirAll(p.ModelDir, 0o755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}

	b.model = model
	b.optimizer = opt
	return nil
}

func (b *MultiNodeBenchmark) callbacks(p params.RunParams, steps int, withCSV bool) (*train.CallbackBuilder, error) {
	cbs := train.NewCallbackBuilder().
		Broadcast(train.NewBroadcastCallback(b.comm, 0)).
		MetricAveraging(train.NewMetricAverageCallback(b.comm)).
		Schedule(train.NewLearningRateWarmupCallback(b.optimizer, steps, p.LRWarmup))

	if b.coordinator {
		db, err := tracking.NewClient(filepath.Join(p.ModelDir, "logs.json"))
		if err != nil {
			return nil, err
		}
		cbs.Tracking(train.NewTrackingCallback(db, p.GlobalBatchSize, b.logBatch))

		if withCSV {
			cbs.Logger(train.NewCSVLogger(filepath.Join(p.ModelDir, "training.log")))
		}
	}
	return cbs, nil
}

// Train fits the model for the configured epoch count, bounding each epoch
// to ceil(train_size / global_batch_size) steps.
func (b *MultiNodeBenchmark) Train(ctx context.Context, p params.RunParams) error {
	if b.model == nil {
		return ErrUnbuiltModel
	}

	spe := StepsPerEpoch(b.dataset.TrainSize(), p.GlobalBatchSize)
	cbs, err := b.callbacks(p, spe, true)
	if err != nil {
		return err
	}

	log.Info("Begin Training...")
	log.Infof("Training for %d epochs", p.Epochs)
	log.Infof("Epoch contains %d steps", spe)

	dataset := b.dataset.TrainFn(p.BatchSize)
	err = train.Fit(ctx, b.model, dataset, train.FitConfig{
		Epochs:        p.Epochs,
		StepsPerEpoch: spe,
		Callbacks:     cbs.Build(),
		Verbose:       b.coordinator && p.Verbosity > 1,
	})
	if err != nil {
		return err
	}

	if b.coordinator {
		if err := os.MkdirAll(p.ModelDir, 0o755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
		weightsFile := filepath.Join(p.ModelDir, WeightsFileName)
		if err := b.model.SaveWeights(weightsFile); err != nil {
			return fmt.Errorf("failed to save weights: %w", err)
		}
	}
	return nil
}

// Predict evaluates over the test split for
// ceil(test_size / global_batch_size) steps.
func (b *MultiNodeBenchmark) Predict(ctx context.Context, p params.RunParams) error {
	if b.model == nil {
		return ErrUnbuiltModel
	}

	steps := StepsPerEpoch(b.dataset.TestSize(), p.GlobalBatchSize)
	cbs, err := b.callbacks(p, steps, false)
	if err != nil {
		return err
	}

	log.Info("Begin Predict...")
	log.Infof("Predicting for %d steps", steps)

	dataset := b.dataset.TestFn(p.BatchSize)
	_, err = train.Evaluate(ctx, b.model, dataset, train.EvalConfig{
		Steps:     steps,
		Callbacks: cbs.Build(),
		Verbose:   b.coordinator && p.Verbosity > 1,
	})
	return err
}
