// Package synthetic is a self-contained regression benchmark on generated
// data. It exists so the harness can be run and tested end to end without
// downloading a dataset.
package synthetic

import (
	"math/rand"

	"github.com/imishinist/scibench/internal/benchmarks"
	"github.com/imishinist/scibench/internal/params"
	"github.com/imishinist/scibench/internal/runner"
	"github.com/imishinist/scibench/internal/train"
)

const (
	features  = 8
	trainSize = 512
	testSize  = 128
	seed      = 42
)

func init() {
	benchmarks.Register("synthetic", func() interface{} { return New() })
}

// Loader serves generated linear data: y = x·w* + noise.
type Loader struct {
	inputs  [][]float64
	targets []float64
}

// NewLoader generates n deterministic samples.
func NewLoader(n int, seed int64) *Loader {
	rng := rand.New(rand.NewSource(seed))

	truth := make([]float64, features)
	for i := range truth {
		truth[i] = rng.NormFloat64()
	}

	l := &Loader{
		inputs:  make([][]float64, n),
		targets: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		x := make([]float64, features)
		sum := 0.0
		for j := range x {
			x[j] = rng.NormFloat64()
			sum += x[j] * truth[j]
		}
		l.inputs[i] = x
		l.targets[i] = sum + rng.NormFloat64()*0.01
	}
	return l
}

func (l *Loader) InputShape() []int { return []int{features} }
func (l *Loader) Size() int         { return len(l.inputs) }

func (l *Loader) Dataset(batchSize int) train.Dataset {
	return train.NewSliceDataset(l.inputs, l.targets, batchSize)
}

// Benchmark satisfies the full runner capability contract.
type Benchmark struct {
	loader    *Loader
	valLoader *Loader
}

func New() *Benchmark {
	return &Benchmark{
		loader:    NewLoader(trainSize, seed),
		valLoader: NewLoader(testSize, seed+1),
	}
}

func (b *Benchmark) Name() string { return "synthetic" }

func (b *Benchmark) Model(inputShape []int, p params.RunParams) (train.Model, error) {
	return NewLinearModel(inputShape[0], seed), nil
}

func (b *Benchmark) Optimizer() train.Optimizer { return train.NewSGD(0.01, 0.9) }
func (b *Benchmark) Loss() train.Loss           { return train.MeanSquaredError{} }
func (b *Benchmark) Metrics() []string          { return []string{"mae"} }
func (b *Benchmark) Epochs() int                { return 4 }
func (b *Benchmark) BatchSize() int             { return 32 }

func (b *Benchmark) DataLoader() train.DataLoader           { return b.loader }
func (b *Benchmark) ValidationDataLoader() train.DataLoader { return b.valLoader }

func (b *Benchmark) FitParams() runner.FitParams { return runner.FitParams{} }

// Dataset adapts the loaders to the dataset-driven orchestration path.
type Dataset struct {
	train *Loader
	test  *Loader
}

func NewDataset() *Dataset {
	return &Dataset{
		train: NewLoader(trainSize, seed),
		test:  NewLoader(testSize, seed+1),
	}
}

func (d *Dataset) Dimensions() []int { return d.train.InputShape() }
func (d *Dataset) TrainSize() int    { return d.train.Size() }
func (d *Dataset) TestSize() int     { return d.test.Size() }

func (d *Dataset) TrainFn(batchSize int) train.Dataset { return d.train.Dataset(batchSize) }
func (d *Dataset) TestFn(batchSize int) train.Dataset  { return d.test.Dataset(batchSize) }
