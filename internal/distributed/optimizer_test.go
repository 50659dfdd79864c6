package distributed

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/scibench/internal/train"
)

func TestDistributeScalesLearningRate(t *testing.T) {
	group := NewLocalGroup(4)
	base := train.NewSGD(0.01, 0.9)

	opt, err := NewOptimizerFactory(group.Comm(0)).Distribute(base)
	require.NoError(t, err)

	assert.InDelta(t, 0.04, opt.LearningRate(), 1e-12)
	assert.Equal(t, "distributed_sgd", opt.Name())

	// The base optimizer is reconstructed, never mutated.
	assert.InDelta(t, 0.01, base.LearningRate(), 1e-12)
}

func TestDistributeSingleProcessKeepsRate(t *testing.T) {
	opt, err := NewOptimizerFactory(SingleProcess{}).Distribute(train.NewAdam(0.001))
	require.NoError(t, err)
	assert.InDelta(t, 0.001, opt.LearningRate(), 1e-12)
}

func TestDistributePreservesHyperparameters(t *testing.T) {
	group := NewLocalGroup(2)
	opt, err := NewOptimizerFactory(group.Comm(0)).Distribute(train.NewSGD(0.1, 0.5))
	require.NoError(t, err)

	cfg := opt.Config()
	assert.InDelta(t, 0.2, cfg["learning_rate"], 1e-12)
	assert.InDelta(t, 0.5, cfg["momentum"], 1e-12)
}

func TestDistributedOptimizerAveragesGradients(t *testing.T) {
	group := NewLocalGroup(2)

	var wg sync.WaitGroup
	results := make([][]float64, 2)
	errs := make([]error, 2)

	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()

			opt, err := NewOptimizerFactory(group.Comm(rank)).Distribute(train.NewSGD(0.5, 0))
			if err != nil {
				errs[rank] = err
				return
			}

			params := []float64{1.0}
			// rank 0 sees gradient 2, rank 1 sees gradient 4; mean is 3.
			grads := []float64{float64(2 + 2*rank)}
			errs[rank] = opt.Apply(params, grads)
			results[rank] = params
		}(rank)
	}
	wg.Wait()

	for rank := 0; rank < 2; rank++ {
		require.NoError(t, errs[rank], "worker %d", rank)
		// params -= lr * mean(grads); lr was scaled to 1.0 by the factory.
		assert.InDelta(t, -2.0, results[rank][0], 1e-12, "worker %d", rank)
	}
}
