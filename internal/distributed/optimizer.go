package distributed

import (
	"fmt"

	"github.com/imishinist/scibench/internal/train"
)

// OptimizerFactory turns a benchmark's declared optimizer into its
// data-parallel equivalent. Both orchestration paths go through this one
// implementation so the scaling rule cannot drift between them.
type OptimizerFactory struct {
	comm Comm
}

func NewOptimizerFactory(comm Comm) *OptimizerFactory {
	return &OptimizerFactory{comm: comm}
}

// Distribute applies the linear scaling rule for synchronous data-parallel
// SGD: the learning rate is multiplied by the replica count. The base
// optimizer is never mutated; a fresh instance is reconstructed from its
// configuration, then wrapped so every Apply averages gradients across the
// group before the local update.
func (f *OptimizerFactory) Distribute(base train.Optimizer) (train.Optimizer, error) {
	cfg := base.Config()
	lr, ok := cfg["learning_rate"]
	if !ok {
		return nil, fmt.Errorf("optimizer %s has no learning_rate in its config", base.Name())
	}
	cfg["learning_rate"] = lr * float64(f.comm.Size())

	return &distributedOptimizer{
		comm:  f.comm,
		inner: base.FromConfig(cfg),
	}, nil
}

// distributedOptimizer averages gradients across all workers before
// delegating the update, so every replica takes the same step.
type distributedOptimizer struct {
	comm  Comm
	inner train.Optimizer
}

func (o *distributedOptimizer) Name() string {
	return "distributed_" + o.inner.Name()
}

func (o *distributedOptimizer) Config() map[string]float64 {
	return o.inner.Config()
}

func (o *distributedOptimizer) FromConfig(cfg map[string]float64) train.Optimizer {
	return &distributedOptimizer{comm: o.comm, inner: o.inner.FromConfig(cfg)}
}

func (o *distributedOptimizer) Apply(params, grads []float64) error {
	if err := o.comm.AllreduceMean(grads); err != nil {
		return fmt.Errorf("gradient allreduce failed: %w", err)
	}
	return o.inner.Apply(params, grads)
}

func (o *distributedOptimizer) LearningRate() float64 {
	return o.inner.LearningRate()
}

func (o *distributedOptimizer) SetLearningRate(lr float64) {
	o.inner.SetLearningRate(lr)
}
