package train

import (
	"fmt"
	"sort"
)

// Callback observes the training loop. Implementations may mutate the logs
// map in OnBatchEnd/OnEpochEnd; later callbacks in the list see the
// mutated values.
type Callback interface {
	OnTrainBegin(m Model) error
	OnEpochBegin(epoch int) error
	OnBatchEnd(step int, logs map[string]float64) error
	OnEpochEnd(epoch int, logs map[string]float64) error
	OnTrainEnd() error
}

// CallbackBase is a no-op Callback for embedding.
type CallbackBase struct{}

func (CallbackBase) OnTrainBegin(m Model) error                          { return nil }
func (CallbackBase) OnEpochBegin(epoch int) error                        { return nil }
func (CallbackBase) OnBatchEnd(step int, logs map[string]float64) error  { return nil }
func (CallbackBase) OnEpochEnd(epoch int, logs map[string]float64) error { return nil }
func (CallbackBase) OnTrainEnd() error                                   { return nil }

// Collective is the slice of the communication group the callbacks need.
type Collective interface {
	Rank() int
	Size() int
	Broadcast(root int, data []float64) error
	AllreduceMean(data []float64) error
}

// BroadcastCallback copies the root worker's initial weights into every
// model before the first optimizer step so all workers start identical.
type BroadcastCallback struct {
	CallbackBase
	comm Collective
	root int
}

func NewBroadcastCallback(comm Collective, root int) *BroadcastCallback {
	return &BroadcastCallback{comm: comm, root: root}
}

func (c *BroadcastCallback) OnTrainBegin(m Model) error {
	w := m.Weights()
	if err := c.comm.Broadcast(c.root, w); err != nil {
		return fmt.Errorf("failed to broadcast initial weights: %w", err)
	}
	return m.SetWeights(w)
}

// MetricAverageCallback replaces every epoch-end metric with its mean
// across the group, so reported values are aggregate rather than
// per-worker. It must run before any callback that records metrics.
type MetricAverageCallback struct {
	CallbackBase
	comm Collective
}

func NewMetricAverageCallback(comm Collective) *MetricAverageCallback {
	return &MetricAverageCallback{comm: comm}
}

func (c *MetricAverageCallback) OnEpochEnd(epoch int, logs map[string]float64) error {
	if c.comm.Size() == 1 {
		return nil
	}

	// Every rank must reduce in the same order.
	keys := make([]string, 0, len(logs))
	for k := range logs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]float64, 1)
	for _, k := range keys {
		buf[0] = logs[k]
		if err := c.comm.AllreduceMean(buf); err != nil {
			return fmt.Errorf("failed to average metric %s: %w", k, err)
		}
		logs[k] = buf[0]
	}
	return nil
}

// LearningRateWarmupCallback ramps the optimizer's learning rate linearly
// from zero to its compiled value over the first warmupEpochs epochs,
// stepping once per batch.
type LearningRateWarmupCallback struct {
	CallbackBase
	opt           Optimizer
	stepsPerEpoch int
	warmupEpochs  int

	target float64
	step   int
}

func NewLearningRateWarmupCallback(opt Optimizer, stepsPerEpoch, warmupEpochs int) *LearningRateWarmupCallback {
	return &LearningRateWarmupCallback{
		opt:           opt,
		stepsPerEpoch: stepsPerEpoch,
		warmupEpochs:  warmupEpochs,
	}
}

func (c *LearningRateWarmupCallback) OnTrainBegin(m Model) error {
	c.target = c.opt.LearningRate()
	c.step = 0
	if c.totalSteps() > 0 {
		c.opt.SetLearningRate(0)
	}
	return nil
}

func (c *LearningRateWarmupCallback) totalSteps() int {
	return c.stepsPerEpoch * c.warmupEpochs
}

func (c *LearningRateWarmupCallback) OnBatchEnd(step int, logs map[string]float64) error {
	total := c.totalSteps()
	if total <= 0 {
		return nil
	}
	c.step++
	if c.step >= total {
		c.opt.SetLearningRate(c.target)
		return nil
	}
	c.opt.SetLearningRate(c.target * float64(c.step) / float64(total))
	return nil
}

func (c *LearningRateWarmupCallback) OnTrainEnd() error {
	if c.totalSteps() > 0 {
		c.opt.SetLearningRate(c.target)
	}
	return nil
}
