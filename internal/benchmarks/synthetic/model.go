package synthetic

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/imishinist/scibench/internal/train"
)

// LinearModel is a single-output linear layer: y = w·x + b. It is small on
// purpose; the harness exercises orchestration, not architecture.
type LinearModel struct {
	// weights holds the feature weights followed by the bias.
	weights []float64
	cfg     train.CompileConfig
}

// NewLinearModel initializes a model for the given feature count with
// small deterministic random weights.
func NewLinearModel(features int, seed int64) *LinearModel {
	rng := rand.New(rand.NewSource(seed))
	w := make([]float64, features+1)
	for i := range w {
		w[i] = rng.NormFloat64() * 0.01
	}
	return &LinearModel{weights: w}
}

func (m *LinearModel) Compile(cfg train.CompileConfig) error {
	if cfg.Optimizer == nil {
		return fmt.Errorf("cannot compile without an optimizer")
	}
	if cfg.Loss == nil {
		return fmt.Errorf("cannot compile without a loss")
	}
	m.cfg = cfg
	return nil
}

func (m *LinearModel) forward(inputs [][]float64) []float64 {
	preds := make([]float64, len(inputs))
	bias := m.weights[len(m.weights)-1]
	for i, x := range inputs {
		sum := bias
		for j, v := range x {
			sum += m.weights[j] * v
		}
		preds[i] = sum
	}
	return preds
}

func (m *LinearModel) TrainStep(b train.Batch) (map[string]float64, error) {
	if m.cfg.Optimizer == nil {
		return nil, fmt.Errorf("model is not compiled")
	}

	preds := m.forward(b.Inputs)
	lossGrad := m.cfg.Loss.Gradient(preds, b.Targets)

	grads := make([]float64, len(m.weights))
	for i, x := range b.Inputs {
		for j, v := range x {
			grads[j] += lossGrad[i] * v
		}
		grads[len(grads)-1] += lossGrad[i]
	}

	logs := m.metrics(preds, b.Targets)
	if err := m.cfg.Optimizer.Apply(m.weights, grads); err != nil {
		return nil, err
	}
	return logs, nil
}

func (m *LinearModel) EvalStep(b train.Batch) (map[string]float64, error) {
	if m.cfg.Loss == nil {
		return nil, fmt.Errorf("model is not compiled")
	}
	preds := m.forward(b.Inputs)
	return m.metrics(preds, b.Targets), nil
}

func (m *LinearModel) metrics(preds, targets []float64) map[string]float64 {
	logs := map[string]float64{
		"loss": m.cfg.Loss.Loss(preds, targets),
	}
	for _, name := range m.cfg.Metrics {
		switch name {
		case "mae":
			var sum float64
			for i := range preds {
				sum += math.Abs(preds[i] - targets[i])
			}
			logs[name] = sum / float64(len(preds))
		case "accuracy":
			var correct float64
			for i := range preds {
				if (preds[i] >= 0.5) == (targets[i] >= 0.5) {
					correct++
				}
			}
			logs[name] = correct / float64(len(preds))
		}
	}
	return logs
}

func (m *LinearModel) Weights() []float64 {
	out := make([]float64, len(m.weights))
	copy(out, m.weights)
	return out
}

func (m *LinearModel) SetWeights(w []float64) error {
	if len(w) != len(m.weights) {
		return fmt.Errorf("weight length mismatch: got %d, want %d", len(w), len(m.weights))
	}
	copy(m.weights, w)
	return nil
}

func (m *LinearModel) SaveWeights(path string) error {
	return train.SaveWeights(path, m.weights)
}

func (m *LinearModel) LoadWeights(path string) error {
	w, err := train.LoadWeights(path)
	if err != nil {
		return err
	}
	return m.SetWeights(w)
}
