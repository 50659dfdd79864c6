package train

import (
	"encoding/gob"
	"fmt"
	"os"
)

// CompileConfig binds a model to its optimizer, loss, and reported metrics.
type CompileConfig struct {
	Optimizer Optimizer
	Loss      Loss
	Metrics   []string
}

// Model is the harness-facing contract for a trainable model. Concrete
// architectures live outside the runner; the runner only drives this
// interface.
type Model interface {
	// Compile attaches optimizer, loss, and metrics. Recompiling is
	// allowed and replaces the previous configuration.
	Compile(cfg CompileConfig) error

	// TrainStep runs one optimization step on the batch and returns the
	// step's loss and metric values keyed by name ("loss" is always set).
	TrainStep(b Batch) (map[string]float64, error)

	// EvalStep scores the batch without updating parameters.
	EvalStep(b Batch) (map[string]float64, error)

	// Weights returns a copy of the flat parameter vector.
	Weights() []float64

	// SetWeights replaces all parameters. No partial merge.
	SetWeights(w []float64) error

	SaveWeights(path string) error
	LoadWeights(path string) error
}

// SaveWeights serializes a flat weight vector. Model implementations share
// this format so weights saved by one run can be loaded by another.
func SaveWeights(path string, w []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(w); err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	return nil
}

// LoadWeights reads a weight vector written by SaveWeights.
func LoadWeights(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open weights file: %w", err)
	}
	defer f.Close()

	var w []float64
	if err := gob.NewDecoder(f).Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to decode weights: %w", err)
	}
	return w, nil
}
