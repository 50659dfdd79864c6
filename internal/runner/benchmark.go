package runner

import (
	"fmt"

	"github.com/imishinist/scibench/internal/params"
	"github.com/imishinist/scibench/internal/train"
)

// FitParams carries per-benchmark overrides for the fit loop.
type FitParams struct {
	// StepsPerEpoch bounds each training epoch; zero means one full pass.
	StepsPerEpoch int
}

// Benchmark is the capability set a runnable benchmark must expose. A
// runner accepts only values satisfying the full contract; benchmarks are
// constructed by the configuration layer and never mutated by the runner.
type Benchmark interface {
	Name() string

	// Model constructs the (uncompiled) model for the given input shape.
	Model(inputShape []int, p params.RunParams) (train.Model, error)

	Optimizer() train.Optimizer
	Loss() train.Loss
	Metrics() []string
	Epochs() int
	BatchSize() int
	DataLoader() train.DataLoader
	ValidationDataLoader() train.DataLoader
	FitParams() FitParams
}

// CapabilityError reports a benchmark that does not satisfy the contract.
// It is raised at run entry, before any directory side effects.
type CapabilityError struct {
	Reason string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("benchmark does not satisfy the runner contract: %s", e.Reason)
}

// ValidateBenchmark checks that v exposes the full capability set.
func ValidateBenchmark(v interface{}) (Benchmark, error) {
	b, ok := v.(Benchmark)
	if !ok {
		return nil, &CapabilityError{Reason: fmt.Sprintf("%T does not implement the benchmark interface", v)}
	}
	if b.Name() == "" {
		return nil, &CapabilityError{Reason: "benchmark has no name"}
	}
	if b.Optimizer() == nil {
		return nil, &CapabilityError{Reason: "benchmark declares no optimizer"}
	}
	if b.Loss() == nil {
		return nil, &CapabilityError{Reason: "benchmark declares no loss"}
	}
	if b.DataLoader() == nil {
		return nil, &CapabilityError{Reason: "benchmark declares no data loader"}
	}
	if b.ValidationDataLoader() == nil {
		return nil, &CapabilityError{Reason: "benchmark declares no validation data loader"}
	}
	if b.Epochs() <= 0 {
		return nil, &CapabilityError{Reason: fmt.Sprintf("benchmark declares invalid epochs %d", b.Epochs())}
	}
	if b.BatchSize() <= 0 {
		return nil, &CapabilityError{Reason: fmt.Sprintf("benchmark declares invalid batch size %d", b.BatchSize())}
	}
	return b, nil
}
