// Package parser reads run-parameter override files in JSON or YAML.
package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/imishinist/scibench/internal/params"
)

// ParamsFile is the on-disk shape of a parameter override file. Absent
// fields leave the configured value untouched.
type ParamsFile struct {
	BatchSize    *int     `json:"batch_size" yaml:"batch_size"`
	LearningRate *float64 `json:"learning_rate" yaml:"learning_rate"`
	Epochs       *int     `json:"epochs" yaml:"epochs"`
	ExecMode     []string `json:"exec_mode" yaml:"exec_mode"`
	Verbosity    *int     `json:"verbosity" yaml:"verbosity"`
	LogBatch     *bool    `json:"log_batch" yaml:"log_batch"`
	LRWarmup     *int     `json:"lr_warmup" yaml:"lr_warmup"`
}

func ParseJSONParams(reader io.Reader) (*ParamsFile, error) {
	var data ParamsFile
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON parameters: %w", err)
	}

	return &data, nil
}

func ParseYAMLParams(reader io.Reader) (*ParamsFile, error) {
	var data ParamsFile
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML parameters: %w", err)
	}

	return &data, nil
}

// Apply overlays the file's values onto p.
func (f *ParamsFile) Apply(p params.RunParams) params.RunParams {
	if f.BatchSize != nil {
		p.BatchSize = *f.BatchSize
	}
	if f.LearningRate != nil {
		p.LearningRate = *f.LearningRate
	}
	if f.Epochs != nil {
		p.Epochs = *f.Epochs
	}
	if len(f.ExecMode) > 0 {
		p.ExecMode = f.ExecMode
	}
	if f.Verbosity != nil {
		p.Verbosity = *f.Verbosity
	}
	if f.LogBatch != nil {
		p.LogBatch = *f.LogBatch
	}
	if f.LRWarmup != nil {
		p.LRWarmup = *f.LRWarmup
	}
	return p
}
