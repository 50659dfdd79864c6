package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Execution phases a run may request.
const (
	ModeTrain   = "train"
	ModePredict = "predict"
)

var validExecModes = map[string]bool{
	ModeTrain:   true,
	ModePredict: true,
}

// RunParams is the full configuration surface a run consumes. NumReplicas
// and GlobalBatchSize are derived exactly once by Setup and must not be
// recomputed afterwards.
type RunParams struct {
	BatchSize    int
	LearningRate float64
	Epochs       int
	ExecMode     []string
	DataDir      string
	ModelDir     string
	Verbosity    int
	LogBatch     bool
	LRWarmup     int
	Metrics      []string

	NumReplicas     int
	GlobalBatchSize int
}

// Validate checks the user-supplied fields.
func (p RunParams) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", p.BatchSize)
	}
	if p.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", p.Epochs)
	}
	if len(p.ExecMode) == 0 {
		return fmt.Errorf("exec mode must name at least one of %s, %s", ModeTrain, ModePredict)
	}
	for _, m := range p.ExecMode {
		if !validExecModes[m] {
			return fmt.Errorf("invalid exec mode: %s (valid: %s, %s)", m, ModeTrain, ModePredict)
		}
	}
	return nil
}

// Setup derives the replica-aware batch sizing from the group size. Pure:
// the receiver is untouched and the derived copy is returned. Calling it
// on already-derived parameters is an error.
func (p RunParams) Setup(groupSize int) (RunParams, error) {
	if p.NumReplicas != 0 || p.GlobalBatchSize != 0 {
		return p, fmt.Errorf("parameters already set up (num_replicas=%d)", p.NumReplicas)
	}
	if groupSize < 1 {
		return p, fmt.Errorf("group size must be at least 1, got %d", groupSize)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}

	p.NumReplicas = groupSize
	p.GlobalBatchSize = p.BatchSize * groupSize
	return p, nil
}

// WantsTrain reports whether the train phase was requested.
func (p RunParams) WantsTrain() bool { return p.hasMode(ModeTrain) }

// WantsPredict reports whether the predict phase was requested.
func (p RunParams) WantsPredict() bool { return p.hasMode(ModePredict) }

func (p RunParams) hasMode(mode string) bool {
	for _, m := range p.ExecMode {
		if m == mode {
			return true
		}
	}
	return false
}

// Map renders the parameters as a flat key/value mapping for the tracking
// store and the MLflow mirror.
func (p RunParams) Map() map[string]string {
	return map[string]string{
		"batch_size":        strconv.Itoa(p.BatchSize),
		"learning_rate":     strconv.FormatFloat(p.LearningRate, 'g', -1, 64),
		"epochs":            strconv.Itoa(p.Epochs),
		"exec_mode":         strings.Join(p.ExecMode, ","),
		"data_dir":          p.DataDir,
		"model_dir":         p.ModelDir,
		"verbosity":         strconv.Itoa(p.Verbosity),
		"log_batch":         strconv.FormatBool(p.LogBatch),
		"lr_warmup":         strconv.Itoa(p.LRWarmup),
		"metrics":           strings.Join(p.Metrics, ","),
		"num_replicas":      strconv.Itoa(p.NumReplicas),
		"global_batch_size": strconv.Itoa(p.GlobalBatchSize),
	}
}
