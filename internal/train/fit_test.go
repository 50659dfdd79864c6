package train

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModel counts steps and reports a constant loss. When failAfter is
// set, training fails once that many steps have succeeded.
type stubModel struct {
	weights []float64

	trainSteps int
	evalSteps  int
	loss       float64
	stepErr    error
	failAfter  int
}

func (m *stubModel) Compile(cfg CompileConfig) error { return nil }

func (m *stubModel) TrainStep(b Batch) (map[string]float64, error) {
	if m.stepErr != nil && m.trainSteps >= m.failAfter {
		return nil, m.stepErr
	}
	m.trainSteps++
	return map[string]float64{"loss": m.loss}, nil
}

func (m *stubModel) EvalStep(b Batch) (map[string]float64, error) {
	m.evalSteps++
	return map[string]float64{"loss": m.loss}, nil
}

func (m *stubModel) Weights() []float64 {
	w := make([]float64, len(m.weights))
	copy(w, m.weights)
	return w
}

func (m *stubModel) SetWeights(w []float64) error {
	if len(w) != len(m.weights) {
		return errors.New("weight length mismatch")
	}
	copy(m.weights, w)
	return nil
}

func (m *stubModel) SaveWeights(path string) error { return SaveWeights(path, m.weights) }

func (m *stubModel) LoadWeights(path string) error {
	w, err := LoadWeights(path)
	if err != nil {
		return err
	}
	m.weights = w
	return nil
}

func dataset(samples, batchSize int) Dataset {
	inputs := make([][]float64, samples)
	targets := make([]float64, samples)
	for i := range inputs {
		inputs[i] = []float64{float64(i)}
	}
	return NewSliceDataset(inputs, targets, batchSize)
}

// recordingCallback captures the hook sequence.
type recordingCallback struct {
	CallbackBase
	events []string
}

func (c *recordingCallback) OnTrainBegin(m Model) error {
	c.events = append(c.events, "train_begin")
	return nil
}

func (c *recordingCallback) OnEpochBegin(epoch int) error {
	c.events = append(c.events, "epoch_begin")
	return nil
}

func (c *recordingCallback) OnEpochEnd(epoch int, logs map[string]float64) error {
	c.events = append(c.events, "epoch_end")
	return nil
}

func (c *recordingCallback) OnTrainEnd() error {
	c.events = append(c.events, "train_end")
	return nil
}

func TestFitFullPassPerEpoch(t *testing.T) {
	m := &stubModel{loss: 0.5}

	err := Fit(context.Background(), m, dataset(10, 4), FitConfig{Epochs: 3})
	require.NoError(t, err)

	// 10 samples / batch 4 = 3 batches per epoch.
	assert.Equal(t, 9, m.trainSteps)
}

func TestFitBoundedEpochRewindsDataset(t *testing.T) {
	m := &stubModel{}

	// 2 batches available, 5 steps requested: the dataset rewinds.
	err := Fit(context.Background(), m, dataset(4, 2), FitConfig{
		Epochs:        1,
		StepsPerEpoch: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, m.trainSteps)
}

func TestFitEmptyDataset(t *testing.T) {
	err := Fit(context.Background(), &stubModel{}, dataset(0, 4), FitConfig{Epochs: 1})
	assert.ErrorIs(t, err, errEmptyDataset)
}

func TestFitCallbackSequence(t *testing.T) {
	rec := &recordingCallback{}

	err := Fit(context.Background(), &stubModel{}, dataset(2, 2), FitConfig{
		Epochs:    2,
		Callbacks: []Callback{rec},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"train_begin",
		"epoch_begin", "epoch_end",
		"epoch_begin", "epoch_end",
		"train_end",
	}, rec.events)
}

func TestFitStepError(t *testing.T) {
	stepErr := errors.New("nan loss")
	m := &stubModel{stepErr: stepErr}

	err := Fit(context.Background(), m, dataset(2, 2), FitConfig{Epochs: 1})
	assert.ErrorIs(t, err, stepErr)
}

func TestFitReleasesCallbacksOnError(t *testing.T) {
	rec := &recordingCallback{}
	m := &stubModel{stepErr: errors.New("nan loss")}

	err := Fit(context.Background(), m, dataset(2, 2), FitConfig{
		Epochs:    1,
		Callbacks: []Callback{rec},
	})
	require.Error(t, err)

	// The abort still releases the callbacks.
	assert.Equal(t, []string{"train_begin", "epoch_begin", "train_end"}, rec.events)
}

func TestFitClosesCSVLoggerOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.log")
	logger := NewCSVLogger(path)

	// The first epoch completes and writes its row; the second fails.
	m := &stubModel{loss: 1, stepErr: errors.New("nan loss"), failAfter: 1}

	err := Fit(context.Background(), m, dataset(2, 2), FitConfig{
		Epochs:    2,
		Callbacks: []Callback{logger},
	})
	require.Error(t, err)

	assert.Nil(t, logger.file)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "epoch,loss\n0,1\n", string(data))
}

func TestFitCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Fit(ctx, &stubModel{}, dataset(4, 2), FitConfig{Epochs: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateAveragesOverSteps(t *testing.T) {
	m := &stubModel{loss: 2}

	logs, err := Evaluate(context.Background(), m, dataset(6, 2), EvalConfig{})
	require.NoError(t, err)
	assert.Equal(t, 3, m.evalSteps)
	assert.Equal(t, 2.0, logs["loss"])
}

func TestEvaluateBoundedSteps(t *testing.T) {
	m := &stubModel{}

	_, err := Evaluate(context.Background(), m, dataset(10, 2), EvalConfig{Steps: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, m.evalSteps)
}
