package train

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSGDStep(t *testing.T) {
	opt := NewSGD(0.1, 0)
	params := []float64{1, -1}

	require.NoError(t, opt.Apply(params, []float64{2, -2}))
	assert.InDelta(t, 0.8, params[0], 1e-12)
	assert.InDelta(t, -0.8, params[1], 1e-12)
}

func TestSGDMomentumAccumulates(t *testing.T) {
	opt := NewSGD(0.1, 0.9)
	params := []float64{0}

	require.NoError(t, opt.Apply(params, []float64{1}))
	assert.InDelta(t, -0.1, params[0], 1e-12)

	// velocity = 0.9*(-0.1) - 0.1 = -0.19
	require.NoError(t, opt.Apply(params, []float64{1}))
	assert.InDelta(t, -0.29, params[0], 1e-12)
}

func TestSGDConfigRoundTrip(t *testing.T) {
	opt := NewSGD(0.01, 0.9)
	cfg := opt.Config()
	cfg["learning_rate"] = 0.04

	rebuilt := opt.FromConfig(cfg)
	assert.InDelta(t, 0.04, rebuilt.LearningRate(), 1e-12)
	assert.InDelta(t, 0.9, rebuilt.Config()["momentum"], 1e-12)
	assert.InDelta(t, 0.01, opt.LearningRate(), 1e-12)
}

func TestAdamFirstStepMagnitude(t *testing.T) {
	opt := NewAdam(0.001)
	params := []float64{0, 0}

	// On the first step the bias-corrected update is lr * sign(grad).
	require.NoError(t, opt.Apply(params, []float64{3, -5}))
	assert.InDelta(t, -0.001, params[0], 1e-6)
	assert.InDelta(t, 0.001, params[1], 1e-6)
}

func TestAdamConfigRoundTrip(t *testing.T) {
	opt := NewAdam(0.001)
	cfg := opt.Config()
	assert.InDelta(t, 0.9, cfg["beta_1"], 1e-12)
	assert.InDelta(t, 0.999, cfg["beta_2"], 1e-12)

	cfg["learning_rate"] = 0.002
	rebuilt := opt.FromConfig(cfg)
	assert.InDelta(t, 0.002, rebuilt.LearningRate(), 1e-12)
}

func TestMeanSquaredError(t *testing.T) {
	var mse MeanSquaredError
	pred := []float64{1, 2}
	target := []float64{0, 4}

	assert.InDelta(t, 2.5, mse.Loss(pred, target), 1e-12)

	grad := mse.Gradient(pred, target)
	assert.InDelta(t, 1, grad[0], 1e-12)
	assert.InDelta(t, -2, grad[1], 1e-12)
}

func TestBinaryCrossentropy(t *testing.T) {
	var bce BinaryCrossentropy

	// Confident correct predictions give near-zero loss.
	low := bce.Loss([]float64{0.999, 0.001}, []float64{1, 0})
	assert.Less(t, low, 0.01)

	// Confident wrong predictions are heavily penalized but finite.
	high := bce.Loss([]float64{0, 1}, []float64{1, 0})
	assert.Greater(t, high, low)
	assert.False(t, math.IsInf(high, 1))
}
