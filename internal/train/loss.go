package train

import "math"

// Loss scores a batch of scalar predictions against targets and provides
// the gradient of the mean loss with respect to each prediction.
type Loss interface {
	Name() string
	Loss(pred, target []float64) float64
	Gradient(pred, target []float64) []float64
}

// MeanSquaredError is the mean of squared residuals.
type MeanSquaredError struct{}

func (MeanSquaredError) Name() string { return "mean_squared_error" }

func (MeanSquaredError) Loss(pred, target []float64) float64 {
	var sum float64
	for i := range pred {
		d := pred[i] - target[i]
		sum += d * d
	}
	return sum / float64(len(pred))
}

func (MeanSquaredError) Gradient(pred, target []float64) []float64 {
	grad := make([]float64, len(pred))
	n := float64(len(pred))
	for i := range pred {
		grad[i] = 2 * (pred[i] - target[i]) / n
	}
	return grad
}

// BinaryCrossentropy expects predictions in (0, 1).
type BinaryCrossentropy struct{}

func (BinaryCrossentropy) Name() string { return "binary_crossentropy" }

const bceEpsilon = 1e-7

func clip01(v float64) float64 {
	return math.Min(math.Max(v, bceEpsilon), 1-bceEpsilon)
}

func (BinaryCrossentropy) Loss(pred, target []float64) float64 {
	var sum float64
	for i := range pred {
		p := clip01(pred[i])
		sum += -(target[i]*math.Log(p) + (1-target[i])*math.Log(1-p))
	}
	return sum / float64(len(pred))
}

func (BinaryCrossentropy) Gradient(pred, target []float64) []float64 {
	grad := make([]float64, len(pred))
	n := float64(len(pred))
	for i := range pred {
		p := clip01(pred[i])
		grad[i] = (p - target[i]) / (p * (1 - p)) / n
	}
	return grad
}
