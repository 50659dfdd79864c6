package train

import "math"

// Optimizer applies gradients to a flat parameter vector.
//
// Config and FromConfig exist so that callers can derive a re-tuned
// optimizer (for example with a scaled learning rate) without mutating the
// original instance: read the configuration, adjust it, and reconstruct.
type Optimizer interface {
	Name() string

	// Config returns the optimizer's hyperparameters. The returned map is
	// a copy and always contains "learning_rate".
	Config() map[string]float64

	// FromConfig builds a fresh optimizer of the same kind from a
	// configuration previously obtained from Config. State (momentum,
	// moment estimates) is not carried over.
	FromConfig(cfg map[string]float64) Optimizer

	// Apply updates params in place using the given gradients.
	Apply(params, grads []float64) error

	LearningRate() float64
	SetLearningRate(lr float64)
}

// SGD is stochastic gradient descent with optional momentum.
type SGD struct {
	lr       float64
	momentum float64

	velocity []float64
}

func NewSGD(lr, momentum float64) *SGD {
	return &SGD{lr: lr, momentum: momentum}
}

func (o *SGD) Name() string { return "sgd" }

func (o *SGD) Config() map[string]float64 {
	return map[string]float64{
		"learning_rate": o.lr,
		"momentum":      o.momentum,
	}
}

func (o *SGD) FromConfig(cfg map[string]float64) Optimizer {
	return NewSGD(cfg["learning_rate"], cfg["momentum"])
}

func (o *SGD) Apply(params, grads []float64) error {
	if o.velocity == nil {
		o.velocity = make([]float64, len(params))
	}
	for i := range params {
		o.velocity[i] = o.momentum*o.velocity[i] - o.lr*grads[i]
		params[i] += o.velocity[i]
	}
	return nil
}

func (o *SGD) LearningRate() float64      { return o.lr }
func (o *SGD) SetLearningRate(lr float64) { o.lr = lr }

// Adam implements the Adam optimizer (Kingma & Ba).
type Adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64

	m []float64
	v []float64
	t int
}

func NewAdam(lr float64) *Adam {
	return &Adam{lr: lr, beta1: 0.9, beta2: 0.999, epsilon: 1e-8}
}

func (o *Adam) Name() string { return "adam" }

func (o *Adam) Config() map[string]float64 {
	return map[string]float64{
		"learning_rate": o.lr,
		"beta_1":        o.beta1,
		"beta_2":        o.beta2,
		"epsilon":       o.epsilon,
	}
}

func (o *Adam) FromConfig(cfg map[string]float64) Optimizer {
	return &Adam{
		lr:      cfg["learning_rate"],
		beta1:   cfg["beta_1"],
		beta2:   cfg["beta_2"],
		epsilon: cfg["epsilon"],
	}
}

func (o *Adam) Apply(params, grads []float64) error {
	if o.m == nil {
		o.m = make([]float64, len(params))
		o.v = make([]float64, len(params))
	}
	o.t++
	bc1 := 1 - math.Pow(o.beta1, float64(o.t))
	bc2 := 1 - math.Pow(o.beta2, float64(o.t))
	for i := range params {
		o.m[i] = o.beta1*o.m[i] + (1-o.beta1)*grads[i]
		o.v[i] = o.beta2*o.v[i] + (1-o.beta2)*grads[i]*grads[i]
		mHat := o.m[i] / bc1
		vHat := o.v[i] / bc2
		params[i] -= o.lr * mHat / (math.Sqrt(vHat) + o.epsilon)
	}
	return nil
}

func (o *Adam) LearningRate() float64      { return o.lr }
func (o *Adam) SetLearningRate(lr float64) { o.lr = lr }
