package train

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// FitConfig controls a training run over a dataset.
type FitConfig struct {
	Epochs int

	// StepsPerEpoch bounds each epoch; when the dataset exhausts early it
	// is rewound. Zero means one full pass per epoch.
	StepsPerEpoch int

	Callbacks []Callback
	Verbose   bool
}

// EvalConfig controls a single evaluation pass.
type EvalConfig struct {
	// Steps bounds the pass; zero means run to exhaustion.
	Steps int

	Callbacks []Callback
	Verbose   bool
}

var errEmptyDataset = errors.New("dataset produced no batches")

// Fit drives the epoch/step loop: one TrainStep per batch, callback
// dispatch per batch and per epoch, epoch metrics averaged over steps.
// OnTrainEnd runs even when the loop aborts, so callbacks holding open
// files are always released; the loop's error wins over a release error.
func Fit(ctx context.Context, m Model, ds Dataset, cfg FitConfig) (err error) {
	cbs := callbackList(cfg.Callbacks)
	if err := cbs.onTrainBegin(m); err != nil {
		return err
	}
	defer func() {
		if cerr := cbs.onTrainEnd(); err == nil {
			err = cerr
		}
	}()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cbs.onEpochBegin(epoch); err != nil {
			return err
		}

		ds.Reset()
		epochLogs, err := runSteps(ctx, ds, cfg.StepsPerEpoch, cbs, m.TrainStep)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}

		if err := cbs.onEpochEnd(epoch, epochLogs); err != nil {
			return err
		}
		if cfg.Verbose {
			log.Infof("epoch %d/%d: %v", epoch+1, cfg.Epochs, epochLogs)
		}
	}
	return nil
}

// Evaluate runs a single scoring pass and returns the averaged metrics.
// Like Fit, OnTrainEnd runs even when the pass aborts.
func Evaluate(ctx context.Context, m Model, ds Dataset, cfg EvalConfig) (logs map[string]float64, err error) {
	cbs := callbackList(cfg.Callbacks)
	if err := cbs.onTrainBegin(m); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cbs.onTrainEnd(); err == nil {
			err = cerr
		}
	}()

	if err := cbs.onEpochBegin(0); err != nil {
		return nil, err
	}

	ds.Reset()
	logs, err = runSteps(ctx, ds, cfg.Steps, cbs, m.EvalStep)
	if err != nil {
		return nil, err
	}

	if err := cbs.onEpochEnd(0, logs); err != nil {
		return nil, err
	}
	if cfg.Verbose {
		log.Infof("evaluation: %v", logs)
	}
	return logs, nil
}

func runSteps(ctx context.Context, ds Dataset, maxSteps int, cbs callbackList, stepFn func(Batch) (map[string]float64, error)) (map[string]float64, error) {
	totals := make(map[string]float64)
	steps := 0

	for maxSteps == 0 || steps < maxSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, ok := ds.Next()
		if !ok {
			if maxSteps == 0 || steps == 0 {
				break
			}
			// Bounded epochs rewind the dataset rather than ending early.
			ds.Reset()
			continue
		}

		logs, err := stepFn(batch)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", steps, err)
		}
		if err := cbs.onBatchEnd(steps, logs); err != nil {
			return nil, err
		}

		for k, v := range logs {
			totals[k] += v
		}
		steps++
	}

	if steps == 0 {
		return nil, errEmptyDataset
	}
	for k := range totals {
		totals[k] /= float64(steps)
	}
	return totals, nil
}

type callbackList []Callback

func (l callbackList) onTrainBegin(m Model) error {
	for _, c := range l {
		if err := c.OnTrainBegin(m); err != nil {
			return err
		}
	}
	return nil
}

func (l callbackList) onEpochBegin(epoch int) error {
	for _, c := range l {
		if err := c.OnEpochBegin(epoch); err != nil {
			return err
		}
	}
	return nil
}

func (l callbackList) onBatchEnd(step int, logs map[string]float64) error {
	for _, c := range l {
		if err := c.OnBatchEnd(step, logs); err != nil {
			return err
		}
	}
	return nil
}

func (l callbackList) onEpochEnd(epoch int, logs map[string]float64) error {
	for _, c := range l {
		if err := c.OnEpochEnd(epoch, logs); err != nil {
			return err
		}
	}
	return nil
}

func (l callbackList) onTrainEnd() error {
	for _, c := range l {
		if err := c.OnTrainEnd(); err != nil {
			return err
		}
	}
	return nil
}
