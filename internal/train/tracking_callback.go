package train

import (
	"time"
)

// MetricRecorder is the slice of the tracking client the callback needs.
type MetricRecorder interface {
	LogMetric(key string, value float64, step int) error
}

// TrackingCallback pushes training metrics into the run's tracking store.
// Per-epoch values are always recorded; per-batch values only when
// logBatch is set. It also derives throughput from the global batch size.
type TrackingCallback struct {
	CallbackBase
	recorder        MetricRecorder
	globalBatchSize int
	logBatch        bool

	epochStart time.Time
	steps      int
	globalStep int
}

func NewTrackingCallback(recorder MetricRecorder, globalBatchSize int, logBatch bool) *TrackingCallback {
	return &TrackingCallback{
		recorder:        recorder,
		globalBatchSize: globalBatchSize,
		logBatch:        logBatch,
	}
}

func (c *TrackingCallback) OnEpochBegin(epoch int) error {
	c.epochStart = time.Now()
	c.steps = 0
	return nil
}

func (c *TrackingCallback) OnBatchEnd(step int, logs map[string]float64) error {
	c.steps++
	c.globalStep++
	if !c.logBatch {
		return nil
	}
	for k, v := range logs {
		if err := c.recorder.LogMetric("batch_"+k, v, c.globalStep); err != nil {
			return err
		}
	}
	return nil
}

func (c *TrackingCallback) OnEpochEnd(epoch int, logs map[string]float64) error {
	for k, v := range logs {
		if err := c.recorder.LogMetric(k, v, epoch); err != nil {
			return err
		}
	}

	elapsed := time.Since(c.epochStart).Seconds()
	if err := c.recorder.LogMetric("epoch_duration", elapsed, epoch); err != nil {
		return err
	}
	if elapsed > 0 && c.steps > 0 {
		throughput := float64(c.steps*c.globalBatchSize) / elapsed
		if err := c.recorder.LogMetric("samples_per_sec", throughput, epoch); err != nil {
			return err
		}
	}
	return nil
}
