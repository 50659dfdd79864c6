package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/scibench/internal/params"
	"github.com/imishinist/scibench/internal/runner"
	"github.com/imishinist/scibench/internal/tracking"
)

func TestRunBenchmarkResolvesRunDirectory(t *testing.T) {
	base := t.TempDir()
	p := runParams(base, params.ModeTrain, params.ModePredict)

	fixed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	err := runner.RunBenchmark(context.Background(), newStubBenchmark(), p, runner.Options{
		LogInterval: 10 * time.Millisecond,
		Now:         func() time.Time { return fixed },
	})
	require.NoError(t, err)

	runDir := filepath.Join(base, "models", "stub", "2024-03-15-1030")
	for _, name := range []string{runner.WeightsFileName, "logs.json", "training.log"} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}
}

type mirroredMetric struct {
	key   string
	value float64
	step  int
}

// fakeMirror records every mirror call for inspection.
type fakeMirror struct {
	started   string
	params    map[string]string
	metrics   []mirroredMetric
	ended     bool
	endFailed bool
}

func (m *fakeMirror) StartRun(ctx context.Context, benchmarkName string, tags map[string]string) error {
	m.started = benchmarkName
	return nil
}

func (m *fakeMirror) LogParams(ctx context.Context, params map[string]string) error {
	m.params = params
	return nil
}

func (m *fakeMirror) LogMetric(ctx context.Context, key string, value float64, step int) error {
	m.metrics = append(m.metrics, mirroredMetric{key, value, step})
	return nil
}

func (m *fakeMirror) EndRun(ctx context.Context, failed bool) error {
	m.ended = true
	m.endFailed = failed
	return nil
}

func TestRunBenchmarkMirrorsParamsAndMetrics(t *testing.T) {
	base := t.TempDir()
	p := runParams(base, params.ModeTrain)
	mirror := &fakeMirror{}

	err := runner.RunBenchmark(context.Background(), newStubBenchmark(), p, runner.Options{
		LogInterval: 10 * time.Millisecond,
		Mirror:      mirror,
		Now:         func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	assert.Equal(t, "stub", mirror.started)
	assert.Equal(t, "4", mirror.params["batch_size"])
	assert.True(t, mirror.ended)
	assert.False(t, mirror.endFailed)

	// Every locally tracked metric is replayed to the mirror.
	keys := make(map[string]bool)
	for _, m := range mirror.metrics {
		keys[m.key] = true
	}
	assert.True(t, keys["loss"])
	assert.True(t, keys["epoch_duration"])
	assert.True(t, keys["samples_per_sec"])
}

func TestRunBenchmarkRejectsBeforeSideEffects(t *testing.T) {
	base := t.TempDir()
	p := runParams(base, params.ModeTrain)

	err := runner.RunBenchmark(context.Background(), struct{}{}, p, runner.Options{})

	var capErr *runner.CapabilityError
	require.ErrorAs(t, err, &capErr)

	// Validation failed before any run directory was created.
	_, statErr := os.Stat(filepath.Join(base, "models"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunBenchmarkUsesBenchmarkBatchSize(t *testing.T) {
	base := t.TempDir()
	p := runParams(base, params.ModeTrain)
	p.BatchSize = 999 // overridden by the benchmark's declared batch size

	fixed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	err := runner.RunBenchmark(context.Background(), newStubBenchmark(), p, runner.Options{
		LogInterval: 10 * time.Millisecond,
		Now:         func() time.Time { return fixed },
	})
	require.NoError(t, err)

	db, err := tracking.NewClient(filepath.Join(base, "models", "stub", "2024-03-15-1030", "logs.json"))
	require.NoError(t, err)

	logged, ok := db.Params()["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "4", logged["batch_size"])
	assert.Equal(t, "4", logged["global_batch_size"])
}
