package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/scibench/internal/tracking"
)

func TestNodeLoggerFlushesOnStop(t *testing.T) {
	dir := t.TempDir()

	nl, err := Start(dir, "node0", "train", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	nl.Stop()

	// At least the final sample taken during Stop must be present.
	assert.NotEmpty(t, nl.Samples())

	path := filepath.Join(dir, "node0_train_node.json")
	c, err := tracking.NewClient(path)
	require.NoError(t, err)
	assert.Contains(t, c.Tags(), "train_node0_utilization")
}

func TestNodeLoggerStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	nl, err := Start(dir, "node0", "predict", 10*time.Millisecond)
	require.NoError(t, err)

	nl.Stop()
	before := len(nl.Samples())
	nl.Stop()
	assert.Equal(t, before, len(nl.Samples()))

	// Exactly one utilization record, not one per Stop.
	data, err := os.ReadFile(filepath.Join(dir, "node0_predict_node.json"))
	require.NoError(t, err)

	var store struct {
		Records []struct {
			Type string `json:"type"`
			Key  string `json:"key"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &store))
	require.Len(t, store.Records, 1)
	assert.Equal(t, "tag", store.Records[0].Type)
	assert.Equal(t, "predict_node0_utilization", store.Records[0].Key)
}

func TestNodeLoggerDefaultInterval(t *testing.T) {
	nl, err := Start(t.TempDir(), "node0", "train", 0)
	require.NoError(t, err)
	defer nl.Stop()

	assert.Equal(t, 500*time.Millisecond, nl.interval)
}
