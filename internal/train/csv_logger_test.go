package train

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVLoggerWritesSortedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.log")
	c := NewCSVLogger(path)

	require.NoError(t, c.OnEpochEnd(0, map[string]float64{"loss": 0.5, "accuracy": 0.25}))
	require.NoError(t, c.OnEpochEnd(1, map[string]float64{"loss": 0.25, "accuracy": 0.5}))
	require.NoError(t, c.OnTrainEnd())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "epoch,accuracy,loss\n0,0.25,0.5\n1,0.5,0.25\n", string(data))
}

func TestCSVLoggerNoEpochsNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.log")
	c := NewCSVLogger(path)

	require.NoError(t, c.OnTrainEnd())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
