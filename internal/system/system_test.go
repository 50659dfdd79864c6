package system

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHostSpec(t *testing.T) {
	spec := NewHostSpec()

	assert.NotEmpty(t, spec.Name)
	assert.Equal(t, spec.Name, spec.NodeName)
	assert.Equal(t, runtime.NumCPU(), spec.NumCores)
	assert.Equal(t, runtime.GOOS, spec.System)
}

func TestCPUSamplerPrimesOnFirstCall(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires /proc")
	}

	var s CPUSampler
	first, err := s.Utilization()
	require.NoError(t, err)
	assert.Zero(t, first)

	second, err := s.Utilization()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second, 0.0)
	assert.LessOrEqual(t, second, 100.0)
}

func TestMemoryUsedMB(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires /proc")
	}

	used := MemoryUsedMB()
	assert.GreaterOrEqual(t, used, int64(0))
	assert.LessOrEqual(t, used, memInfoMB("MemTotal"))
}

func TestDeviceSpecsDegradeWithoutGPU(t *testing.T) {
	devices := NewDeviceSpecs()
	defer devices.Shutdown()

	// With no NVML library present the probe degrades to zero devices
	// rather than failing.
	assert.Len(t, devices.Devices(), devices.DeviceCount())
}
