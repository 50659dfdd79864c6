package system

import (
	"github.com/mindprince/gonvml"
	log "github.com/sirupsen/logrus"
)

// DeviceSpec is static metadata for one accelerator.
type DeviceSpec struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	MemoryTotal uint64 `json:"mem_total"`
	MinorNumber int    `json:"minor_number"`
}

// DeviceUtilization is one utilization sample for one accelerator.
type DeviceUtilization struct {
	Index       int    `json:"index"`
	Utilization int    `json:"gpu_util"`
	MemoryUsed  uint64 `json:"mem_used"`
}

// DeviceSpecs enumerates the host's accelerators through NVML. Hosts
// without NVML degrade to zero devices instead of failing.
type DeviceSpecs struct {
	available bool
	devices   []DeviceSpec
}

// NewDeviceSpecs initializes NVML and probes every device. Call Shutdown
// when done.
func NewDeviceSpecs() *DeviceSpecs {
	d := &DeviceSpecs{}

	if err := gonvml.Initialize(); err != nil {
		log.Debugf("NVML unavailable: %v", err)
		return d
	}

	count, err := gonvml.DeviceCount()
	if err != nil {
		log.Warnf("DeviceCount() error: %v", err)
		gonvml.Shutdown()
		return d
	}

	d.available = true
	d.devices = make([]DeviceSpec, 0, count)
	for i := 0; i < int(count); i++ {
		dev, err := gonvml.DeviceHandleByIndex(uint(i))
		if err != nil {
			log.Warnf("DeviceHandleByIndex(%d) error: %v", i, err)
			continue
		}
		name, _ := dev.Name()
		total, _, _ := dev.MemoryInfo()
		minor, _ := dev.MinorNumber()
		d.devices = append(d.devices, DeviceSpec{
			Index:       i,
			Name:        name,
			MemoryTotal: total,
			MinorNumber: int(minor),
		})
	}
	return d
}

// DeviceCount returns the number of probed accelerators.
func (d *DeviceSpecs) DeviceCount() int { return len(d.devices) }

// Devices returns the probed device metadata.
func (d *DeviceSpecs) Devices() []DeviceSpec { return d.devices }

// Utilization samples current utilization for every device.
func (d *DeviceSpecs) Utilization() []DeviceUtilization {
	if !d.available {
		return nil
	}

	out := make([]DeviceUtilization, 0, len(d.devices))
	for _, spec := range d.devices {
		dev, err := gonvml.DeviceHandleByIndex(uint(spec.Index))
		if err != nil {
			log.Debugf("DeviceHandleByIndex(%d) error: %v", spec.Index, err)
			continue
		}
		util, _, err := dev.UtilizationRates()
		if err != nil {
			log.Debugf("UtilizationRates(%d) error: %v", spec.Index, err)
			continue
		}
		_, used, err := dev.MemoryInfo()
		if err != nil {
			log.Debugf("MemoryInfo(%d) error: %v", spec.Index, err)
			continue
		}
		out = append(out, DeviceUtilization{
			Index:       spec.Index,
			Utilization: int(util),
			MemoryUsed:  used,
		})
	}
	return out
}

// Shutdown releases NVML.
func (d *DeviceSpecs) Shutdown() {
	if d.available {
		gonvml.Shutdown()
		d.available = false
	}
}
