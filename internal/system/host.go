package system

import (
	"os"
	"runtime"
	"strings"
)

// HostSpec reports static metadata about the machine a worker runs on.
// Fields that cannot be read on this platform are left empty rather than
// failing the run.
type HostSpec struct {
	Name          string `json:"name"`
	NodeName      string `json:"node_name"`
	NumCores      int    `json:"num_cores"`
	Release       string `json:"release"`
	System        string `json:"system"`
	CPUInfo       string `json:"cpu_info"`
	MemoryTotalMB int64  `json:"mem_total_mb"`
}

// NewHostSpec probes the local host.
func NewHostSpec() HostSpec {
	name, _ := os.Hostname()
	return HostSpec{
		Name:          name,
		NodeName:      name,
		NumCores:      runtime.NumCPU(),
		Release:       readFirstLine("/proc/sys/kernel/osrelease"),
		System:        runtime.GOOS,
		CPUInfo:       cpuModel(),
		MemoryTotalMB: memInfoMB("MemTotal"),
	}
}

func readFirstLine(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if idx := strings.IndexByte(string(data), '\n'); idx != -1 {
		return string(data[:idx])
	}
	return strings.TrimSpace(string(data))
}

func cpuModel() string {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "model name") {
			if idx := strings.IndexByte(line, ':'); idx != -1 {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}
