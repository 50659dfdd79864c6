package system

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CPUSampler measures CPU utilization between successive calls by diffing
// aggregate /proc/stat counters.
type CPUSampler struct {
	prevIdle  uint64
	prevTotal uint64
	primed    bool
}

// Utilization returns the percentage of non-idle CPU time since the last
// call. The first call primes the counters and reports zero.
func (s *CPUSampler) Utilization() (float64, error) {
	idle, total, err := readCPUStat()
	if err != nil {
		return 0, err
	}

	if !s.primed {
		s.prevIdle, s.prevTotal, s.primed = idle, total, true
		return 0, nil
	}

	dIdle := float64(idle - s.prevIdle)
	dTotal := float64(total - s.prevTotal)
	s.prevIdle, s.prevTotal = idle, total

	if dTotal <= 0 {
		return 0, nil
	}
	return 100 * (dTotal - dIdle) / dTotal, nil
}

func readCPUStat() (idle, total uint64, err error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read /proc/stat: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		for i, f := range fields[1:] {
			v, perr := strconv.ParseUint(f, 10, 64)
			if perr != nil {
				return 0, 0, fmt.Errorf("failed to parse /proc/stat field %q: %w", f, perr)
			}
			total += v
			// idle + iowait
			if i == 3 || i == 4 {
				idle += v
			}
		}
		return idle, total, nil
	}
	return 0, 0, fmt.Errorf("no aggregate cpu line in /proc/stat")
}

// MemoryUsedMB reports used physical memory (MemTotal - MemAvailable).
func MemoryUsedMB() int64 {
	total := memInfoMB("MemTotal")
	avail := memInfoMB("MemAvailable")
	if total == 0 || avail > total {
		return 0
	}
	return total - avail
}

func memInfoMB(key string) int64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, key+":") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return kb / 1024
	}
	return 0
}
