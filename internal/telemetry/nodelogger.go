package telemetry

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/scibench/internal/system"
	"github.com/imishinist/scibench/internal/tracking"
)

// Sample is one observation of host and accelerator utilization.
type Sample struct {
	Timestamp    int64                      `json:"timestamp"`
	CPUUtil      float64                    `json:"cpu_util"`
	MemoryUsedMB int64                      `json:"mem_used_mb"`
	GPU          []system.DeviceUtilization `json:"gpu,omitempty"`
}

// NodeLogger samples system utilization at a fixed interval while a run
// phase is active and flushes the collected samples to the phase's
// tracking file when stopped. Stop is safe to call more than once and the
// flush happens exactly once, including when the wrapped phase fails.
type NodeLogger struct {
	name     string
	prefix   string
	interval time.Duration
	client   *tracking.Client

	cpu     *system.CPUSampler
	devices *system.DeviceSpecs

	mu      sync.Mutex
	samples []Sample

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// Start begins sampling. The record is written to
// <dir>/<name>_<prefix>_node.json on Stop.
func Start(dir, name, prefix string, interval time.Duration) (*NodeLogger, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s_node.json", name, prefix))
	client, err := tracking.NewClient(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open node log %s: %w", path, err)
	}

	l := &NodeLogger{
		name:     name,
		prefix:   prefix,
		interval: interval,
		client:   client,
		cpu:      &system.CPUSampler{},
		devices:  system.NewDeviceSpecs(),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go l.worker()
	return l, nil
}

func (l *NodeLogger) worker() {
	defer close(l.stopped)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sample()
		case <-l.stop:
			l.sample()
			l.flush()
			return
		}
	}
}

func (l *NodeLogger) sample() {
	cpu, err := l.cpu.Utilization()
	if err != nil {
		log.Debugf("cpu sample failed: %v", err)
	}

	s := Sample{
		Timestamp:    time.Now().UnixMilli(),
		CPUUtil:      cpu,
		MemoryUsedMB: system.MemoryUsedMB(),
		GPU:          l.devices.Utilization(),
	}

	l.mu.Lock()
	l.samples = append(l.samples, s)
	l.mu.Unlock()
}

func (l *NodeLogger) flush() {
	l.mu.Lock()
	samples := l.samples
	l.mu.Unlock()

	key := fmt.Sprintf("%s_%s_utilization", l.prefix, l.name)
	if err := l.client.LogTag(key, samples); err != nil {
		log.Warnf("failed to flush node log: %v", err)
	}
	l.devices.Shutdown()
}

// Stop halts sampling and flushes the record. It blocks until the sampling
// goroutine has exited.
func (l *NodeLogger) Stop() {
	l.once.Do(func() {
		close(l.stop)
	})
	<-l.stopped
}

// Samples returns the samples collected so far.
func (l *NodeLogger) Samples() []Sample {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Sample, len(l.samples))
	copy(out, l.samples)
	return out
}
