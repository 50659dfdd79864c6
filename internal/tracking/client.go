package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RecordType discriminates the three kinds of tracked values.
type RecordType string

const (
	RecordParam  RecordType = "param"
	RecordMetric RecordType = "metric"
	RecordTag    RecordType = "tag"
)

// Record is one append-only entry in a run's store.
type Record struct {
	Type      RecordType  `json:"type"`
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	Step      int         `json:"step,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type store struct {
	Records []Record `json:"records"`
}

// Client is an append-only key/value recorder persisting parameters, tags,
// and metrics to a single JSON file. Every log call rewrites the file
// atomically so a partially written store is never observed.
type Client struct {
	path string

	mu      sync.Mutex
	records []Record
}

// NewClient opens the store at path, loading existing records so a file
// can be appended to across process restarts.
func NewClient(path string) (*Client, error) {
	c := &Client{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tracking store %s: %w", path, err)
	}

	var s store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse tracking store %s: %w", path, err)
	}
	c.records = s.Records
	return c, nil
}

// Path returns the store's file path.
func (c *Client) Path() string { return c.path }

// LogParam records a configuration value.
func (c *Client) LogParam(key string, value interface{}) error {
	return c.append(Record{Type: RecordParam, Key: key, Value: value})
}

// LogMetric records a numeric observation at a step.
func (c *Client) LogMetric(key string, value float64, step int) error {
	return c.append(Record{Type: RecordMetric, Key: key, Value: value, Step: step})
}

// LogTag records an arbitrary annotation.
func (c *Client) LogTag(key string, value interface{}) error {
	return c.append(Record{Type: RecordTag, Key: key, Value: value})
}

func (c *Client) append(r Record) error {
	r.Timestamp = time.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
	return c.flush()
}

// flush rewrites the store via a temp file and rename. Caller holds mu.
func (c *Client) flush() error {
	data, err := json.MarshalIndent(store{Records: c.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tracking store: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create tracking directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tracking store: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace tracking store: %w", err)
	}
	return nil
}

// Params returns the latest value logged for each parameter key.
func (c *Client) Params() map[string]interface{} {
	return c.latestByKey(RecordParam)
}

// Tags returns the latest value logged for each tag key.
func (c *Client) Tags() map[string]interface{} {
	return c.latestByKey(RecordTag)
}

func (c *Client) latestByKey(t RecordType) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]interface{})
	for _, r := range c.records {
		if r.Type == t {
			out[r.Key] = r.Value
		}
	}
	return out
}

// MetricRecords returns every metric observation in log order, across all
// keys.
func (c *Client) MetricRecords() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Record
	for _, r := range c.records {
		if r.Type == RecordMetric {
			out = append(out, r)
		}
	}
	return out
}

// Metrics returns, in log order, every observation of the given metric.
func (c *Client) Metrics(key string) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Record
	for _, r := range c.records {
		if r.Type == RecordMetric && r.Key == key {
			out = append(out, r)
		}
	}
	return out
}
