package train

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// CSVLogger appends one row per epoch to a CSV file: an epoch column
// followed by metric columns. The column set is fixed by the first epoch.
type CSVLogger struct {
	CallbackBase
	path string

	file   *os.File
	writer *csv.Writer
	keys   []string
}

func NewCSVLogger(path string) *CSVLogger {
	return &CSVLogger{path: path}
}

func (c *CSVLogger) OnEpochEnd(epoch int, logs map[string]float64) error {
	if c.file == nil {
		if err := c.open(logs); err != nil {
			return err
		}
	}

	row := make([]string, 0, len(c.keys)+1)
	row = append(row, strconv.Itoa(epoch))
	for _, k := range c.keys {
		row = append(row, strconv.FormatFloat(logs[k], 'g', -1, 64))
	}
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

func (c *CSVLogger) open(logs map[string]float64) error {
	keys := make([]string, 0, len(logs))
	for k := range logs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	c.keys = keys

	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("failed to create csv log %s: %w", c.path, err)
	}
	c.file = f
	c.writer = csv.NewWriter(f)

	header := append([]string{"epoch"}, keys...)
	if err := c.writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	return nil
}

func (c *CSVLogger) OnTrainEnd() error {
	if c.file == nil {
		return nil
	}
	c.writer.Flush()
	err := c.writer.Error()
	if cerr := c.file.Close(); err == nil {
		err = cerr
	}
	c.file = nil
	return err
}
