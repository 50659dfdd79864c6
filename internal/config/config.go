package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/imishinist/scibench/internal/params"
)

// Valid configuration values
var validExecModes = map[string]bool{
	"train":         true,
	"predict":       true,
	"train,predict": true,
}

type Config struct {
	DataDir      string
	ModelDir     string
	ExecMode     string
	BatchSize    int
	LearningRate float64
	Epochs       int
	Verbosity    int
	LogBatch     bool
	LRWarmup     int
	LogInterval  time.Duration
	Replicas     int

	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string
}

func New() *Config {
	return &Config{
		DataDir:         viper.GetString("data_dir"),
		ModelDir:        viper.GetString("model_dir"),
		ExecMode:        viper.GetString("exec_mode"),
		BatchSize:       viper.GetInt("batch_size"),
		LearningRate:    viper.GetFloat64("learning_rate"),
		Epochs:          viper.GetInt("epochs"),
		Verbosity:       viper.GetInt("verbosity"),
		LogBatch:        viper.GetBool("log_batch"),
		LRWarmup:        viper.GetInt("lr_warmup"),
		LogInterval:     viper.GetDuration("log_interval"),
		Replicas:        viper.GetInt("replicas"),
		TrackingURI:     viper.GetString("tracking_uri"),
		ExperimentID:    viper.GetString("experiment_id"),
		DatabricksHost:  viper.GetString("databricks_host"),
		DatabricksToken: viper.GetString("databricks_token"),
	}
}

func (c *Config) Validate() error {
	if c.ModelDir == "" {
		return fmt.Errorf("model directory is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	if !validExecModes[c.ExecMode] {
		return fmt.Errorf("invalid exec mode: %s (valid: train, predict, train,predict)", c.ExecMode)
	}

	if c.Replicas < 1 {
		return fmt.Errorf("replicas must be at least 1, got %d", c.Replicas)
	}

	if c.TrackingURI != "" && c.ExperimentID == "" {
		return fmt.Errorf("experiment ID is required when a tracking URI is set")
	}

	return nil
}

// ExecModes splits the exec mode value into the requested phases.
func (c *Config) ExecModes() []string {
	return strings.Split(c.ExecMode, ",")
}

// RunParams assembles the run parameter set from the configuration.
func (c *Config) RunParams() params.RunParams {
	return params.RunParams{
		BatchSize:    c.BatchSize,
		LearningRate: c.LearningRate,
		Epochs:       c.Epochs,
		ExecMode:     c.ExecModes(),
		DataDir:      c.DataDir,
		ModelDir:     c.ModelDir,
		Verbosity:    c.Verbosity,
		LogBatch:     c.LogBatch,
		LRWarmup:     c.LRWarmup,
	}
}

// MirrorConfig extracts the MLflow mirror settings.
func (c *Config) MirrorEnabled() bool { return c.TrackingURI != "" }
