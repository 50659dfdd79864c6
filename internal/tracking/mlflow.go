package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/ml"
)

// MirrorConfig configures the optional MLflow mirror. An empty TrackingURI
// disables mirroring entirely; the local JSON store stays authoritative
// either way.
type MirrorConfig struct {
	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string
}

// Enabled reports whether a tracking server was configured.
func (c MirrorConfig) Enabled() bool { return c.TrackingURI != "" }

var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

// isDatabricks checks whether the tracking URI points to Databricks rather
// than a plain MLflow server.
func (c MirrorConfig) isDatabricks() bool {
	if c.TrackingURI == "databricks" || strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}
	if strings.HasPrefix(c.TrackingURI, "https://") {
		host := strings.TrimPrefix(c.TrackingURI, "https://")
		if idx := strings.Index(host, "/"); idx != -1 {
			host = host[:idx]
		}
		for _, domain := range databricksDomains {
			if strings.HasSuffix(host, domain) {
				return true
			}
		}
	}
	return false
}

// profile extracts the profile name from a databricks://{profile} URI.
func (c MirrorConfig) profile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}
	p := strings.TrimPrefix(c.TrackingURI, "databricks://")
	if idx := strings.Index(p, "/"); idx != -1 {
		p = p[:idx]
	}
	return p
}

// Mirror publishes a run's parameters and metrics to an MLflow tracking
// server. Only the coordinator should hold a Mirror; mirror failures are
// reported to the caller but must never abort a benchmark run.
type Mirror struct {
	client       *databricks.WorkspaceClient
	experimentID string
	runID        string
}

// NewMirror builds an MLflow client for the configured tracking URI.
func NewMirror(cfg MirrorConfig) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("tracking URI is required")
	}
	if cfg.ExperimentID == "" {
		return nil, fmt.Errorf("experiment ID is required when mirroring is enabled")
	}

	var dbCfg *databricks.Config
	if cfg.isDatabricks() {
		dbCfg = &databricks.Config{}
		if cfg.TrackingURI == "databricks" {
			if cfg.DatabricksHost != "" {
				dbCfg.Host = cfg.DatabricksHost
			}
		} else if p := cfg.profile(); p != "" {
			dbCfg.Profile = p
		} else {
			dbCfg.Host = cfg.TrackingURI
		}
		if cfg.DatabricksToken != "" {
			dbCfg.Token = cfg.DatabricksToken
		}
		if dbCfg.Host == "" && dbCfg.Profile == "" {
			return nil, fmt.Errorf("Databricks host or profile is required when mirroring to Databricks")
		}
	} else {
		dbCfg = &databricks.Config{
			Host: cfg.TrackingURI,
			// Plain MLflow servers ignore authentication; the SDK still
			// requires a token to be present.
			Token: "unused-token-for-plain-mlflow",
		}
	}

	client, err := databricks.NewWorkspaceClient(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}
	return &Mirror{client: client, experimentID: cfg.ExperimentID}, nil
}

// StartRun creates the remote run. The run name carries the benchmark name
// and a timestamp so mirrored runs sort the same way as local run
// directories.
func (m *Mirror) StartRun(ctx context.Context, benchmarkName string, tags map[string]string) error {
	runName := benchmarkName + "-" + time.Now().Format("2006-01-02-1504")

	runTags := make([]ml.RunTag, 0, len(tags)+1)
	for k, v := range tags {
		runTags = append(runTags, ml.RunTag{Key: k, Value: v})
	}
	runTags = append(runTags, ml.RunTag{Key: "mlflow.runName", Value: runName})

	resp, err := m.client.Experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: m.experimentID,
		RunName:      runName,
		StartTime:    time.Now().UnixMilli(),
		Tags:         runTags,
	})
	if err != nil {
		return fmt.Errorf("failed to create mirrored run: %w", err)
	}
	m.runID = resp.Run.Info.RunId
	return nil
}

// LogParams mirrors the run's parameter mapping.
func (m *Mirror) LogParams(ctx context.Context, params map[string]string) error {
	for k, v := range params {
		err := m.client.Experiments.LogParam(ctx, ml.LogParam{
			RunId: m.runID,
			Key:   k,
			Value: v,
		})
		if err != nil {
			return fmt.Errorf("failed to mirror parameter %s: %w", k, err)
		}
	}
	return nil
}

// LogMetric mirrors a single metric observation.
func (m *Mirror) LogMetric(ctx context.Context, key string, value float64, step int) error {
	err := m.client.Experiments.LogMetric(ctx, ml.LogMetric{
		RunId:     m.runID,
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
		Step:      int64(step),
	})
	if err != nil {
		return fmt.Errorf("failed to mirror metric %s: %w", key, err)
	}
	return nil
}

// EndRun marks the mirrored run finished or failed.
func (m *Mirror) EndRun(ctx context.Context, failed bool) error {
	status := ml.UpdateRunStatusFinished
	if failed {
		status = ml.UpdateRunStatusFailed
	}
	_, err := m.client.Experiments.UpdateRun(ctx, ml.UpdateRun{
		RunId:   m.runID,
		Status:  status,
		EndTime: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to end mirrored run: %w", err)
	}
	return nil
}
