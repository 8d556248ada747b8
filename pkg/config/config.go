package config

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// Duration unmarshals from either a JSON number (nanoseconds) or a
// time.ParseDuration string.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return errors.New("invalid duration")
	}
}

type Config struct {
	Address         string   `json:"address"`
	ArtifactRoot    string   `json:"artifact_root"`
	LogLevel        string   `json:"log_level"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
	StoreURL        string   `json:"store_url"`
	Version         string   `json:"version"`

	// Retraining trigger defaults; individual runs may override them.
	BaselineAccuracy  float64  `json:"baseline_accuracy"`
	MinPredictions    int      `json:"min_predictions"`
	AccuracyThreshold float64  `json:"accuracy_threshold"`
	PValueThreshold   float64  `json:"p_value_threshold"`
	EvaluationWindow  Duration `json:"evaluation_window"`

	// External collaborator commands and data references.
	TrainerCommand   []string `json:"trainer_command"`
	EvaluatorCommand []string `json:"evaluator_command"`
	DatasetReference string   `json:"dataset_reference"`
	TestSetReference string   `json:"test_set_reference"`
}

func Default() *Config {
	return &Config{
		Address:           "localhost:5500",
		ArtifactRoot:      "./artifacts",
		LogLevel:          "info",
		ShutdownTimeout:   Duration{Duration: time.Minute},
		StoreURL:          "sqlite:modelplane.db",
		Version:           "dev",
		BaselineAccuracy:  0.85,
		MinPredictions:    100,
		AccuracyThreshold: 0.05,
		PValueThreshold:   0.05,
		EvaluationWindow:  Duration{Duration: 90 * 24 * time.Hour},
	}
}

// Load reads a JSON config file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
