// Package config loads the service configuration from layered sources:
// built-in defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfigPaths are searched in order; the first existing file wins.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vodrec/config.yaml",
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Storage  StorageConfig  `koanf:"storage"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Model    ModelConfig    `koanf:"model"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `koanf:"port"`
}

// DatabaseConfig selects the upstream log database. Driver is "mysql" for
// the production source or "sqlite" for local files and tests.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// StorageConfig selects the downstream object sink. Backend is "gcs" or
// "local".
type StorageConfig struct {
	Backend    string `koanf:"backend"`
	Bucket     string `koanf:"bucket"`
	Dir        string `koanf:"dir"`
	ObjectName string `koanf:"object_name"`
}

// PipelineConfig controls one recommendation run.
type PipelineConfig struct {
	// HoldoutFraction of rated interactions reserved for evaluation.
	HoldoutFraction float64 `koanf:"holdout_fraction"`
	// Seed drives both the holdout split and model initialization.
	Seed int64 `koanf:"seed"`
	// TopN is the recommendation list length.
	TopN int `koanf:"top_n"`
	// TargetSubscriber is the subscriber the exported list is built for.
	TargetSubscriber int `koanf:"target_subscriber"`
	// RetryAttempts bounds per-stage retries; RetryDelay is the fixed wait
	// between them.
	RetryAttempts uint          `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
}

// ModelConfig holds the factorization hyperparameters.
type ModelConfig struct {
	Factors        int     `koanf:"factors"`
	Epochs         int     `koanf:"epochs"`
	LearningRate   float64 `koanf:"learning_rate"`
	Regularization float64 `koanf:"regularization"`
	InitStdDev     float64 `koanf:"init_std_dev"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "vodrec.db",
		},
		Storage: StorageConfig{
			Backend:    "local",
			Dir:        "data",
			ObjectName: "recommendation.json",
		},
		Pipeline: PipelineConfig{
			HoldoutFraction:  0.25,
			Seed:             0,
			TopN:             10,
			TargetSubscriber: 0,
			RetryAttempts:    5,
			RetryDelay:       10 * time.Minute,
		},
		Model: ModelConfig{
			Factors:        100,
			Epochs:         20,
			LearningRate:   0.005,
			Regularization: 0.02,
			InitStdDev:     0.1,
		},
	}
}

// Load builds the configuration with precedence env > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.HoldoutFraction < 0 || c.Pipeline.HoldoutFraction >= 1 {
		return fmt.Errorf("pipeline.holdout_fraction %g outside [0, 1)", c.Pipeline.HoldoutFraction)
	}
	if c.Pipeline.TopN <= 0 {
		return fmt.Errorf("pipeline.top_n must be positive, got %d", c.Pipeline.TopN)
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case "local":
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings pins each supported environment variable to its config path.
// Unknown variables are ignored so the ambient environment cannot leak into
// the configuration.
var envMappings = map[string]string{
	"port": "server.port",

	"db_driver": "database.driver",
	"db_dsn":    "database.dsn",

	"storage_backend": "storage.backend",
	"storage_bucket":  "storage.bucket",
	"storage_dir":     "storage.dir",
	"storage_object":  "storage.object_name",

	"holdout_fraction":  "pipeline.holdout_fraction",
	"seed":              "pipeline.seed",
	"top_n":             "pipeline.top_n",
	"target_subscriber": "pipeline.target_subscriber",
	"retry_attempts":    "pipeline.retry_attempts",
	"retry_delay":       "pipeline.retry_delay",

	"model_factors":        "model.factors",
	"model_epochs":         "model.epochs",
	"model_learning_rate":  "model.learning_rate",
	"model_regularization": "model.regularization",
	"model_init_std_dev":   "model.init_std_dev",
}

func envTransform(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
