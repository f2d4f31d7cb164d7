// Package config provides configuration management for the Gridline prediction service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with defaults for every recognized
// hyperparameter, so a minimal config file is enough to train
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// Missing file: continue with defaults and environment variables

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GRIDLINE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gridline")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("training.test_fraction", 0.2)
	v.SetDefault("training.cv_folds", 5)
	v.SetDefault("training.artifact_dir", "./artifacts")
	v.SetDefault("training.position_count", 20)

	v.SetDefault("models.boosting.estimators", 200)
	v.SetDefault("models.boosting.learning_rate", 0.05)
	v.SetDefault("models.boosting.max_depth", 5)
	v.SetDefault("models.boosting.min_samples_leaf", 5)
	v.SetDefault("models.boosting.seed", 42)

	v.SetDefault("models.forest.estimators", 200)
	v.SetDefault("models.forest.max_depth", 12)
	v.SetDefault("models.forest.min_samples_leaf", 5)
	v.SetDefault("models.forest.feature_subset", 0.7)
	v.SetDefault("models.forest.seed", 42)

	v.SetDefault("models.linear.learning_rate", 0.0001)
	v.SetDefault("models.linear.regularization", 1.0)
	v.SetDefault("models.linear.max_iterations", 800)

	v.SetDefault("models.ranker.estimators", 500)
	v.SetDefault("models.ranker.learning_rate", 0.05)
	v.SetDefault("models.ranker.max_depth", 8)
	v.SetDefault("models.ranker.early_stopping", 50)
	v.SetDefault("models.ranker.val_fraction", 0.2)
	v.SetDefault("models.ranker.seed", 42)

	v.SetDefault("models.stacking.estimators", 200)
	v.SetDefault("models.stacking.learning_rate", 0.05)
	v.SetDefault("models.stacking.max_depth", 5)
	v.SetDefault("models.stacking.seed", 42)

	v.SetDefault("data_source.timeout_seconds", 30)
	v.SetDefault("data_source.max_retries", 5)
	v.SetDefault("data_source.rate_limit_per_sec", 10.0)
	v.SetDefault("data_source.cache_ttl_seconds", 300)
	v.SetDefault("data_source.circuit_breaker_max", 5)

	v.SetDefault("redis.ttl_seconds", 600)
}
