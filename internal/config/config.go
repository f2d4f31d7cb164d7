// Package config provides configuration management for the Gridline prediction service.
package config

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	DataSource DataSourceConfig `mapstructure:"data_source" validate:"required"`
	Training   TrainingConfig   `mapstructure:"training" validate:"required"`
	Models     ModelsConfig     `mapstructure:"models" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// RedisConfig represents the optional prediction cache configuration
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address" validate:"required_if=Enabled true"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db" validate:"gte=0"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"omitempty,gt=0"`
}

// DataSourceConfig represents the timing data provider configuration
type DataSourceConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimitPerSec   float64 `mapstructure:"rate_limit_per_sec" validate:"required,gt=0"`
	CacheTTLSeconds   int     `mapstructure:"cache_ttl_seconds" validate:"omitempty,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"omitempty,gt=0"`
}

// TrainingConfig represents the training pipeline configuration
type TrainingConfig struct {
	Seasons        []int   `mapstructure:"seasons" validate:"required,min=1"`
	TestFraction   float64 `mapstructure:"test_fraction" validate:"required,gt=0,lt=1"`
	CVFolds        int     `mapstructure:"cv_folds" validate:"required,gt=1"`
	ArtifactDir    string  `mapstructure:"artifact_dir" validate:"required"`
	PositionCount  int     `mapstructure:"position_count" validate:"required,gt=1"`
	MinSpearman    float64 `mapstructure:"min_spearman" validate:"gte=-1,lte=1"`
	PersistMetrics bool    `mapstructure:"persist_metrics"`
}

// ModelsConfig enumerates every recognized hyperparameter with its default.
// There is deliberately no pass-through parameter map: an unrecognized
// hyperparameter is a config error, not a silent no-op.
type ModelsConfig struct {
	Boosting GradientBoostingConfig `mapstructure:"boosting" validate:"required"`
	Forest   RandomForestConfig     `mapstructure:"forest" validate:"required"`
	Linear   LinearModelConfig      `mapstructure:"linear" validate:"required"`
	Ranker   RankerConfig           `mapstructure:"ranker" validate:"required"`
	Stacking StackingConfig         `mapstructure:"stacking" validate:"required"`
}

// GradientBoostingConfig holds hyperparameters for the boosted-tree regressor
type GradientBoostingConfig struct {
	Estimators     int     `mapstructure:"estimators" validate:"required,gt=0"`
	LearningRate   float64 `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	MaxDepth       int     `mapstructure:"max_depth" validate:"required,gt=0"`
	MinSamplesLeaf int     `mapstructure:"min_samples_leaf" validate:"required,gt=0"`
	Seed           int64   `mapstructure:"seed"`
}

// RandomForestConfig holds hyperparameters for the bagged-tree regressor
type RandomForestConfig struct {
	Estimators     int     `mapstructure:"estimators" validate:"required,gt=0"`
	MaxDepth       int     `mapstructure:"max_depth" validate:"required,gt=0"`
	MinSamplesLeaf int     `mapstructure:"min_samples_leaf" validate:"required,gt=0"`
	FeatureSubset  float64 `mapstructure:"feature_subset" validate:"required,gt=0,lte=1"`
	Seed           int64   `mapstructure:"seed"`
}

// LinearModelConfig holds hyperparameters for the regularized linear regressor
type LinearModelConfig struct {
	LearningRate   float64 `mapstructure:"learning_rate" validate:"required,gt=0"`
	Regularization float64 `mapstructure:"regularization" validate:"gte=0"`
	MaxIterations  int     `mapstructure:"max_iterations" validate:"required,gt=0"`
}

// RankerConfig holds hyperparameters for the race-grouped ranking learner
type RankerConfig struct {
	Estimators    int     `mapstructure:"estimators" validate:"required,gt=0"`
	LearningRate  float64 `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	MaxDepth      int     `mapstructure:"max_depth" validate:"required,gt=0"`
	EarlyStopping int     `mapstructure:"early_stopping" validate:"required,gt=0"`
	ValFraction   float64 `mapstructure:"val_fraction" validate:"required,gt=0,lt=1"`
	Seed          int64   `mapstructure:"seed"`
}

// StackingConfig holds hyperparameters for the meta-learner
type StackingConfig struct {
	Estimators   int     `mapstructure:"estimators" validate:"required,gt=0"`
	LearningRate float64 `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	MaxDepth     int     `mapstructure:"max_depth" validate:"required,gt=0"`
	Seed         int64   `mapstructure:"seed"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// SchedulerConfig represents the periodic retraining schedule
type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	RetrainCron string `mapstructure:"retrain_cron" validate:"required_if=Enabled true"`
	SyncCron    string `mapstructure:"sync_cron"`
}
