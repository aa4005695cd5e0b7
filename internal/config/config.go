package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Queue backends
const (
	BackendRedis = "redis"
	BackendSQS   = "sqs"
)

// Queue service limits shared by both backends
const (
	MaxBatchSize       = 10
	MaxWaitTimeSeconds = 20
)

// Config holds all configuration for the conformal worker
type Config struct {
	// Worker configuration
	WorkerID string `env:"WORKER_ID" envDefault:"conformal-1"`

	// Queue configuration
	QueueBackend       string `env:"QUEUE_BACKEND" envDefault:"redis"`
	SourceQueue        string `env:"SOURCE_QUEUE" envDefault:"conformal.inbound"`
	SafeQueue          string `env:"SAFE_QUEUE" envDefault:"conformal.safe"`
	StandardQueue      string `env:"STANDARD_QUEUE" envDefault:"conformal.standard"`
	LowConfidenceQueue string `env:"LOW_CONFIDENCE_QUEUE" envDefault:"conformal.low_confidence"`
	ConsumerGroup      string `env:"CONSUMER_GROUP" envDefault:"conformal-workers"`

	// Redis configuration
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// AWS configuration (SQS backend and s3:// baselines)
	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL     string `env:"AWS_ENDPOINT_URL"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// Baseline configuration
	BaselineSource string `env:"BASELINE_SOURCE" envDefault:"file://baseline_log_likelihoods.json"`
	BaselineFormat string `env:"BASELINE_FORMAT" envDefault:"auto"`
	BaselineColumn string `env:"BASELINE_COLUMN" envDefault:"log_likelihood"`

	// Routing thresholds
	ConfidenceHigh float64 `env:"CONFIDENCE_HIGH" envDefault:"0.99"`
	ConfidenceLow  float64 `env:"CONFIDENCE_LOW" envDefault:"0.95"`

	// Annotation templates (handlebars)
	AnnotationStandard      string `env:"ANNOTATION_STANDARD" envDefault:" Note: this message achieved a confidence interval of {{confidence_low_pct}}% via conformal prediction; meaning there is still a {{error_odds}} chance of error."`
	AnnotationLowConfidence string `env:"ANNOTATION_LOW_CONFIDENCE" envDefault:" Warning: this message achieved a confidence interval of below {{confidence_low_pct}}% using conformal prediction; meaning there is a greater than {{error_odds}} chance of error. Use this output with caution."`

	// Retry configuration
	RetryCount     int           `env:"RETRY_COUNT" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`

	// Loop configuration
	MaxRuntimeSeconds        int `env:"MAX_RUNTIME_SECONDS" envDefault:"600"`
	VisibilityTimeoutSeconds int `env:"VISIBILITY_TIMEOUT_SECONDS" envDefault:"60"`
	WaitTimeSeconds          int `env:"WAIT_TIME_SECONDS" envDefault:"20"`
	BatchSize                int `env:"BATCH_SIZE" envDefault:"10"`

	// Scoring capability configuration
	ScorerBaseURL string        `env:"SCORER_BASE_URL" envDefault:"http://localhost:8000/v1"`
	ScorerAPIKey  string        `env:"SCORER_API_KEY"`
	ScorerModel   string        `env:"SCORER_MODEL" envDefault:"gpt2"`
	ScorerTimeout time.Duration `env:"SCORER_TIMEOUT" envDefault:"30s"`

	// Health check configuration (0 disables the server)
	HealthPort int `env:"HEALTH_PORT" envDefault:"8082"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	switch c.QueueBackend {
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}
		if c.ConsumerGroup == "" {
			return fmt.Errorf("CONSUMER_GROUP is required")
		}
	case BackendSQS:
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required")
		}
	default:
		return fmt.Errorf("QUEUE_BACKEND must be one of: redis, sqs")
	}

	queues := map[string]string{
		"SOURCE_QUEUE":         c.SourceQueue,
		"SAFE_QUEUE":           c.SafeQueue,
		"STANDARD_QUEUE":       c.StandardQueue,
		"LOW_CONFIDENCE_QUEUE": c.LowConfidenceQueue,
	}
	for name, value := range queues {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if c.BaselineSource == "" {
		return fmt.Errorf("BASELINE_SOURCE is required")
	}

	if !isOneOf(c.BaselineFormat, "auto", "json", "text", "parquet") {
		return fmt.Errorf("BASELINE_FORMAT must be one of: auto, json, text, parquet")
	}

	if c.ConfidenceLow < 0 || c.ConfidenceHigh > 1 || c.ConfidenceLow > c.ConfidenceHigh {
		return fmt.Errorf("thresholds must satisfy 0 <= CONFIDENCE_LOW <= CONFIDENCE_HIGH <= 1")
	}

	if c.RetryCount < 0 {
		return fmt.Errorf("RETRY_COUNT must be non-negative")
	}

	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("RETRY_BASE_DELAY must be positive")
	}

	if c.MaxRuntimeSeconds <= 0 {
		return fmt.Errorf("MAX_RUNTIME_SECONDS must be positive")
	}

	if c.VisibilityTimeoutSeconds < 0 {
		return fmt.Errorf("VISIBILITY_TIMEOUT_SECONDS must be non-negative")
	}

	if c.WaitTimeSeconds < 0 || c.WaitTimeSeconds > MaxWaitTimeSeconds {
		return fmt.Errorf("WAIT_TIME_SECONDS must be between 0 and %d", MaxWaitTimeSeconds)
	}

	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("BATCH_SIZE must be between 1 and %d", MaxBatchSize)
	}

	if c.ScorerModel == "" {
		return fmt.Errorf("SCORER_MODEL is required")
	}

	if c.ScorerTimeout <= 0 {
		return fmt.Errorf("SCORER_TIMEOUT must be positive")
	}

	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT must be between 0 and 65535")
	}

	if !isOneOf(c.LogLevel, "debug", "info", "warn", "error") {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

func isOneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// MaxRuntime returns the wall-clock budget of one run
func (c *Config) MaxRuntime() time.Duration {
	return time.Duration(c.MaxRuntimeSeconds) * time.Second
}

// VisibilityTimeout returns the lease window requested on receive
func (c *Config) VisibilityTimeout() time.Duration {
	return time.Duration(c.VisibilityTimeoutSeconds) * time.Second
}

// WaitTime returns the long-poll interval requested on receive
func (c *Config) WaitTime() time.Duration {
	return time.Duration(c.WaitTimeSeconds) * time.Second
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerID=%s, QueueBackend=%s, SourceQueue=%s, TargetQueues=[%s], "+
			"BaselineSource=%s, ConfidenceHigh=%g, ConfidenceLow=%g, RetryCount=%d, "+
			"MaxRuntimeSeconds=%d, BatchSize=%d, ScorerModel=%s, HealthPort=%d, LogLevel=%s}",
		c.WorkerID,
		c.QueueBackend,
		c.SourceQueue,
		strings.Join([]string{c.SafeQueue, c.StandardQueue, c.LowConfidenceQueue}, ","),
		c.BaselineSource,
		c.ConfidenceHigh,
		c.ConfidenceLow,
		c.RetryCount,
		c.MaxRuntimeSeconds,
		c.BatchSize,
		c.ScorerModel,
		c.HealthPort,
		c.LogLevel,
	)
}
