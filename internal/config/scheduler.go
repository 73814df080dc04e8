package config

import (
	"errors"
	"time"
)

// Default scheduler settings.
const (
	// DefaultInterval is the default pause between scheduled batches.
	DefaultInterval = 60 * time.Minute

	// DefaultBatchSize is the default number of URLs processed per batch.
	DefaultBatchSize = 10
)

// SchedulerConfig holds the batch scheduler configuration.
type SchedulerConfig struct {
	// Interval is the pause between scheduled batch runs.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	// BatchSize is the maximum number of URLs processed per batch.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	// RetryFailed includes previously failed URLs in each batch.
	RetryFailed bool `yaml:"retry_failed" mapstructure:"retry_failed"`
	// MinPriority filters batch selection to URLs at or above this
	// priority. Zero selects every eligible URL.
	MinPriority int `yaml:"min_priority" mapstructure:"min_priority"`
}

// Validate checks if the configuration is valid.
func (c *SchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch_size must be positive")
	}
	if c.MinPriority < 0 {
		return errors.New("min_priority must not be negative")
	}
	return nil
}

// NewSchedulerConfig creates a new scheduler configuration with default values.
func NewSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval:  DefaultInterval,
		BatchSize: DefaultBatchSize,
	}
}
