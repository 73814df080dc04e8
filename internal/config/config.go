// Package config provides configuration management for the goindexer
// application. It handles loading, validation, and access to configuration
// values from YAML files, environment variables, and command-line flags
// through viper.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Interface defines the interface for configuration management.
type Interface interface {
	// GetAppConfig returns the application configuration.
	GetAppConfig() *AppConfig
	// GetIndexerConfig returns the indexing API configuration.
	GetIndexerConfig() *IndexerConfig
	// GetQueueConfig returns the URL queue configuration.
	GetQueueConfig() *QueueConfig
	// GetSchedulerConfig returns the scheduler configuration.
	GetSchedulerConfig() *SchedulerConfig
	// GetLogsConfig returns the result log configuration.
	GetLogsConfig() *LogsConfig
	// Validate validates the configuration.
	Validate() error
}

// Ensure Config implements Interface
var _ Interface = (*Config)(nil)

// Config represents the application configuration.
type Config struct {
	// App holds application-specific configuration
	App *AppConfig `yaml:"app" mapstructure:"app"`
	// Indexer holds indexing API configuration
	Indexer *IndexerConfig `yaml:"indexer" mapstructure:"indexer"`
	// Queue holds URL queue configuration
	Queue *QueueConfig `yaml:"queue" mapstructure:"queue"`
	// Scheduler holds scheduler configuration
	Scheduler *SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	// Logs holds result log configuration
	Logs *LogsConfig `yaml:"logs" mapstructure:"logs"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Indexer.Validate(); err != nil {
		return fmt.Errorf("indexer: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

// Load builds the configuration from the current viper state. Defaults
// registered through viper.SetDefault are decoded first, then overridden
// by config file values, environment variables, and bound flags.
func Load() (*Config, error) {
	cfg := New()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if decodeErr := decoder.Decode(viper.AllSettings()); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", decodeErr)
	}

	setDefaults(cfg)

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return cfg, nil
}

// New creates a new Config with all sections initialized to defaults.
func New() *Config {
	return &Config{
		App:       NewAppConfig(),
		Indexer:   NewIndexerConfig(),
		Queue:     NewQueueConfig(),
		Scheduler: NewSchedulerConfig(),
		Logs:      NewLogsConfig(),
	}
}

// setDefaults fills any section left nil by decoding.
func setDefaults(cfg *Config) {
	if cfg.App == nil {
		cfg.App = NewAppConfig()
	}
	if cfg.Indexer == nil {
		cfg.Indexer = NewIndexerConfig()
	}
	if cfg.Queue == nil {
		cfg.Queue = NewQueueConfig()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewSchedulerConfig()
	}
	if cfg.Logs == nil {
		cfg.Logs = NewLogsConfig()
	}
}

// GetAppConfig returns the application configuration.
func (c *Config) GetAppConfig() *AppConfig {
	return c.App
}

// GetIndexerConfig returns the indexing API configuration.
func (c *Config) GetIndexerConfig() *IndexerConfig {
	return c.Indexer
}

// GetQueueConfig returns the URL queue configuration.
func (c *Config) GetQueueConfig() *QueueConfig {
	return c.Queue
}

// GetSchedulerConfig returns the scheduler configuration.
func (c *Config) GetSchedulerConfig() *SchedulerConfig {
	return c.Scheduler
}

// GetLogsConfig returns the result log configuration.
func (c *Config) GetLogsConfig() *LogsConfig {
	if c.Logs == nil {
		return NewLogsConfig()
	}
	return c.Logs
}
