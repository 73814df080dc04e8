package config

import (
	"errors"
	"fmt"
)

// AppConfig represents application-specific configuration settings.
type AppConfig struct {
	// Name is the name of the application
	Name string `yaml:"name" mapstructure:"name"`
	// Version is the version of the application
	Version string `yaml:"version" mapstructure:"version"`
	// Environment is the application environment (development, staging, production)
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Debug indicates whether debug mode is enabled
	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// Validate checks if the configuration is valid.
func (c *AppConfig) Validate() error {
	if c.Environment == "" {
		return errors.New("environment must be specified")
	}

	switch c.Environment {
	case "development", "staging", "production":
		// Valid environment
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.Name == "" {
		return errors.New("application name must be specified")
	}

	return nil
}

// NewAppConfig creates a new application configuration with default values.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Name:        "goindexer",
		Version:     "0.1.0",
		Environment: "development",
		Debug:       false,
	}
}
