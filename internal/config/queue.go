package config

import "errors"

// Default URL queue settings.
const (
	// DefaultURLsFile is the default path of the queue snapshot file.
	DefaultURLsFile = "urls.json"

	// DefaultMaxAttempts is the default number of submission attempts
	// before a failing URL is marked permanently failed. Zero disables
	// the cap.
	DefaultMaxAttempts = 5
)

// QueueConfig holds the URL queue configuration.
type QueueConfig struct {
	// URLsFile is the path of the JSON snapshot file holding the queue.
	URLsFile string `yaml:"urls_file" mapstructure:"urls_file"`
	// MaxAttempts caps how many times a URL is attempted before being
	// marked permanently failed. Zero means unlimited attempts.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// Validate checks if the configuration is valid.
func (c *QueueConfig) Validate() error {
	if c.URLsFile == "" {
		return errors.New("urls_file must be specified")
	}
	if c.MaxAttempts < 0 {
		return errors.New("max_attempts must not be negative")
	}
	return nil
}

// NewQueueConfig creates a new queue configuration with default values.
func NewQueueConfig() *QueueConfig {
	return &QueueConfig{
		URLsFile:    DefaultURLsFile,
		MaxAttempts: DefaultMaxAttempts,
	}
}
