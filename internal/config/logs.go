package config

// DefaultResultDir is the default directory for per-day indexing result logs.
const DefaultResultDir = "logs"

// LogsConfig holds the per-day indexing result log configuration.
type LogsConfig struct {
	// ResultDir is the directory where daily indexing result logs are
	// written, one JSON line per submission attempt.
	ResultDir string `yaml:"result_dir" mapstructure:"result_dir"`
}

// NewLogsConfig creates a new logs configuration with default values.
func NewLogsConfig() *LogsConfig {
	return &LogsConfig{
		ResultDir: DefaultResultDir,
	}
}
