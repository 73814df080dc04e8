// Package cmd implements the command-line interface for goindexer.
// It provides the root command and subcommands for managing URL
// submissions to the search indexing API.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joho/godotenv"
	"github.com/jonesrussell/goindexer/cmd/key"
	"github.com/jonesrussell/goindexer/cmd/run"
	"github.com/jonesrussell/goindexer/cmd/url"
	"github.com/jonesrussell/goindexer/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	// apiKeysDir overrides the configured API keys directory.
	apiKeysDir string

	// urlsFile overrides the configured queue snapshot path.
	urlsFile string

	// rootCmd represents the root command for the goindexer CLI.
	rootCmd = &cobra.Command{
		Use:   "goindexer",
		Short: "Submit URLs to the search indexing API",
		Long: `A tool that submits website URLs to the search indexing API,
rotating across multiple service account keys and retrying failed
submissions on a schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	// Parse flags early to get debug flag before creating logger
	_ = rootCmd.ParseFlags(os.Args[1:])

	// Initialize configuration
	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	// Execute the root command with a fresh context
	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(
		&apiKeysDir,
		"api-keys-dir",
		"",
		"directory containing service account key files (overrides indexer.api_keys_dir)",
	)
	rootCmd.PersistentFlags().StringVar(
		&urlsFile,
		"urls-file",
		"",
		"path of the URL queue snapshot file (overrides queue.urls_file)",
	)

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("goindexer version %s\n", "0.1.0") // TODO: Get from build info
		},
	})

	// Add subcommands
	rootCmd.AddCommand(key.Command())
	rootCmd.AddCommand(url.Command())
	rootCmd.AddCommand(run.Command())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	// Set config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Load .env file first, before setting defaults and reading config.
	// This may run twice (once in Execute(), once here), but
	// godotenv.Load() is idempotent and won't overwrite existing
	// environment variables.
	if err := godotenv.Load(); err != nil {
		// .env file not found, that's ok - we'll use environment variables
		fmt.Fprintf(os.Stderr, "Warning: .env file not found: %v\n", err)
	}

	// Enable automatic environment variable reading BEFORE setting defaults
	// This ensures environment variables take precedence over defaults
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults (only used if environment variables or config file don't provide values)
	setDefaults()

	// Read config file
	// Note: Config file is optional - if not found, we'll use defaults and environment variables
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, that's ok - we'll use defaults
		fmt.Fprintf(os.Stderr, "Warning: Config file not found: %v (using defaults and environment variables)\n", err)
	}

	// Bind command-line flags to Viper
	if err := bindCommandLineFlags(); err != nil {
		return err
	}

	// Map environment variables to config keys
	if err := bindAppEnvVars(); err != nil {
		return err
	}

	// Bind indexer environment variables
	if err := bindIndexerEnvVars(); err != nil {
		return err
	}

	// Set development logging settings
	setupDevelopmentLogging()

	return nil
}

// bindCommandLineFlags binds command-line flags to Viper.
func bindCommandLineFlags() error {
	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("failed to bind config flag: %w", err)
	}

	if err := viper.BindPFlag("indexer.api_keys_dir", rootCmd.PersistentFlags().Lookup("api-keys-dir")); err != nil {
		return fmt.Errorf("failed to bind api-keys-dir flag: %w", err)
	}
	if err := viper.BindPFlag("queue.urls_file", rootCmd.PersistentFlags().Lookup("urls-file")); err != nil {
		return fmt.Errorf("failed to bind urls-file flag: %w", err)
	}
	return nil
}

// bindAppEnvVars binds application and logger environment variables to config keys.
func bindAppEnvVars() error {
	if err := viper.BindEnv("app.environment", "APP_ENV"); err != nil {
		return fmt.Errorf("failed to bind APP_ENV: %w", err)
	}
	if err := viper.BindEnv("app.debug", "APP_DEBUG"); err != nil {
		return fmt.Errorf("failed to bind APP_DEBUG: %w", err)
	}
	if err := viper.BindEnv("logger.level", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind LOG_LEVEL: %w", err)
	}
	if err := viper.BindEnv("logger.encoding", "LOG_FORMAT"); err != nil {
		return fmt.Errorf("failed to bind LOG_FORMAT: %w", err)
	}
	return nil
}

// bindIndexerEnvVars binds indexing environment variables to config keys.
func bindIndexerEnvVars() error {
	// Short aliases next to the INDEXER_/QUEUE_ names AutomaticEnv
	// already resolves through the key replacer
	if err := viper.BindEnv("indexer.api_keys_dir", "API_KEYS_DIR", "INDEXER_API_KEYS_DIR"); err != nil {
		return fmt.Errorf("failed to bind API keys dir: %w", err)
	}
	if err := viper.BindEnv("queue.urls_file", "URLS_FILE", "QUEUE_URLS_FILE"); err != nil {
		return fmt.Errorf("failed to bind URLs file: %w", err)
	}
	if err := viper.BindEnv("indexer.endpoint", "INDEXER_ENDPOINT"); err != nil {
		return fmt.Errorf("failed to bind indexer endpoint: %w", err)
	}
	if err := viper.BindEnv("indexer.token_url", "INDEXER_TOKEN_URL"); err != nil {
		return fmt.Errorf("failed to bind indexer token URL: %w", err)
	}
	return nil
}

// setupDevelopmentLogging configures development logging settings based on environment and debug flag.
func setupDevelopmentLogging() {
	// Check both the flag variable and Viper to ensure we catch the debug flag
	// Note: Debug variable is set by ParseFlags(), and we bind it to Viper above
	debugFlag := Debug || viper.GetBool("app.debug")
	isDev := viper.GetString("app.environment") == "development"

	// Only set debug level if explicitly requested via flag or APP_DEBUG
	if debugFlag {
		viper.Set("logger.level", "debug")
	}

	// Development gets console formatting; the log level still only
	// changes when explicitly requested
	if isDev {
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}

	// Synchronize global Debug variable with Viper's value
	Debug = debugFlag
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults - production safe
	viper.SetDefault("app", map[string]any{
		"name":        "goindexer",
		"version":     "0.1.0",
		"environment": "production",
		"debug":       false,
	})

	// Logger defaults - production safe
	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	// Indexing API defaults
	viper.SetDefault("indexer", map[string]any{
		"api_keys_dir":      config.DefaultAPIKeysDir,
		"endpoint":          config.DefaultPublishEndpoint,
		"metadata_endpoint": config.DefaultMetadataEndpoint,
		"token_url":         config.DefaultTokenURL,
		"scope":             config.DefaultScope,
		"request_timeout":   config.DefaultRequestTimeout.String(),
		"submission_delay":  config.DefaultSubmissionDelay.String(),
	})

	// Queue defaults
	viper.SetDefault("queue", map[string]any{
		"urls_file":    config.DefaultURLsFile,
		"max_attempts": config.DefaultMaxAttempts,
	})

	// Scheduler defaults
	viper.SetDefault("scheduler", map[string]any{
		"interval":     config.DefaultInterval.String(),
		"batch_size":   config.DefaultBatchSize,
		"retry_failed": false,
		"min_priority": 0,
	})

	// Result log defaults
	viper.SetDefault("logs", map[string]any{
		"result_dir": config.DefaultResultDir,
	})
}
