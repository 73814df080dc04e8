package config

import (
	"errors"
	"time"
)

// Default indexing API settings. The endpoints default to the Google
// Indexing API v3, the service the tool was built against; both can be
// overridden for other providers or for testing.
const (
	// DefaultAPIKeysDir is the default directory scanned for service
	// account key files.
	DefaultAPIKeysDir = "api_keys"

	// DefaultPublishEndpoint is the URL notification publish endpoint.
	DefaultPublishEndpoint = "https://indexing.googleapis.com/v3/urlNotifications:publish"

	// DefaultMetadataEndpoint is the notification metadata lookup endpoint.
	DefaultMetadataEndpoint = "https://indexing.googleapis.com/v3/urlNotifications/metadata"

	// DefaultTokenURL is the OAuth 2.0 token endpoint used to exchange
	// service account assertions for bearer tokens. Individual key files
	// may carry their own token_uri, which takes precedence.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// DefaultScope is the OAuth scope requested for indexing submissions.
	DefaultScope = "https://www.googleapis.com/auth/indexing"

	// DefaultRequestTimeout bounds each outbound API request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultSubmissionDelay is the pause between successive URL
	// submissions, keeping the tool under the API's rate limits.
	DefaultSubmissionDelay = 1 * time.Second
)

// IndexerConfig holds the indexing API client configuration.
type IndexerConfig struct {
	// APIKeysDir is the directory containing service account JSON key files.
	APIKeysDir string `yaml:"api_keys_dir" mapstructure:"api_keys_dir"`
	// Endpoint is the URL notification publish endpoint.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// MetadataEndpoint is the notification metadata lookup endpoint.
	MetadataEndpoint string `yaml:"metadata_endpoint" mapstructure:"metadata_endpoint"`
	// TokenURL is the OAuth token endpoint used when a key file does not
	// provide its own token_uri.
	TokenURL string `yaml:"token_url" mapstructure:"token_url"`
	// Scope is the OAuth scope requested for submissions.
	Scope string `yaml:"scope" mapstructure:"scope"`
	// RequestTimeout bounds each outbound API request.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	// SubmissionDelay is the pause inserted between successive submissions.
	SubmissionDelay time.Duration `yaml:"submission_delay" mapstructure:"submission_delay"`
}

// Validate checks if the configuration is valid.
func (c *IndexerConfig) Validate() error {
	if c.APIKeysDir == "" {
		return errors.New("api_keys_dir must be specified")
	}
	if c.Endpoint == "" {
		return errors.New("endpoint must be specified")
	}
	if c.TokenURL == "" {
		return errors.New("token_url must be specified")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.SubmissionDelay < 0 {
		return errors.New("submission_delay must not be negative")
	}
	return nil
}

// NewIndexerConfig creates a new indexer configuration with default values.
func NewIndexerConfig() *IndexerConfig {
	return &IndexerConfig{
		APIKeysDir:       DefaultAPIKeysDir,
		Endpoint:         DefaultPublishEndpoint,
		MetadataEndpoint: DefaultMetadataEndpoint,
		TokenURL:         DefaultTokenURL,
		Scope:            DefaultScope,
		RequestTimeout:   DefaultRequestTimeout,
		SubmissionDelay:  DefaultSubmissionDelay,
	}
}
