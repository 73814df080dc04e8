package credentials

import "errors"

// Common errors returned by the credentials package.
var (
	// ErrNoCredentials is returned when the keys directory holds no
	// valid service account key.
	ErrNoCredentials = errors.New("no API keys found")

	// ErrInvalidCredential is returned when a key file cannot be parsed
	// or is missing required fields.
	ErrInvalidCredential = errors.New("invalid service account key")
)
