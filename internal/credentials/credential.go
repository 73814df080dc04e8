// Package credentials loads Google service account keys from a
// directory and hands them out in round-robin order, so submission
// quota is spread evenly across every configured account.
package credentials

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// serviceAccountType is the required "type" field of a key file.
const serviceAccountType = "service_account"

// Credential is one parsed service account key file.
type Credential struct {
	// Type must be "service_account".
	Type string `json:"type"`
	// ProjectID is the Google Cloud project the account belongs to.
	ProjectID string `json:"project_id"`
	// PrivateKeyID identifies the key within the account.
	PrivateKeyID string `json:"private_key_id"`
	// PrivateKey is the PEM-encoded RSA signing key.
	PrivateKey string `json:"private_key"`
	// ClientEmail is the service account's email address, used as the
	// issuer of signed token requests.
	ClientEmail string `json:"client_email"`
	// ClientID is the account's numeric OAuth client ID.
	ClientID string `json:"client_id"`
	// TokenURI is the token endpoint from the key file, when present.
	TokenURI string `json:"token_uri"`

	// Path is the file the credential was loaded from.
	Path string `json:"-"`
	// LoadedAt is when the file was parsed.
	LoadedAt time.Time `json:"-"`

	signingKey *rsa.PrivateKey
}

// ID returns a short identifier for logging: the account email, or the
// file name when the key has no email.
func (c *Credential) ID() string {
	if c.ClientEmail != "" {
		return c.ClientEmail
	}
	return strings.TrimSuffix(filepath.Base(c.Path), filepath.Ext(c.Path))
}

// SigningKey returns the parsed RSA key. It is non-nil for any
// credential that passed Validate.
func (c *Credential) SigningKey() *rsa.PrivateKey {
	return c.signingKey
}

// Validate checks the fields a token request needs and parses the
// private key. It is called for every file the store loads, so a broken
// key file is rejected at startup rather than on first use.
func (c *Credential) Validate() error {
	if c.Type != serviceAccountType {
		return fmt.Errorf("%w: type is %q, want %q", ErrInvalidCredential, c.Type, serviceAccountType)
	}
	if c.ClientEmail == "" {
		return fmt.Errorf("%w: missing client_email", ErrInvalidCredential)
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("%w: missing private_key", ErrInvalidCredential)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.PrivateKey))
	if err != nil {
		return fmt.Errorf("%w: parse private_key: %w", ErrInvalidCredential, err)
	}
	c.signingKey = key
	return nil
}

// LoadFile parses and validates one key file.
func LoadFile(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var cred Credential
	if unmarshalErr := json.Unmarshal(data, &cred); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidCredential, filepath.Base(path), unmarshalErr)
	}

	cred.Path = path
	cred.LoadedAt = time.Now().UTC()
	if validateErr := cred.Validate(); validateErr != nil {
		return nil, validateErr
	}
	return &cred, nil
}
