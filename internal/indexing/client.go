// Package indexing submits URL notifications to the Google Indexing
// API on behalf of a service account credential. Each request is
// authenticated with a short-lived OAuth token minted from the
// credential's signing key; tokens are cached until shortly before
// expiry.
package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jonesrussell/goindexer/internal/config"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/logger"
	"github.com/jonesrussell/goindexer/internal/queue"
)

// Notification types accepted by the publish endpoint.
const (
	// ActionUpdated tells the API the URL is new or has fresh content.
	ActionUpdated = "URL_UPDATED"
	// ActionDeleted tells the API the URL has been removed.
	ActionDeleted = "URL_DELETED"
)

// maxResponseBytes bounds how much of an API response is read.
const maxResponseBytes = 1 << 20

// Client talks to the indexing API. It is safe for concurrent use.
type Client struct {
	endpoint         string
	metadataEndpoint string
	httpClient       *http.Client
	tokens           *tokenSource
	logger           logger.Interface
}

// Params configures a Client.
type Params struct {
	// Config supplies the endpoints, OAuth scope, and request timeout.
	Config *config.IndexerConfig
	// Logger is optional and can be nil.
	Logger logger.Interface
	// HTTPClient is optional; a client with the configured timeout is
	// used when nil.
	HTTPClient *http.Client
}

// New creates a Client from p.
func New(p Params) (*Client, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("indexing client: config is required")
	}
	if err := p.Config.Validate(); err != nil {
		return nil, fmt.Errorf("indexing client: %w", err)
	}
	if p.Logger == nil {
		p.Logger = logger.NewNoOp()
	}

	httpClient := p.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: p.Config.RequestTimeout}
	}

	return &Client{
		endpoint:         p.Config.Endpoint,
		metadataEndpoint: p.Config.MetadataEndpoint,
		httpClient:       httpClient,
		tokens:           newTokenSource(p.Config.TokenURL, p.Config.Scope, httpClient),
		logger:           p.Logger,
	}, nil
}

// Submit notifies the API that targetURL is new or updated.
func (c *Client) Submit(ctx context.Context, targetURL string, cred *credentials.Credential) Result {
	return c.publish(ctx, targetURL, ActionUpdated, cred)
}

// NotifyDeleted notifies the API that targetURL has been removed.
func (c *Client) NotifyDeleted(ctx context.Context, targetURL string, cred *credentials.Credential) Result {
	return c.publish(ctx, targetURL, ActionDeleted, cred)
}

// VerifyCredential checks that cred can mint an access token at the
// token endpoint. Nothing is published.
func (c *Client) VerifyCredential(ctx context.Context, cred *credentials.Credential) error {
	if _, err := c.tokens.token(ctx, cred); err != nil {
		return fmt.Errorf("fetch access token: %w", err)
	}
	return nil
}

// publish sends one urlNotifications:publish request and classifies the
// response. Transport and token failures come back as transient
// results, never as a missing Result, so the runner always has an
// outcome to act on.
func (c *Client) publish(ctx context.Context, targetURL, action string, cred *credentials.Credential) Result {
	result := Result{URL: targetURL, Action: action, Account: cred.ID()}

	token, err := c.tokens.token(ctx, cred)
	if err != nil {
		result.Outcome = queue.OutcomeTransientError
		result.Err = fmt.Errorf("fetch access token: %w", err)
		return result
	}

	body, err := json.Marshal(map[string]string{
		"url":  targetURL,
		"type": action,
	})
	if err != nil {
		result.Outcome = queue.OutcomeTransientError
		result.Err = fmt.Errorf("encode notification: %w", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		result.Outcome = queue.OutcomeTransientError
		result.Err = fmt.Errorf("create publish request: %w", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Outcome = queue.OutcomeTransientError
		result.Err = fmt.Errorf("publish notification: %w", err)
		return result
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		result.Outcome = queue.OutcomeTransientError
		result.Err = fmt.Errorf("read publish response: %w", err)
		return result
	}

	result.StatusCode = resp.StatusCode
	result.Response = parseResponseBody(respBody)
	result.Outcome = classifyStatus(resp.StatusCode, respBody)

	c.logger.Debug("Publish request completed",
		"url", targetURL,
		"action", action,
		"account", cred.ID(),
		"status_code", resp.StatusCode,
		"outcome", string(result.Outcome),
	)
	return result
}

// Metadata fetches the API's stored notification metadata for
// targetURL.
func (c *Client) Metadata(ctx context.Context, targetURL string, cred *credentials.Credential) (map[string]any, error) {
	token, err := c.tokens.token(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("fetch access token: %w", err)
	}

	reqURL := c.metadataEndpoint + "?url=" + url.QueryEscape(targetURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read metadata response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata request failed: HTTP %d: %s", resp.StatusCode, responseMessage(respBody))
	}

	var metadata map[string]any
	if unmarshalErr := json.Unmarshal(respBody, &metadata); unmarshalErr != nil {
		return nil, fmt.Errorf("parse metadata response: %w", unmarshalErr)
	}
	return metadata, nil
}

// parseResponseBody decodes a JSON response body, falling back to the
// raw text when the body is not JSON.
func parseResponseBody(body []byte) map[string]any {
	if len(body) == 0 {
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return map[string]any{"raw": string(body)}
	}
	return parsed
}
