package indexing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonesrussell/goindexer/internal/credentials"
)

const (
	// jwtBearerGrantType is the OAuth grant for service account
	// assertions.
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetime is how long a signed assertion is valid.
	assertionLifetime = time.Hour

	// tokenExpiryMargin is subtracted from a cached token's lifetime so
	// a token is never used within a minute of expiring.
	tokenExpiryMargin = time.Minute
)

// assertionClaims is the JWT payload of a token request.
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// tokenSource mints and caches OAuth access tokens, one per service
// account. Safe for concurrent use.
type tokenSource struct {
	tokenURL   string
	scope      string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]*cachedToken

	now func() time.Time
}

func newTokenSource(tokenURL, scope string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		tokenURL:   tokenURL,
		scope:      scope,
		httpClient: httpClient,
		cache:      make(map[string]*cachedToken),
		now:        time.Now,
	}
}

// token returns a valid access token for cred, minting a new one when
// the cached token is missing or close to expiry.
func (ts *tokenSource) token(ctx context.Context, cred *credentials.Credential) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if cached, ok := ts.cache[cred.ID()]; ok {
		if ts.now().Add(tokenExpiryMargin).Before(cached.expiresAt) {
			return cached.accessToken, nil
		}
	}

	token, expiresIn, err := ts.fetch(ctx, cred)
	if err != nil {
		return "", err
	}

	ts.cache[cred.ID()] = &cachedToken{
		accessToken: token,
		expiresAt:   ts.now().Add(time.Duration(expiresIn) * time.Second),
	}
	return token, nil
}

// fetch exchanges a signed assertion for an access token.
func (ts *tokenSource) fetch(ctx context.Context, cred *credentials.Credential) (string, int, error) {
	endpoint := ts.tokenURL
	if cred.TokenURI != "" {
		endpoint = cred.TokenURI
	}

	assertion, err := ts.signAssertion(cred, endpoint)
	if err != nil {
		return "", 0, fmt.Errorf("sign token assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", 0, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token request failed for %s: HTTP %d: %s",
			cred.ID(), resp.StatusCode, responseMessage(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if unmarshalErr := json.Unmarshal(body, &payload); unmarshalErr != nil {
		return "", 0, fmt.Errorf("parse token response: %w", unmarshalErr)
	}
	if payload.AccessToken == "" {
		return "", 0, fmt.Errorf("token response for %s has no access_token", cred.ID())
	}

	return payload.AccessToken, payload.ExpiresIn, nil
}

// signAssertion builds and signs the JWT-bearer assertion for cred.
func (ts *tokenSource) signAssertion(cred *credentials.Credential, audience string) (string, error) {
	now := ts.now()
	claims := &assertionClaims{
		Scope: ts.scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cred.ClientEmail,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(cred.SigningKey())
}
