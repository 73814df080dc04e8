package indexing_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goindexer/internal/config"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/indexing"
	"github.com/jonesrussell/goindexer/internal/queue"
)

const testScope = "https://www.googleapis.com/auth/indexing"

var (
	testKeyOnce sync.Once
	testKeyPEM  string
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKeyPEM = string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}))
	})
	return testKeyPEM
}

func newTestCredential(t *testing.T) *credentials.Credential {
	t.Helper()
	cred := &credentials.Credential{
		Type:        "service_account",
		ProjectID:   "goindexer-test",
		PrivateKey:  testPrivateKeyPEM(t),
		ClientEmail: "svc@project.iam.gserviceaccount.com",
	}
	require.NoError(t, cred.Validate())
	return cred
}

// apiHarness wires an httptest server that plays both the OAuth token
// endpoint and the indexing API.
type apiHarness struct {
	server      *httptest.Server
	client      *indexing.Client
	tokenCalls  atomic.Int64
	lastPublish struct {
		sync.Mutex
		method string
		auth   string
		body   map[string]string
	}
	publishStatus int
	publishBody   string
}

func newAPIHarness(t *testing.T, publishStatus int, publishBody string) *apiHarness {
	t.Helper()

	h := &apiHarness{publishStatus: publishStatus, publishBody: publishBody}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		h.tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostFormValue("grant_type"))
		require.NotEmpty(t, r.PostFormValue("assertion"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token": "test-token", "expires_in": 3600, "token_type": "Bearer"}`)
	})
	mux.HandleFunc("/publish", func(w http.ResponseWriter, r *http.Request) {
		h.lastPublish.Lock()
		h.lastPublish.method = r.Method
		h.lastPublish.auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		h.lastPublish.body = map[string]string{}
		_ = json.Unmarshal(body, &h.lastPublish.body)
		h.lastPublish.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(h.publishStatus)
		io.WriteString(w, h.publishBody)
	})
	mux.HandleFunc("/metadata", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"url": "`+r.URL.Query().Get("url")+`", "latestUpdate": {"type": "URL_UPDATED"}}`)
	})

	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)

	client, err := indexing.New(indexing.Params{
		Config: &config.IndexerConfig{
			APIKeysDir:       "api_keys",
			Endpoint:         h.server.URL + "/publish",
			MetadataEndpoint: h.server.URL + "/metadata",
			TokenURL:         h.server.URL + "/token",
			Scope:            testScope,
			RequestTimeout:   5 * time.Second,
		},
	})
	require.NoError(t, err)
	h.client = client
	return h
}

func TestSubmitSuccess(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t, http.StatusOK, `{"urlNotificationMetadata": {"url": "https://example.com/a"}}`)
	cred := newTestCredential(t)

	result := h.client.Submit(context.Background(), "https://example.com/a", cred)
	require.NoError(t, result.Err)
	require.True(t, result.Succeeded())
	require.Equal(t, queue.OutcomeSuccess, result.Outcome)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, cred.ID(), result.Account)
	require.Contains(t, result.Response, "urlNotificationMetadata")
	require.Empty(t, result.ErrorMessage())

	h.lastPublish.Lock()
	defer h.lastPublish.Unlock()
	require.Equal(t, http.MethodPost, h.lastPublish.method)
	require.Equal(t, "Bearer test-token", h.lastPublish.auth)
	require.Equal(t, "https://example.com/a", h.lastPublish.body["url"])
	require.Equal(t, indexing.ActionUpdated, h.lastPublish.body["type"])
}

func TestNotifyDeletedSendsDeleteAction(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t, http.StatusOK, `{}`)
	result := h.client.NotifyDeleted(context.Background(), "https://example.com/gone", newTestCredential(t))
	require.True(t, result.Succeeded())
	require.Equal(t, indexing.ActionDeleted, result.Action)

	h.lastPublish.Lock()
	defer h.lastPublish.Unlock()
	require.Equal(t, indexing.ActionDeleted, h.lastPublish.body["type"])
}

func TestOutcomeClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantOutcome queue.Outcome
		wantMessage string
	}{
		{
			name:        "429 is quota",
			status:      http.StatusTooManyRequests,
			body:        `{"error": {"code": 429, "message": "Quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`,
			wantOutcome: queue.OutcomeQuotaExceeded,
			wantMessage: "HTTP 429: Quota exceeded",
		},
		{
			name:        "403 with quota marker is quota",
			status:      http.StatusForbidden,
			body:        `{"error": {"code": 403, "message": "Daily limit reached", "errors": [{"reason": "dailyLimitExceeded"}]}}`,
			wantOutcome: queue.OutcomeQuotaExceeded,
			wantMessage: "HTTP 403: Daily limit reached",
		},
		{
			name:        "403 without quota marker is permanent",
			status:      http.StatusForbidden,
			body:        `{"error": {"code": 403, "message": "Permission denied on resource", "status": "PERMISSION_DENIED"}}`,
			wantOutcome: queue.OutcomePermanentError,
			wantMessage: "HTTP 403: Permission denied on resource",
		},
		{
			name:        "400 is permanent",
			status:      http.StatusBadRequest,
			body:        `{"error": {"code": 400, "message": "Invalid attribute", "status": "INVALID_ARGUMENT"}}`,
			wantOutcome: queue.OutcomePermanentError,
			wantMessage: "HTTP 400: Invalid attribute",
		},
		{
			name:        "503 is transient",
			status:      http.StatusServiceUnavailable,
			body:        `backend unavailable`,
			wantOutcome: queue.OutcomeTransientError,
			wantMessage: "HTTP 503: backend unavailable",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newAPIHarness(t, tt.status, tt.body)
			result := h.client.Submit(context.Background(), "https://example.com/a", newTestCredential(t))
			require.NoError(t, result.Err)
			require.Equal(t, tt.wantOutcome, result.Outcome)
			require.Equal(t, tt.status, result.StatusCode)
			require.Equal(t, tt.wantMessage, result.ErrorMessage())
		})
	}
}

func TestTransportErrorIsTransient(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t, http.StatusOK, `{}`)
	h.server.Close()

	result := h.client.Submit(context.Background(), "https://example.com/a", newTestCredential(t))
	require.Error(t, result.Err)
	require.Equal(t, queue.OutcomeTransientError, result.Outcome)
	require.Zero(t, result.StatusCode)
	require.NotEmpty(t, result.ErrorMessage())
}

func TestTokenIsCachedPerCredential(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t, http.StatusOK, `{}`)
	cred := newTestCredential(t)

	for i := 0; i < 3; i++ {
		result := h.client.Submit(context.Background(), "https://example.com/a", cred)
		require.True(t, result.Succeeded())
	}
	require.Equal(t, int64(1), h.tokenCalls.Load())
}

func TestTokenFailureIsTransient(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": "internal"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := indexing.New(indexing.Params{
		Config: &config.IndexerConfig{
			APIKeysDir:     "api_keys",
			Endpoint:       server.URL + "/publish",
			TokenURL:       server.URL + "/token",
			Scope:          testScope,
			RequestTimeout: 5 * time.Second,
		},
	})
	require.NoError(t, err)

	result := client.Submit(context.Background(), "https://example.com/a", newTestCredential(t))
	require.Error(t, result.Err)
	require.Equal(t, queue.OutcomeTransientError, result.Outcome)
}

func TestAssertionCarriesAccountClaims(t *testing.T) {
	t.Parallel()

	var assertion string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assertion = r.PostFormValue("assertion")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token": "test-token", "expires_in": 3600}`)
	})
	mux.HandleFunc("/publish", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := indexing.New(indexing.Params{
		Config: &config.IndexerConfig{
			APIKeysDir:     "api_keys",
			Endpoint:       server.URL + "/publish",
			TokenURL:       server.URL + "/token",
			Scope:          testScope,
			RequestTimeout: 5 * time.Second,
		},
	})
	require.NoError(t, err)

	cred := newTestCredential(t)
	result := client.Submit(context.Background(), "https://example.com/a", cred)
	require.True(t, result.Succeeded())

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(assertion, claims)
	require.NoError(t, err)
	require.Equal(t, cred.ClientEmail, claims["iss"])
	require.Equal(t, testScope, claims["scope"])
	require.Equal(t, server.URL+"/token", claims["aud"])
}

func TestCredentialTokenURITakesPrecedence(t *testing.T) {
	t.Parallel()

	var credTokenCalls atomic.Int64
	credTokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credTokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token": "test-token", "expires_in": 3600}`)
	}))
	t.Cleanup(credTokenServer.Close)

	h := newAPIHarness(t, http.StatusOK, `{}`)
	cred := newTestCredential(t)
	cred.TokenURI = credTokenServer.URL

	result := h.client.Submit(context.Background(), "https://example.com/a", cred)
	require.True(t, result.Succeeded())
	require.Equal(t, int64(1), credTokenCalls.Load())
	require.Zero(t, h.tokenCalls.Load())
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t, http.StatusOK, `{}`)
	metadata, err := h.client.Metadata(context.Background(), "https://example.com/a?page=1", newTestCredential(t))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a?page=1", metadata["url"])
	require.Contains(t, metadata, "latestUpdate")
}
