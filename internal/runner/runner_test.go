package runner_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/indexing"
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/jonesrussell/goindexer/internal/resultlog"
	"github.com/jonesrussell/goindexer/internal/runner"
)

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

// newStore builds a credential store with one key file per email.
func newStore(t *testing.T, emails ...string) *credentials.Store {
	t.Helper()

	dir := t.TempDir()
	for i, email := range emails {
		data, err := json.Marshal(map[string]string{
			"type":         "service_account",
			"project_id":   "goindexer-test",
			"private_key":  testPrivateKeyPEM(t),
			"client_email": email,
		})
		require.NoError(t, err)
		name := filepath.Join(dir, string(rune('a'+i))+".json")
		require.NoError(t, os.WriteFile(name, data, 0o600))
	}

	store, err := credentials.Load(dir, nil)
	require.NoError(t, err)
	return store
}

func newQueue(t *testing.T, maxAttempts int) *queue.Queue {
	t.Helper()
	q, err := queue.Load(queue.Params{
		Path:        filepath.Join(t.TempDir(), "urls.json"),
		MaxAttempts: maxAttempts,
	})
	require.NoError(t, err)
	return q
}

type submitCall struct {
	url     string
	account string
}

// fakeSubmitter replays a scripted outcome sequence per URL, falling
// back to success.
type fakeSubmitter struct {
	calls    []submitCall
	outcomes map[string][]queue.Outcome
}

func (f *fakeSubmitter) Submit(_ context.Context, url string, cred *credentials.Credential) indexing.Result {
	f.calls = append(f.calls, submitCall{url: url, account: cred.ID()})

	outcome := queue.OutcomeSuccess
	if seq, ok := f.outcomes[url]; ok && len(seq) > 0 {
		outcome = seq[0]
		f.outcomes[url] = seq[1:]
	}

	result := indexing.Result{
		URL:     url,
		Action:  indexing.ActionUpdated,
		Account: cred.ID(),
		Outcome: outcome,
	}
	switch outcome {
	case queue.OutcomeSuccess:
		result.StatusCode = http.StatusOK
		result.Response = map[string]any{"urlNotificationMetadata": map[string]any{"url": url}}
	case queue.OutcomeQuotaExceeded:
		result.StatusCode = http.StatusTooManyRequests
	case queue.OutcomeTransientError:
		result.StatusCode = http.StatusServiceUnavailable
	case queue.OutcomePermanentError:
		result.StatusCode = http.StatusForbidden
	}
	return result
}

func newRunner(t *testing.T, q *queue.Queue, store *credentials.Store, client runner.Submitter) *runner.Runner {
	t.Helper()
	r, err := runner.New(runner.Params{
		Queue:       q,
		Credentials: store,
		Client:      client,
	})
	require.NoError(t, err)
	return r
}

func TestRunSubmitsPendingInOrder(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	q.Add("https://example.com/a", queue.SourceManual)
	q.Add("https://example.com/b", queue.SourceManual)
	q.Add("https://example.com/c", queue.SourceManual)

	store := newStore(t, "one@test.iam", "two@test.iam")
	client := &fakeSubmitter{}
	r := newRunner(t, q, store, client)

	summary, err := r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, 3, summary.Selected)
	require.Equal(t, 3, summary.Succeeded)
	require.Zero(t, summary.Failed)
	require.Zero(t, summary.Skipped)

	require.Equal(t, []submitCall{
		{url: "https://example.com/a", account: "one@test.iam"},
		{url: "https://example.com/b", account: "two@test.iam"},
		{url: "https://example.com/c", account: "one@test.iam"},
	}, client.calls)

	for _, rec := range q.List("") {
		require.Equal(t, queue.StatusSubmitted, rec.Status)
		require.Equal(t, 1, rec.Attempts)
	}
}

func TestRunPersistsQueue(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "urls.json")
	q, err := queue.Load(queue.Params{Path: path})
	require.NoError(t, err)
	q.Add("https://example.com/a", queue.SourceManual)

	r := newRunner(t, q, newStore(t, "one@test.iam"), &fakeSubmitter{})
	_, err = r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)

	reloaded, err := queue.Load(queue.Params{Path: path})
	require.NoError(t, err)
	require.Equal(t, queue.StatusSubmitted, reloaded.Get("https://example.com/a").Status)
}

func TestRunBatchSizeCapsSelection(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	for _, u := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		q.Add(u, queue.SourceManual)
	}

	client := &fakeSubmitter{}
	r := newRunner(t, q, newStore(t, "one@test.iam"), client)

	summary, err := r.Run(context.Background(), runner.Options{BatchSize: 2})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Selected)
	require.Equal(t, 2, summary.Succeeded)
	require.Len(t, client.calls, 2)
	require.Equal(t, queue.StatusPending, q.Get("https://example.com/3").Status)
}

func TestRunSelectsFailedOnlyWhenRequested(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	q.Add("https://example.com/failed", queue.SourceManual)
	require.NoError(t, q.MarkResult("https://example.com/failed", queue.OutcomeTransientError, "timeout"))
	q.Add("https://example.com/pending", queue.SourceManual)

	store := newStore(t, "one@test.iam")

	client := &fakeSubmitter{}
	r := newRunner(t, q, store, client)
	summary, err := r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Selected)
	require.Equal(t, []submitCall{{url: "https://example.com/pending", account: "one@test.iam"}}, client.calls)

	// Pending URLs come before retried failures.
	q.Add("https://example.com/fresh", queue.SourceManual)
	retryClient := &fakeSubmitter{}
	retryRunner := newRunner(t, q, store, retryClient)
	summary, err = retryRunner.Run(context.Background(), runner.Options{IncludeFailed: true})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Selected)
	require.Equal(t, "https://example.com/fresh", retryClient.calls[0].url)
	require.Equal(t, "https://example.com/failed", retryClient.calls[1].url)
}

func TestRunNeverSelectsPermanentlyFailed(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	q.Add("https://example.com/rejected", queue.SourceManual)
	require.NoError(t, q.MarkResult("https://example.com/rejected", queue.OutcomePermanentError, "denied"))

	client := &fakeSubmitter{}
	r := newRunner(t, q, newStore(t, "one@test.iam"), client)

	summary, err := r.Run(context.Background(), runner.Options{IncludeFailed: true})
	require.NoError(t, err)
	require.Zero(t, summary.Selected)
	require.Empty(t, client.calls)
}

func TestRunMinPriorityFiltersWithoutReordering(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	q.AddWith("https://example.com/low", queue.SourceManual, queue.AddOptions{Priority: 1})
	q.AddWith("https://example.com/high", queue.SourceManual, queue.AddOptions{Priority: 5})
	q.AddWith("https://example.com/mid", queue.SourceManual, queue.AddOptions{Priority: 3})

	client := &fakeSubmitter{}
	r := newRunner(t, q, newStore(t, "one@test.iam"), client)

	summary, err := r.Run(context.Background(), runner.Options{MinPriority: 3})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Selected)
	require.Equal(t, "https://example.com/high", client.calls[0].url)
	require.Equal(t, "https://example.com/mid", client.calls[1].url)
	require.Equal(t, queue.StatusPending, q.Get("https://example.com/low").Status)
}

func TestRunRotatesCredentialOnQuota(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	q.Add("https://example.com/a", queue.SourceManual)

	client := &fakeSubmitter{outcomes: map[string][]queue.Outcome{
		"https://example.com/a": {queue.OutcomeQuotaExceeded, queue.OutcomeSuccess},
	}}
	r := newRunner(t, q, newStore(t, "one@test.iam", "two@test.iam"), client)

	summary, err := r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Succeeded)
	require.Zero(t, summary.Skipped)

	require.Len(t, client.calls, 2)
	require.Equal(t, "one@test.iam", client.calls[0].account)
	require.Equal(t, "two@test.iam", client.calls[1].account)

	rec := q.Get("https://example.com/a")
	require.Equal(t, queue.StatusSubmitted, rec.Status)
	require.Equal(t, 1, rec.Attempts)
}

func TestRunStopsWhenEveryAccountIsOutOfQuota(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	q.Add("https://example.com/a", queue.SourceManual)
	q.Add("https://example.com/b", queue.SourceManual)

	client := &fakeSubmitter{outcomes: map[string][]queue.Outcome{
		"https://example.com/a": {queue.OutcomeQuotaExceeded, queue.OutcomeQuotaExceeded},
	}}
	r := newRunner(t, q, newStore(t, "one@test.iam", "two@test.iam"), client)

	summary, err := r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Selected)
	require.Equal(t, 2, summary.Skipped)
	require.Zero(t, summary.Succeeded)

	// Only the first URL was attempted, once per account.
	require.Len(t, client.calls, 2)
	for _, call := range client.calls {
		require.Equal(t, "https://example.com/a", call.url)
	}

	// Quota never touches the records.
	for _, rec := range q.List("") {
		require.Equal(t, queue.StatusPending, rec.Status)
		require.Zero(t, rec.Attempts)
	}
}

func TestRunUpgradesToPermanentAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 2)
	q.Add("https://example.com/a", queue.SourceManual)

	store := newStore(t, "one@test.iam")
	client := &fakeSubmitter{outcomes: map[string][]queue.Outcome{
		"https://example.com/a": {queue.OutcomeTransientError, queue.OutcomeTransientError},
	}}
	r := newRunner(t, q, store, client)

	summary, err := r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, queue.StatusFailed, q.Get("https://example.com/a").Status)

	summary, err = r.Run(context.Background(), runner.Options{IncludeFailed: true})
	require.NoError(t, err)
	require.Equal(t, 1, summary.PermanentlyFailed)
	require.Equal(t, queue.StatusPermanentlyFailed, q.Get("https://example.com/a").Status)
	require.Equal(t, 2, q.Get("https://example.com/a").Attempts)
}

func TestRunWithEmptyQueue(t *testing.T) {
	t.Parallel()

	client := &fakeSubmitter{}
	r := newRunner(t, newQueue(t, 0), newStore(t, "one@test.iam"), client)

	summary, err := r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)
	require.Zero(t, summary.Selected)
	require.Empty(t, client.calls)
}

func TestRunCanceledContext(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	q.Add("https://example.com/a", queue.SourceManual)
	q.Add("https://example.com/b", queue.SourceManual)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeSubmitter{}
	r := newRunner(t, q, newStore(t, "one@test.iam"), client)

	summary, err := r.Run(ctx, runner.Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, summary.Selected)
	require.Equal(t, 2, summary.Skipped)
	require.Empty(t, client.calls)

	for _, rec := range q.List("") {
		require.Equal(t, queue.StatusPending, rec.Status)
	}
}

func TestRunPacesSubmissions(t *testing.T) {
	t.Parallel()

	q := newQueue(t, 0)
	q.Add("https://example.com/a", queue.SourceManual)
	q.Add("https://example.com/b", queue.SourceManual)
	q.Add("https://example.com/c", queue.SourceManual)

	r, err := runner.New(runner.Params{
		Queue:           q,
		Credentials:     newStore(t, "one@test.iam"),
		Client:          &fakeSubmitter{},
		SubmissionDelay: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	summary, err := r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)
	require.Equal(t, 3, summary.Succeeded)
	// First submission is immediate, the next two wait out the delay.
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRunWritesResultLog(t *testing.T) {
	t.Parallel()

	logsDir := t.TempDir()
	q := newQueue(t, 0)
	q.Add("https://example.com/a", queue.SourceManual)

	client := &fakeSubmitter{outcomes: map[string][]queue.Outcome{
		"https://example.com/a": {queue.OutcomeQuotaExceeded, queue.OutcomeSuccess},
	}}
	r, err := runner.New(runner.Params{
		Queue:       q,
		Credentials: newStore(t, "one@test.iam", "two@test.iam"),
		Client:      client,
		Results:     resultlog.NewWriter(logsDir, nil),
	})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)

	paths, err := filepath.Glob(filepath.Join(logsDir, "indexing_*.log"))
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first, second resultlog.Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.False(t, first.Success)
	require.Equal(t, "one@test.iam", first.Account)
	require.True(t, second.Success)
	require.Equal(t, "two@test.iam", second.Account)
}
