package indexing

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jonesrussell/goindexer/internal/queue"
)

// maxMessageLen bounds error messages built from raw response text.
const maxMessageLen = 200

// quotaMarkers are the status and reason strings the API uses for
// out-of-quota rejections that arrive as 403 rather than 429.
var quotaMarkers = []string{
	"RESOURCE_EXHAUSTED",
	"rateLimitExceeded",
	"userRateLimitExceeded",
	"quotaExceeded",
	"dailyLimitExceeded",
}

// Result is the classified outcome of one publish request.
type Result struct {
	// URL is the notified URL.
	URL string
	// Action is the notification type that was sent.
	Action string
	// Account identifies the credential used for the attempt.
	Account string
	// Outcome classifies the attempt for the queue.
	Outcome queue.Outcome
	// StatusCode is the HTTP status, zero when the request never
	// completed.
	StatusCode int
	// Response is the parsed response body, nil when empty.
	Response map[string]any
	// Err is set when the request failed before a response arrived.
	Err error
}

// Succeeded reports whether the API accepted the notification.
func (r Result) Succeeded() bool {
	return r.Outcome == queue.OutcomeSuccess
}

// ErrorMessage returns a short description of the failure, or an empty
// string on success.
func (r Result) ErrorMessage() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.Succeeded() {
		return ""
	}
	if msg := messageFromResponse(r.Response); msg != "" {
		return fmt.Sprintf("HTTP %d: %s", r.StatusCode, msg)
	}
	return fmt.Sprintf("HTTP %d", r.StatusCode)
}

// classifyStatus maps an HTTP response to a queue outcome. Quota
// rejections arrive as 429, or as 403 carrying a quota marker; other
// 4xx responses reject the request itself and are permanent, while 5xx
// responses are worth retrying.
func classifyStatus(status int, body []byte) queue.Outcome {
	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return queue.OutcomeSuccess
	case status == http.StatusTooManyRequests:
		return queue.OutcomeQuotaExceeded
	case status == http.StatusForbidden && containsQuotaMarker(body):
		return queue.OutcomeQuotaExceeded
	case status >= http.StatusInternalServerError:
		return queue.OutcomeTransientError
	default:
		return queue.OutcomePermanentError
	}
}

func containsQuotaMarker(body []byte) bool {
	text := string(body)
	for _, marker := range quotaMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// messageFromResponse extracts a human-readable message from a parsed
// error body.
func messageFromResponse(resp map[string]any) string {
	if resp == nil {
		return ""
	}
	if errObj, ok := resp["error"].(map[string]any); ok {
		if msg, msgOK := errObj["message"].(string); msgOK && msg != "" {
			return msg
		}
		if status, statusOK := errObj["status"].(string); statusOK && status != "" {
			return status
		}
	}
	if raw, ok := resp["raw"].(string); ok {
		return truncate(strings.TrimSpace(raw), maxMessageLen)
	}
	return ""
}

// responseMessage extracts an error message straight from raw body
// bytes.
func responseMessage(body []byte) string {
	if msg := messageFromResponse(parseResponseBody(body)); msg != "" {
		return msg
	}
	return truncate(strings.TrimSpace(string(body)), maxMessageLen)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
