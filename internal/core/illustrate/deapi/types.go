package deapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status values reported by the deAPI request-status endpoint and by
// request.status.updated events.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Outcome classifies the terminal result of a generation job.
type Outcome string

const (
	OutcomeDone     Outcome = "done"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timed_out"
)

// JobResult is the single terminal result produced for a submitted job.
// Exactly one is produced per request id, by whichever completion path
// reaches a terminal state first.
type JobResult struct {
	Outcome   Outcome
	ResultURL string
	Reason    string
}

// ErrRealtimeUnavailable marks the realtime completion path as unusable for
// this attempt (connection, handshake or channel auth failed). It is not a
// job outcome; the caller falls back to polling.
var ErrRealtimeUnavailable = errors.New("realtime channel unavailable")

// APIError is a non-success HTTP response from deAPI.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("deapi: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("deapi: unexpected status %d: %s", e.StatusCode, body)
}

// statusPayload is the job state carried by both the status endpoint and
// realtime status events.
type statusPayload struct {
	RequestID string          `json:"request_id"`
	Status    Status          `json:"status"`
	Progress  json.RawMessage `json:"progress,omitempty"`
	ResultURL string          `json:"result_url,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// progress renders the informational progress field, which the API sends
// either as a number or a quoted string.
func (p statusPayload) progress() string {
	if len(p.Progress) == 0 {
		return ""
	}
	s := strings.Trim(string(p.Progress), `"`)
	if s == "null" {
		return ""
	}
	return s
}

func (p statusPayload) failureReason() string {
	if p.Message != "" {
		return p.Message
	}
	return "remote job reported error"
}
