// Package jobs provides durable, named job queues with at-least-once
// delivery, idempotent enqueue, retry with exponential backoff, and
// dead-lettering of permanently failed jobs.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/talenthos/talenthos/errors"
)

// Status represents the current state of a job
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	// StatusFailed is terminal: the job exhausted its attempts (or hit a
	// permanent error) and is retained for operator inspection. It is
	// never redelivered automatically.
	StatusFailed Status = "failed"
)

// IsValidStatus returns true if the status string is a valid Status
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// DefaultMaxAttempts is the delivery attempt limit when Options leaves it unset
const DefaultMaxAttempts = 3

// DefaultBackoffBase is the first retry delay; each further retry doubles it
const DefaultBackoffBase = 2 * time.Second

// Job is one durable unit of work on a named queue.
//
// The queue is domain-agnostic: domain packages own queue names, payload
// structures, and the handlers that execute them. Two jobs with the same
// (queue, idempotency key) are the same logical work; the storage layer
// enforces that only one exists.
type Job struct {
	ID             string          `json:"id"`
	Queue          string          `json:"queue"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	Status         Status          `json:"status"`
	Attempts       int             `json:"attempts"`
	MaxAttempts    int             `json:"max_attempts"`
	RunAt          time.Time       `json:"run_at"`
	LastError      string          `json:"last_error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Options controls enqueue behavior
type Options struct {
	MaxAttempts int           // 0 means DefaultMaxAttempts
	Delay       time.Duration // defer first delivery by this much
}

// newJob validates enqueue input and builds a queued job. Payloads are
// checked here, at enqueue time, so malformed payloads never enter the
// durable queue.
func newJob(queue, idempotencyKey string, payload json.RawMessage, opts Options) (*Job, error) {
	if queue == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if idempotencyKey == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, errors.Newf("invalid job payload for key %s", idempotencyKey)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	now := time.Now().UTC()
	return &Job{
		ID:             uuid.NewString(),
		Queue:          queue,
		IdempotencyKey: idempotencyKey,
		Payload:        payload,
		Status:         StatusQueued,
		Attempts:       0,
		MaxAttempts:    maxAttempts,
		RunAt:          now.Add(opts.Delay),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Backoff returns the delay before retry attempt n (1-based), doubling the
// base each attempt: base, 2*base, 4*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}
