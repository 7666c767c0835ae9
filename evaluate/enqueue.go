package evaluate

import (
	"context"
	"encoding/json"

	"github.com/talenthos/talenthos/errors"
	"github.com/talenthos/talenthos/jobs"
)

// Payload is the evaluation queue's job payload
type Payload struct {
	InterviewID string `json:"interview_id"`
	Notes       string `json:"notes"`
}

// Validate checks the payload before it enters the durable queue
func (p Payload) Validate() error {
	if p.InterviewID == "" {
		return errors.New("evaluation payload missing interview_id")
	}
	return nil
}

// Key returns the idempotency key for an interview's evaluation job
func Key(interviewID string) string {
	return "evaluation-" + interviewID
}

// Enqueue queues the AI evaluation of an interview
func Enqueue(ctx context.Context, q *jobs.Queue, p Payload) (*jobs.Job, bool, error) {
	if err := p.Validate(); err != nil {
		return nil, false, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to marshal evaluation payload")
	}
	return q.Enqueue(ctx, QueueEvaluation, Key(p.InterviewID), payload, jobs.Options{})
}
