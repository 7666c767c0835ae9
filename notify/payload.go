package notify

import (
	"encoding/json"
	"time"

	"github.com/talenthos/talenthos/errors"
)

// NotificationPayload is the notification queue's job payload
type NotificationPayload struct {
	InterviewID    string     `json:"interview_id"`
	CandidateName  string     `json:"candidate_name,omitempty"`
	CandidateEmail string     `json:"candidate_email"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
}

// Validate checks the payload before it enters the durable queue
func (p NotificationPayload) Validate() error {
	if p.InterviewID == "" {
		return errors.New("notification payload missing interview_id")
	}
	if p.CandidateEmail == "" {
		return errors.New("notification payload missing candidate_email")
	}
	return nil
}

// ReminderPayload is the reminder queue's job payload. The assessment URL
// and expiry are captured at enqueue time so the handler does not need the
// token value.
type ReminderPayload struct {
	InterviewID    string    `json:"interview_id"`
	CandidateName  string    `json:"candidate_name,omitempty"`
	CandidateEmail string    `json:"candidate_email"`
	AssessmentURL  string    `json:"assessment_url"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Validate checks the payload before it enters the durable queue
func (p ReminderPayload) Validate() error {
	if p.InterviewID == "" {
		return errors.New("reminder payload missing interview_id")
	}
	if p.CandidateEmail == "" {
		return errors.New("reminder payload missing candidate_email")
	}
	if p.AssessmentURL == "" {
		return errors.New("reminder payload missing assessment_url")
	}
	if p.ExpiresAt.IsZero() {
		return errors.New("reminder payload missing expires_at")
	}
	return nil
}

// WelcomePayload is the welcome queue's job payload
type WelcomePayload struct {
	CandidateID    string `json:"candidate_id"`
	CandidateName  string `json:"candidate_name,omitempty"`
	CandidateEmail string `json:"candidate_email"`
}

// Validate checks the payload before it enters the durable queue
func (p WelcomePayload) Validate() error {
	if p.CandidateID == "" {
		return errors.New("welcome payload missing candidate_id")
	}
	if p.CandidateEmail == "" {
		return errors.New("welcome payload missing candidate_email")
	}
	return nil
}

// marshalPayload validates then marshals a payload variant
func marshalPayload(p interface{ Validate() error }) (json.RawMessage, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payload")
	}
	return data, nil
}
