// Package notify owns the outbound-mail queues: interview notifications,
// assessment invites and reminders, and candidate welcome mail. The actual
// mail transport is an external collaborator behind the Mailer interface.
package notify

import (
	"context"
	"time"
)

// Queue names owned by this package
const (
	QueueNotification = "notification"
	QueueReminder     = "reminder"
	QueueWelcome      = "welcome"
)

// Delivery kinds recorded in the delivery log
const (
	KindNotification = "notification"
	KindInvite       = "invite"
	KindReminder     = "reminder"
	KindWelcome      = "welcome"
)

// Contact identifies a mail recipient
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// InterviewDetails is the scheduling context included in notification mail
type InterviewDetails struct {
	InterviewID string     `json:"interview_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// Mailer is the external mail collaborator. Errors are treated as
// retryable by the queue; the worker-side delivery log is the barrier
// against double-sends across redeliveries.
type Mailer interface {
	SendInterviewNotification(ctx context.Context, recipient Contact, details InterviewDetails) error
	SendAssessmentInvite(ctx context.Context, recipient Contact, assessmentURL string, expiresAt time.Time) error
	SendReminder(ctx context.Context, recipient Contact, assessmentURL string, expiresAt time.Time) error
	SendWelcome(ctx context.Context, recipient Contact) error
}
