package notify

import (
	"context"
	"time"

	"github.com/talenthos/talenthos/jobs"
)

// Idempotency keys are deterministic per subject, so a racing second
// enqueue collapses into the stored job.

// NotificationKey returns the idempotency key for an interview's notification job
func NotificationKey(interviewID string) string {
	return "notification-" + interviewID
}

// ReminderKey returns the idempotency key for an interview's reminder job
func ReminderKey(interviewID string) string {
	return "reminder-" + interviewID
}

// WelcomeKey returns the idempotency key for a candidate's welcome job
func WelcomeKey(candidateID string) string {
	return "welcome-" + candidateID
}

// EnqueueNotification queues the interview notification mail
func EnqueueNotification(ctx context.Context, q *jobs.Queue, p NotificationPayload) (*jobs.Job, bool, error) {
	payload, err := marshalPayload(p)
	if err != nil {
		return nil, false, err
	}
	return q.Enqueue(ctx, QueueNotification, NotificationKey(p.InterviewID), payload, jobs.Options{})
}

// EnqueueReminder queues the assessment reminder mail, deferred by delay
func EnqueueReminder(ctx context.Context, q *jobs.Queue, p ReminderPayload, delay time.Duration) (*jobs.Job, bool, error) {
	payload, err := marshalPayload(p)
	if err != nil {
		return nil, false, err
	}
	return q.Enqueue(ctx, QueueReminder, ReminderKey(p.InterviewID), payload, jobs.Options{Delay: delay})
}

// EnqueueWelcome queues the candidate welcome mail
func EnqueueWelcome(ctx context.Context, q *jobs.Queue, p WelcomePayload) (*jobs.Job, bool, error) {
	payload, err := marshalPayload(p)
	if err != nil {
		return nil, false, err
	}
	return q.Enqueue(ctx, QueueWelcome, WelcomeKey(p.CandidateID), payload, jobs.Options{})
}
