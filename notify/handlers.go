package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/talenthos/talenthos/errors"
	"github.com/talenthos/talenthos/interview"
	"github.com/talenthos/talenthos/jobs"
)

// NotificationHandler sends interview notification mail
type NotificationHandler struct {
	deliveries *DeliveryStore
	mailer     Mailer
	logger     *zap.SugaredLogger
}

// NewNotificationHandler creates the notification queue handler
func NewNotificationHandler(deliveries *DeliveryStore, mailer Mailer, logger *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{
		deliveries: deliveries,
		mailer:     mailer,
		logger:     logger.Named("notify"),
	}
}

// Queue implements jobs.Handler
func (h *NotificationHandler) Queue() string { return QueueNotification }

// Execute sends the notification unless the delivery log shows it already
// went out. A malformed payload cannot retry into success, so it fails
// permanently.
func (h *NotificationHandler) Execute(ctx context.Context, job *jobs.Job) error {
	var p NotificationPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return jobs.Permanent(errors.Wrap(err, "failed to decode notification payload"))
	}
	if err := p.Validate(); err != nil {
		return jobs.Permanent(err)
	}

	sent, err := h.deliveries.Exists(ctx, KindNotification, p.InterviewID)
	if err != nil {
		return err
	}
	if sent {
		h.logger.Debugw("Notification already delivered, skipping", "interview_id", p.InterviewID)
		return nil
	}

	recipient := Contact{Name: p.CandidateName, Email: p.CandidateEmail}
	details := InterviewDetails{InterviewID: p.InterviewID, ScheduledAt: p.ScheduledAt}
	if err := h.mailer.SendInterviewNotification(ctx, recipient, details); err != nil {
		err = errors.Wrap(err, "failed to send interview notification")
		return errors.WithDetail(err, "interview ID: "+p.InterviewID)
	}

	if _, err := h.deliveries.Record(ctx, KindNotification, p.InterviewID, p.CandidateEmail); err != nil {
		return err
	}
	return nil
}

// ReminderHandler sends assessment reminder mail. Reminders are enqueued
// with a delay when the invite goes out; by the time one is due the
// assessment may already be done or the token expired, in which case the
// job succeeds without sending.
type ReminderHandler struct {
	deliveries *DeliveryStore
	interviews *interview.Store
	mailer     Mailer
	logger     *zap.SugaredLogger
}

// NewReminderHandler creates the reminder queue handler
func NewReminderHandler(deliveries *DeliveryStore, interviews *interview.Store, mailer Mailer, logger *zap.SugaredLogger) *ReminderHandler {
	return &ReminderHandler{
		deliveries: deliveries,
		interviews: interviews,
		mailer:     mailer,
		logger:     logger.Named("notify"),
	}
}

// Queue implements jobs.Handler
func (h *ReminderHandler) Queue() string { return QueueReminder }

// Execute sends the reminder unless it is moot or already delivered
func (h *ReminderHandler) Execute(ctx context.Context, job *jobs.Job) error {
	var p ReminderPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return jobs.Permanent(errors.Wrap(err, "failed to decode reminder payload"))
	}
	if err := p.Validate(); err != nil {
		return jobs.Permanent(err)
	}

	sent, err := h.deliveries.Exists(ctx, KindReminder, p.InterviewID)
	if err != nil {
		return err
	}
	if sent {
		return nil
	}

	if time.Now().UTC().After(p.ExpiresAt) {
		h.logger.Debugw("Token expired before reminder, skipping", "interview_id", p.InterviewID)
		return nil
	}

	iv, err := h.interviews.Get(ctx, p.InterviewID)
	if err != nil {
		if errors.Is(err, interview.ErrNotFound) {
			return jobs.Permanent(err)
		}
		return err
	}
	switch iv.Status {
	case interview.StatusCompleted, interview.StatusEvaluationPending, interview.StatusEvaluated:
		h.logger.Debugw("Assessment already completed, skipping reminder", "interview_id", p.InterviewID)
		return nil
	}

	recipient := Contact{Name: p.CandidateName, Email: p.CandidateEmail}
	if err := h.mailer.SendReminder(ctx, recipient, p.AssessmentURL, p.ExpiresAt); err != nil {
		err = errors.Wrap(err, "failed to send assessment reminder")
		return errors.WithDetail(err, "interview ID: "+p.InterviewID)
	}

	if _, err := h.deliveries.Record(ctx, KindReminder, p.InterviewID, p.CandidateEmail); err != nil {
		return err
	}
	return nil
}

// WelcomeHandler sends the candidate welcome mail
type WelcomeHandler struct {
	deliveries *DeliveryStore
	mailer     Mailer
	logger     *zap.SugaredLogger
}

// NewWelcomeHandler creates the welcome queue handler
func NewWelcomeHandler(deliveries *DeliveryStore, mailer Mailer, logger *zap.SugaredLogger) *WelcomeHandler {
	return &WelcomeHandler{
		deliveries: deliveries,
		mailer:     mailer,
		logger:     logger.Named("notify"),
	}
}

// Queue implements jobs.Handler
func (h *WelcomeHandler) Queue() string { return QueueWelcome }

// Execute sends the welcome mail once per candidate
func (h *WelcomeHandler) Execute(ctx context.Context, job *jobs.Job) error {
	var p WelcomePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return jobs.Permanent(errors.Wrap(err, "failed to decode welcome payload"))
	}
	if err := p.Validate(); err != nil {
		return jobs.Permanent(err)
	}

	sent, err := h.deliveries.Exists(ctx, KindWelcome, p.CandidateID)
	if err != nil {
		return err
	}
	if sent {
		return nil
	}

	recipient := Contact{Name: p.CandidateName, Email: p.CandidateEmail}
	if err := h.mailer.SendWelcome(ctx, recipient); err != nil {
		err = errors.Wrap(err, "failed to send welcome mail")
		return errors.WithDetail(err, "candidate ID: "+p.CandidateID)
	}

	if _, err := h.deliveries.Record(ctx, KindWelcome, p.CandidateID, p.CandidateEmail); err != nil {
		return err
	}
	return nil
}
