package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LogMailer is a development Mailer that writes deliveries to the log
// instead of sending mail. It never fails.
type LogMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendInterviewNotification(_ context.Context, recipient Contact, details InterviewDetails) error {
	m.logger.Infow("mail: interview notification",
		"to", recipient.Email,
		"interview_id", details.InterviewID,
		"scheduled_at", details.ScheduledAt)
	return nil
}

func (m *LogMailer) SendAssessmentInvite(_ context.Context, recipient Contact, assessmentURL string, expiresAt time.Time) error {
	m.logger.Infow("mail: assessment invite",
		"to", recipient.Email,
		"url", assessmentURL,
		"expires_at", expiresAt)
	return nil
}

func (m *LogMailer) SendReminder(_ context.Context, recipient Contact, assessmentURL string, expiresAt time.Time) error {
	m.logger.Infow("mail: assessment reminder",
		"to", recipient.Email,
		"url", assessmentURL,
		"expires_at", expiresAt)
	return nil
}

func (m *LogMailer) SendWelcome(_ context.Context, recipient Contact) error {
	m.logger.Infow("mail: candidate welcome", "to", recipient.Email, "name", recipient.Name)
	return nil
}
