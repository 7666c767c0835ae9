// Package lifecycle is the interview orchestrator: it validates status
// transitions, persists them, and enqueues exactly one background job per
// gating event, keyed by the interview identity.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/talenthos/talenthos/errors"
	"github.com/talenthos/talenthos/evaluate"
	"github.com/talenthos/talenthos/interview"
	"github.com/talenthos/talenthos/jobs"
	"github.com/talenthos/talenthos/notify"
	"github.com/talenthos/talenthos/token"
)

// Token validation failures surfaced to callers. These are terminal:
// callers map them to stable "link unavailable" responses that
// distinguish unknown, expired, and completed links without leaking
// internal state.
var (
	ErrTokenNotFound  = errors.New("assessment link unknown")
	ErrTokenExpired   = errors.New("assessment link expired")
	ErrTokenCompleted = errors.New("assessment already completed")
)

// Config carries the orchestrator's tunables
type Config struct {
	TokenTTL          time.Duration
	ReminderLead      time.Duration // reminder fires this long before token expiry
	AssessmentBaseURL string        // token value is appended as a path segment
}

// Service coordinates interviews, tokens, and background jobs
type Service struct {
	interviews *interview.Store
	tokens     *token.Issuer
	queue      *jobs.Queue
	mailer     notify.Mailer
	deliveries *notify.DeliveryStore
	config     Config
	logger     *zap.SugaredLogger
}

// NewService creates the orchestrator service
func NewService(interviews *interview.Store, tokens *token.Issuer, queue *jobs.Queue, mailer notify.Mailer, deliveries *notify.DeliveryStore, cfg Config, logger *zap.SugaredLogger) *Service {
	return &Service{
		interviews: interviews,
		tokens:     tokens,
		queue:      queue,
		mailer:     mailer,
		deliveries: deliveries,
		config:     cfg,
		logger:     logger.Named("lifecycle"),
	}
}

// CreateInterview stores a new interview in the CREATED state
func (s *Service) CreateInterview(ctx context.Context, candidateID, candidateName, candidateEmail, notes string) (*interview.Interview, error) {
	iv := interview.New(candidateID, candidateName, candidateEmail)
	iv.Notes = notes
	if err := s.interviews.Create(ctx, iv); err != nil {
		return nil, err
	}
	s.logger.Infow("Interview created", "interview_id", iv.ID, "candidate_id", candidateID)
	return iv, nil
}

// WelcomeCandidate enqueues the one-time candidate welcome mail
func (s *Service) WelcomeCandidate(ctx context.Context, candidateID, candidateName, candidateEmail string) error {
	_, created, err := notify.EnqueueWelcome(ctx, s.queue, notify.WelcomePayload{
		CandidateID:    candidateID,
		CandidateName:  candidateName,
		CandidateEmail: candidateEmail,
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.Infow("Welcome mail queued", "candidate_id", candidateID)
	}
	return nil
}

// RequestTransition validates and persists a status change, then enqueues
// the job the new status requires. Rejections carry
// interview.ErrTransitionRejected and are never retried.
func (s *Service) RequestTransition(ctx context.Context, interviewID string, target interview.Status) error {
	iv, err := s.interviews.Get(ctx, interviewID)
	if err != nil {
		return err
	}

	next, err := interview.Transition(iv.Status, target)
	if err != nil {
		return err
	}

	if err := s.interviews.UpdateStatus(ctx, interviewID, iv.Status, next); err != nil {
		return err
	}
	s.logger.Infow("Interview transitioned",
		"interview_id", interviewID,
		"from", iv.Status,
		"to", next,
	)

	switch next {
	case interview.StatusScheduled:
		_, created, err := notify.EnqueueNotification(ctx, s.queue, notify.NotificationPayload{
			InterviewID:    iv.ID,
			CandidateName:  iv.CandidateName,
			CandidateEmail: iv.CandidateEmail,
			ScheduledAt:    iv.ScheduledAt,
		})
		if err != nil {
			return errors.Wrap(err, "interview scheduled but notification enqueue failed")
		}
		s.logJobOutcome("notification", iv.ID, created)
	case interview.StatusEvaluationPending:
		_, created, err := evaluate.Enqueue(ctx, s.queue, evaluate.Payload{
			InterviewID: iv.ID,
			Notes:       iv.Notes,
		})
		if err != nil {
			return errors.Wrap(err, "interview pending evaluation but evaluation enqueue failed")
		}
		s.logJobOutcome("evaluation", iv.ID, created)
	}
	return nil
}

// RequestEvaluation is the recruiter-triggered path to AI evaluation.
// The interview must be COMPLETED; anything else is rejected naming the
// precondition.
func (s *Service) RequestEvaluation(ctx context.Context, interviewID string) error {
	iv, err := s.interviews.Get(ctx, interviewID)
	if err != nil {
		return err
	}
	if iv.Status != interview.StatusCompleted {
		err := errors.Newf("evaluation requires a %s interview, got %s", interview.StatusCompleted, iv.Status)
		return errors.Mark(err, interview.ErrTransitionRejected)
	}
	return s.RequestTransition(ctx, interviewID, interview.StatusEvaluationPending)
}

// IssueAssessmentToken issues a fresh capability token for the interview,
// replacing any prior token, then sends the invite and schedules a
// reminder. Invite delivery failure never invalidates the token.
func (s *Service) IssueAssessmentToken(ctx context.Context, interviewID string) (*token.Token, error) {
	iv, err := s.interviews.Get(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	switch iv.Status {
	case interview.StatusCompleted, interview.StatusEvaluationPending, interview.StatusEvaluated:
		err := errors.Newf("interview %s is already %s; assessment cannot be reopened", interviewID, iv.Status)
		return nil, errors.Mark(err, interview.ErrTransitionRejected)
	}

	t, err := s.tokens.Issue(ctx, interviewID, s.config.TokenTTL)
	if err != nil {
		return nil, err
	}
	assessmentURL := s.config.AssessmentBaseURL + "/" + t.Value

	recipient := notify.Contact{Name: iv.CandidateName, Email: iv.CandidateEmail}
	if err := s.mailer.SendAssessmentInvite(ctx, recipient, assessmentURL, t.ExpiresAt); err != nil {
		// The token stays valid; the recruiter can resend the link.
		s.logger.Warnw("Assessment invite send failed",
			"interview_id", interviewID,
			"error", err,
		)
	} else if _, err := s.deliveries.Record(ctx, notify.KindInvite, interviewID, iv.CandidateEmail); err != nil {
		s.logger.Warnw("Failed to record invite delivery", "interview_id", interviewID, "error", err)
	}

	delay := time.Until(t.ExpiresAt.Add(-s.config.ReminderLead))
	if delay < 0 {
		delay = 0
	}
	_, created, err := notify.EnqueueReminder(ctx, s.queue, notify.ReminderPayload{
		InterviewID:    iv.ID,
		CandidateName:  iv.CandidateName,
		CandidateEmail: iv.CandidateEmail,
		AssessmentURL:  assessmentURL,
		ExpiresAt:      t.ExpiresAt,
	}, delay)
	if err != nil {
		s.logger.Warnw("Failed to enqueue assessment reminder", "interview_id", interviewID, "error", err)
	} else {
		s.logJobOutcome("reminder", iv.ID, created)
	}

	return t, nil
}

// ValidateAssessmentToken classifies a token value for the public flow
func (s *Service) ValidateAssessmentToken(ctx context.Context, tokenValue string) (token.State, error) {
	state, _, err := s.tokens.Validate(ctx, tokenValue, time.Now().UTC())
	return state, err
}

// StartAssessment records the candidate's first entry and moves the
// interview into IN_PROGRESS. Safe to call on every entry: marking the
// token used twice is a no-op, and an interview already past SCHEDULED is
// left alone.
func (s *Service) StartAssessment(ctx context.Context, tokenValue string) error {
	now := time.Now().UTC()
	state, t, err := s.tokens.Validate(ctx, tokenValue, now)
	if err != nil {
		return err
	}
	if err := stateError(state); err != nil {
		return err
	}

	if err := s.tokens.MarkUsed(ctx, tokenValue, now); err != nil {
		return err
	}

	iv, err := s.interviews.Get(ctx, t.InterviewID)
	if err != nil {
		return err
	}
	if iv.Status != interview.StatusScheduled {
		return nil // Already in progress, or a re-entry after the fact
	}
	err = s.interviews.UpdateStatus(ctx, t.InterviewID, interview.StatusScheduled, interview.StatusInProgress)
	if errors.Is(err, interview.ErrStatusConflict) {
		return nil // Concurrent entry won the transition
	}
	return err
}

// CompleteAssessment finalizes the assessment. Idempotent under concurrent
// retries: the token's first-completion bit gates the COMPLETED transition
// and the evaluation enqueue, and the deterministic job key is the second
// barrier if two callers race past the first.
func (s *Service) CompleteAssessment(ctx context.Context, tokenValue string) error {
	now := time.Now().UTC()
	state, t, err := s.tokens.Validate(ctx, tokenValue, now)
	if err != nil {
		return err
	}
	if state == token.StateAlreadyCompleted {
		return nil // Duplicate submission of a finished assessment
	}
	if err := stateError(state); err != nil {
		return err
	}

	first, err := s.tokens.MarkCompleted(ctx, tokenValue, now)
	if err != nil {
		return err
	}
	if !first {
		return nil // Lost the race; the winner runs the transition
	}

	iv, err := s.interviews.Get(ctx, t.InterviewID)
	if err != nil {
		return err
	}

	// SCHEDULED -> COMPLETED is a valid fast path; a candidate who
	// started normally goes IN_PROGRESS -> COMPLETED.
	if iv.Status == interview.StatusScheduled || iv.Status == interview.StatusInProgress {
		err := s.interviews.UpdateStatus(ctx, t.InterviewID, iv.Status, interview.StatusCompleted)
		if err != nil && !errors.Is(err, interview.ErrStatusConflict) {
			return err
		}
	}

	err = s.RequestTransition(ctx, t.InterviewID, interview.StatusEvaluationPending)
	if errors.Is(err, interview.ErrTransitionRejected) {
		// A racing recruiter action may have pushed the interview into
		// evaluation already; completion still succeeded.
		current, getErr := s.interviews.Get(ctx, t.InterviewID)
		if getErr == nil &&
			(current.Status == interview.StatusEvaluationPending || current.Status == interview.StatusEvaluated) {
			return nil
		}
	}
	return err
}

// stateError maps a non-valid token state to its caller-facing error
func stateError(state token.State) error {
	switch state {
	case token.StateValid:
		return nil
	case token.StateNotFound:
		return ErrTokenNotFound
	case token.StateExpired:
		return ErrTokenExpired
	case token.StateAlreadyCompleted:
		return ErrTokenCompleted
	default:
		return errors.Newf("unknown token state %q", state)
	}
}

func (s *Service) logJobOutcome(jobType, interviewID string, created bool) {
	if created {
		s.logger.Infow("Job queued", "job_type", jobType, "interview_id", interviewID)
	} else {
		s.logger.Debugw("Job already queued, deduplicated", "job_type", jobType, "interview_id", interviewID)
	}
}
