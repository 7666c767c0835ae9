package evaluate

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/talenthos/talenthos/errors"
	"github.com/talenthos/talenthos/interview"
	"github.com/talenthos/talenthos/jobs"
)

// Handler runs AI evaluations from the evaluation queue.
//
// The artifact-first ordering makes redelivery safe: the evaluation row is
// written under its uniqueness constraint before the status transition, so
// a crash between the two steps leaves a redelivered job that only repeats
// the missing transition.
type Handler struct {
	evaluations *Store
	interviews  *interview.Store
	evaluator   Evaluator
	limiter     *rate.Limiter
	logger      *zap.SugaredLogger
}

// NewHandler creates the evaluation queue handler. limiter caps calls into
// the rate-limited AI collaborator and may be nil to disable limiting in
// tests.
func NewHandler(evaluations *Store, interviews *interview.Store, evaluator Evaluator, limiter *rate.Limiter, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		evaluations: evaluations,
		interviews:  interviews,
		evaluator:   evaluator,
		limiter:     limiter,
		logger:      logger.Named("evaluate"),
	}
}

// Queue implements jobs.Handler
func (h *Handler) Queue() string { return QueueEvaluation }

// Execute processes one evaluation job delivery
func (h *Handler) Execute(ctx context.Context, job *jobs.Job) error {
	var p Payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return jobs.Permanent(errors.Wrap(err, "failed to decode evaluation payload"))
	}
	if err := p.Validate(); err != nil {
		return jobs.Permanent(err)
	}

	// Idempotency guard: an existing evaluation means the external call
	// already succeeded on a previous delivery. Only the status
	// transition may still be missing.
	existing, err := h.evaluations.GetByInterview(ctx, p.InterviewID)
	if err != nil {
		return err
	}
	if existing != nil {
		h.logger.Debugw("Evaluation already recorded, finishing transition only", "interview_id", p.InterviewID)
		return h.finishTransition(ctx, p.InterviewID)
	}

	iv, err := h.interviews.Get(ctx, p.InterviewID)
	if err != nil {
		if errors.Is(err, interview.ErrNotFound) {
			return jobs.Permanent(err)
		}
		return err
	}
	if iv.Status != interview.StatusEvaluationPending {
		// An evaluation job for an interview outside EVALUATION_PENDING
		// means a logic error upstream, not a transient fault. Retrying
		// cannot fix it.
		err := errors.Newf("interview %s is %s, expected %s", iv.ID, iv.Status, interview.StatusEvaluationPending)
		return jobs.Permanent(err)
	}

	notes := p.Notes
	if notes == "" {
		notes = iv.Notes
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter wait interrupted")
		}
	}

	result, err := h.evaluator.Evaluate(ctx, notes)
	if err != nil {
		err = errors.Wrap(err, "AI evaluation failed")
		return errors.WithDetail(err, "interview ID: "+p.InterviewID)
	}

	created, err := h.evaluations.InsertResult(ctx, NewEvaluation(p.InterviewID, result))
	if err != nil {
		return err
	}
	if !created {
		h.logger.Debugw("Evaluation raced another writer, keeping existing row", "interview_id", p.InterviewID)
	}

	return h.finishTransition(ctx, p.InterviewID)
}

// finishTransition moves the interview to EVALUATED if it is not there yet
func (h *Handler) finishTransition(ctx context.Context, interviewID string) error {
	iv, err := h.interviews.Get(ctx, interviewID)
	if err != nil {
		return err
	}
	if iv.Status == interview.StatusEvaluated {
		return nil
	}
	if _, err := interview.Transition(iv.Status, interview.StatusEvaluated); err != nil {
		return jobs.Permanent(err)
	}
	err = h.interviews.UpdateStatus(ctx, interviewID, iv.Status, interview.StatusEvaluated)
	if errors.Is(err, interview.ErrStatusConflict) {
		// Another delivery finished the transition first
		current, getErr := h.interviews.Get(ctx, interviewID)
		if getErr != nil {
			return getErr
		}
		if current.Status == interview.StatusEvaluated {
			return nil
		}
		return err
	}
	return err
}
