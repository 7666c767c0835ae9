// Package interview owns the interview lifecycle: the status state machine,
// persistence, and the orchestration service that ties transitions to
// background jobs.
package interview

import (
	"github.com/talenthos/talenthos/errors"
)

// Status represents the lifecycle state of an interview
type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusScheduled         Status = "SCHEDULED"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusCompleted         Status = "COMPLETED"
	StatusEvaluationPending Status = "EVALUATION_PENDING"
	StatusEvaluated         Status = "EVALUATED"
)

// IsValidStatus returns true if the status string is a valid Status
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusCreated, StatusScheduled, StatusInProgress,
		StatusCompleted, StatusEvaluationPending, StatusEvaluated:
		return true
	default:
		return false
	}
}

// ErrTransitionRejected marks every rejected transition. Callers use
// errors.Is to distinguish a caller error from an infrastructure failure.
var ErrTransitionRejected = errors.New("transition rejected")

// transitions is the single source of truth for status changes. No writer
// may set interview status except through Transition.
var transitions = map[Status][]Status{
	StatusCreated:           {StatusScheduled},
	StatusScheduled:         {StatusInProgress, StatusCompleted},
	StatusInProgress:        {StatusCompleted},
	StatusCompleted:         {StatusEvaluationPending},
	StatusEvaluationPending: {StatusEvaluated},
	StatusEvaluated:         {}, // terminal
}

// Transition validates a status change and returns the next status.
// Pure and side-effect-free: safe to call speculatively before any write.
//
// A request for the current status is rejected; callers that want
// "already there" semantics must check for it themselves.
func Transition(current, requested Status) (Status, error) {
	if !IsValidStatus(string(current)) {
		return "", errors.Mark(errors.Newf("unknown interview status %q", current), ErrTransitionRejected)
	}
	if !IsValidStatus(string(requested)) {
		return "", errors.Mark(errors.Newf("unknown interview status %q", requested), ErrTransitionRejected)
	}
	if current == requested {
		return "", errors.Mark(
			errors.Newf("interview already in status %s", current),
			ErrTransitionRejected,
		)
	}
	for _, next := range transitions[current] {
		if next == requested {
			return requested, nil
		}
	}
	return "", errors.Mark(
		errors.Newf("cannot transition interview from %s to %s", current, requested),
		ErrTransitionRejected,
	)
}
