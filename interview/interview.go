package interview

import (
	"time"

	"github.com/google/uuid"
)

// Interview represents a scheduled interview with a candidate.
// Status changes only through the transition table; stores enforce this
// with compare-and-set updates.
type Interview struct {
	ID             string     `json:"id"`
	CandidateID    string     `json:"candidate_id"`
	CandidateName  string     `json:"candidate_name,omitempty"`
	CandidateEmail string     `json:"candidate_email,omitempty"`
	Status         Status     `json:"status"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// New creates an interview in the CREATED state
func New(candidateID, candidateName, candidateEmail string) *Interview {
	now := time.Now().UTC()
	return &Interview{
		ID:             uuid.NewString(),
		CandidateID:    candidateID,
		CandidateName:  candidateName,
		CandidateEmail: candidateEmail,
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
