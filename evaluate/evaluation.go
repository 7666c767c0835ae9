// Package evaluate owns the AI evaluation queue: running the external
// evaluator over interview notes and persisting the single evaluation
// record per interview.
package evaluate

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/talenthos/talenthos/errors"
)

// QueueEvaluation is the queue name owned by this package
const QueueEvaluation = "evaluation"

// Evaluation is the terminal artifact of the evaluation job. At most one
// exists per interview; the storage uniqueness constraint makes its
// creation idempotent across job redeliveries.
type Evaluation struct {
	ID          string    `json:"id"`
	InterviewID string    `json:"interview_id"`
	Score       float64   `json:"score"`
	Summary     string    `json:"summary"`
	Strengths   []string  `json:"strengths"`
	Risks       []string  `json:"risks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store handles persistence of evaluations
type Store struct {
	db *sql.DB
}

// NewStore creates a new evaluation store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertResult stores an evaluation. A duplicate for the interview is a
// no-op: created reports whether this call wrote the row. Idempotency
// collisions are success, not errors.
func (s *Store) InsertResult(ctx context.Context, ev *Evaluation) (created bool, err error) {
	strengths, err := json.Marshal(ev.Strengths)
	if err != nil {
		return false, errors.Wrap(err, "failed to marshal strengths")
	}
	risks, err := json.Marshal(ev.Risks)
	if err != nil {
		return false, errors.Wrap(err, "failed to marshal risks")
	}

	query := `
		INSERT OR IGNORE INTO evaluations (id, interview_id, score, summary, strengths, risks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		ev.ID,
		ev.InterviewID,
		ev.Score,
		ev.Summary,
		string(strengths),
		string(risks),
		ev.CreatedAt,
	)
	if err != nil {
		err = errors.Wrap(err, "failed to insert evaluation")
		return false, errors.WithDetail(err, "interview ID: "+ev.InterviewID)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

// GetByInterview retrieves an interview's evaluation, or nil when none exists
func (s *Store) GetByInterview(ctx context.Context, interviewID string) (*Evaluation, error) {
	query := `
		SELECT id, interview_id, score, summary, strengths, risks, created_at
		FROM evaluations WHERE interview_id = ?
	`
	var ev Evaluation
	var strengths, risks string
	err := s.db.QueryRowContext(ctx, query, interviewID).Scan(
		&ev.ID,
		&ev.InterviewID,
		&ev.Score,
		&ev.Summary,
		&strengths,
		&risks,
		&ev.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get evaluation")
	}
	if err := json.Unmarshal([]byte(strengths), &ev.Strengths); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal strengths")
	}
	if err := json.Unmarshal([]byte(risks), &ev.Risks); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal risks")
	}
	return &ev, nil
}

// NewEvaluation builds an evaluation row from an evaluator result
func NewEvaluation(interviewID string, result *Result) *Evaluation {
	return &Evaluation{
		ID:          uuid.NewString(),
		InterviewID: interviewID,
		Score:       result.Score,
		Summary:     result.Summary,
		Strengths:   result.Strengths,
		Risks:       result.Risks,
		CreatedAt:   time.Now().UTC(),
	}
}
