package interview

import (
	"context"
	"database/sql"
	"time"

	"github.com/talenthos/talenthos/errors"
)

// ErrNotFound is returned when an interview does not exist
var ErrNotFound = errors.New("interview not found")

// ErrStatusConflict is returned when a compare-and-set status update loses
// to a concurrent writer. The caller should re-read and re-validate.
var ErrStatusConflict = errors.New("interview status changed concurrently")

// Store handles persistence of interviews
type Store struct {
	db *sql.DB
}

// NewStore creates a new interview store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new interview
func (s *Store) Create(ctx context.Context, iv *Interview) error {
	query := `
		INSERT INTO interviews (
			id, candidate_id, candidate_name, candidate_email,
			status, scheduled_at, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		iv.ID,
		iv.CandidateID,
		iv.CandidateName,
		iv.CandidateEmail,
		iv.Status,
		iv.ScheduledAt,
		iv.Notes,
		iv.CreatedAt,
		iv.UpdatedAt,
	)
	if err != nil {
		err = errors.Wrap(err, "failed to create interview")
		return errors.WithDetail(err, "interview ID: "+iv.ID)
	}
	return nil
}

// Get retrieves an interview by ID
func (s *Store) Get(ctx context.Context, id string) (*Interview, error) {
	query := `
		SELECT id, candidate_id, candidate_name, candidate_email,
		       status, scheduled_at, notes, created_at, updated_at
		FROM interviews WHERE id = ?
	`
	var iv Interview
	var scheduledAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&iv.ID,
		&iv.CandidateID,
		&iv.CandidateName,
		&iv.CandidateEmail,
		&iv.Status,
		&scheduledAt,
		&iv.Notes,
		&iv.CreatedAt,
		&iv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Mark(errors.Newf("interview not found: %s", id), ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get interview")
	}
	if scheduledAt.Valid {
		iv.ScheduledAt = &scheduledAt.Time
	}
	return &iv, nil
}

// UpdateStatus performs a compare-and-set status update. The from status is
// part of the WHERE clause, so racing writers collapse to one winner; the
// losers get ErrStatusConflict.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	query := `UPDATE interviews SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := s.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		err = errors.Wrap(err, "failed to update interview status")
		err = errors.WithDetail(err, "interview ID: "+id)
		return errors.WithDetailf(err, "transition: %s -> %s", from, to)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		// Either the interview is gone or another writer moved it first
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		err := errors.Mark(errors.Newf("interview %s is no longer in status %s", id, from), ErrStatusConflict)
		return errors.WithDetailf(err, "attempted transition: %s -> %s", from, to)
	}
	return nil
}

// SetSchedule updates scheduling metadata without touching status
func (s *Store) SetSchedule(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE interviews SET scheduled_at = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, at, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to set interview schedule")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Mark(errors.Newf("interview not found: %s", id), ErrNotFound)
	}
	return nil
}

// SetNotes replaces the free-text notes consumed by evaluation
func (s *Store) SetNotes(ctx context.Context, id string, notes string) error {
	query := `UPDATE interviews SET notes = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, notes, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to set interview notes")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Mark(errors.Newf("interview not found: %s", id), ErrNotFound)
	}
	return nil
}
