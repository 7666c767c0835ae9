package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/talenthos/talenthos/errors"
)

// DeliveryStore records sent mail. The UNIQUE(kind, subject_id) constraint
// is the worker-side idempotency guard: a redelivered job finds the row and
// returns success without contacting the mailer again.
type DeliveryStore struct {
	db *sql.DB
}

// NewDeliveryStore creates a delivery log store
func NewDeliveryStore(db *sql.DB) *DeliveryStore {
	return &DeliveryStore{db: db}
}

// Exists reports whether a delivery of this kind was already recorded for
// the subject.
func (s *DeliveryStore) Exists(ctx context.Context, kind, subjectID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM deliveries WHERE kind = ? AND subject_id = ?)`
	if err := s.db.QueryRowContext(ctx, query, kind, subjectID).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to check delivery log")
	}
	return exists, nil
}

// Record logs a completed delivery. A duplicate record is a no-op; created
// reports whether this call wrote the row.
func (s *DeliveryStore) Record(ctx context.Context, kind, subjectID, recipient string) (created bool, err error) {
	query := `
		INSERT OR IGNORE INTO deliveries (id, kind, subject_id, recipient, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, uuid.NewString(), kind, subjectID, recipient, time.Now().UTC())
	if err != nil {
		err = errors.Wrap(err, "failed to record delivery")
		return false, errors.WithDetailf(err, "delivery: %s/%s", kind, subjectID)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}
