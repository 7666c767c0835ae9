package token

import (
	"context"
	"database/sql"
	"time"

	"github.com/talenthos/talenthos/errors"
)

// Issuer creates, validates, and consumes assessment tokens.
// Validation failures are terminal for the caller; nothing here retries.
type Issuer struct {
	db *sql.DB
}

// NewIssuer creates a token issuer backed by the given database
func NewIssuer(db *sql.DB) *Issuer {
	return &Issuer{db: db}
}

// Issue creates a fresh token for the interview, replacing any existing
// token. Delete-then-insert runs in one transaction under the interview_id
// uniqueness constraint, so exactly one token is live at any time and the
// replaced token stops validating immediately.
func (i *Issuer) Issue(ctx context.Context, interviewID string, ttl time.Duration) (*Token, error) {
	value, err := newValue()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Token{
		Value:       value,
		InterviewID: interviewID,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin token transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_tokens WHERE interview_id = ?`, interviewID); err != nil {
		err = errors.Wrap(err, "failed to revoke prior token")
		return nil, errors.WithDetail(err, "interview ID: "+interviewID)
	}

	query := `
		INSERT INTO assessment_tokens (value, interview_id, expires_at, used_at, completed_at, created_at)
		VALUES (?, ?, ?, NULL, NULL, ?)
	`
	if _, err := tx.ExecContext(ctx, query, t.Value, t.InterviewID, t.ExpiresAt, t.CreatedAt); err != nil {
		err = errors.Wrap(err, "failed to insert token")
		return nil, errors.WithDetail(err, "interview ID: "+interviewID)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit token transaction")
	}
	return t, nil
}

// Get retrieves a token by value, or nil when unknown
func (i *Issuer) Get(ctx context.Context, value string) (*Token, error) {
	query := `
		SELECT value, interview_id, expires_at, used_at, completed_at, created_at
		FROM assessment_tokens WHERE value = ?
	`
	var t Token
	var usedAt, completedAt sql.NullTime
	err := i.db.QueryRowContext(ctx, query, value).Scan(
		&t.Value,
		&t.InterviewID,
		&t.ExpiresAt,
		&usedAt,
		&completedAt,
		&t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token")
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

// Validate classifies a token value at the given instant. The check order
// is existence, then completion, then expiry (see stateOf).
func (i *Issuer) Validate(ctx context.Context, value string, now time.Time) (State, *Token, error) {
	t, err := i.Get(ctx, value)
	if err != nil {
		return "", nil, err
	}
	if t == nil {
		return StateNotFound, nil, nil
	}
	return stateOf(t, now), t, nil
}

// MarkUsed records the first candidate entry. Idempotent: a token whose
// usedAt is already set is left untouched and no error is returned.
func (i *Issuer) MarkUsed(ctx context.Context, value string, now time.Time) error {
	query := `UPDATE assessment_tokens SET used_at = ? WHERE value = ? AND used_at IS NULL`
	if _, err := i.db.ExecContext(ctx, query, now, value); err != nil {
		return errors.Wrap(err, "failed to mark token used")
	}
	return nil
}

// MarkCompleted finalizes the token. Idempotent; the guarded update means
// exactly one caller observes first == true even under concurrent retries,
// which is the barrier that keeps the COMPLETED transition and the
// evaluation enqueue from running twice.
func (i *Issuer) MarkCompleted(ctx context.Context, value string, now time.Time) (first bool, err error) {
	query := `UPDATE assessment_tokens SET completed_at = ? WHERE value = ? AND completed_at IS NULL`
	result, err := i.db.ExecContext(ctx, query, now, value)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark token completed")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}
