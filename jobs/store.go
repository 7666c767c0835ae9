package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/talenthos/talenthos/errors"
)

// Store handles persistence of jobs
type Store struct {
	db *sql.DB
}

// NewStore creates a new job store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const jobColumns = `id, queue, idempotency_key, payload, status, attempts,
	max_attempts, run_at, last_error, created_at, started_at, finished_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	var job Job
	var lastError sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Queue,
		&job.IdempotencyKey,
		(*[]byte)(&job.Payload),
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.RunAt,
		&lastError,
		&job.CreatedAt,
		&startedAt,
		&finishedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastError.Valid {
		job.LastError = lastError.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var list []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		list = append(list, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating jobs")
	}
	return list, nil
}

// CreateJob inserts a new job. The (queue, idempotency_key) uniqueness
// constraint makes a duplicate insert a no-op: created reports whether this
// call stored the job.
func (s *Store) CreateJob(ctx context.Context, job *Job) (created bool, err error) {
	query := `
		INSERT OR IGNORE INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	lastError := sql.NullString{String: job.LastError, Valid: job.LastError != ""}

	result, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.Queue,
		job.IdempotencyKey,
		string(job.Payload),
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		job.RunAt,
		lastError,
		job.CreatedAt,
		job.StartedAt,
		job.FinishedAt,
		job.UpdatedAt,
	)
	if err != nil {
		err = errors.Wrap(err, "failed to create job")
		err = errors.WithDetail(err, "queue: "+job.Queue)
		return false, errors.WithDetail(err, "idempotency key: "+job.IdempotencyKey)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf("job not found: %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get job")
	}
	return job, nil
}

// GetByKey retrieves a job by its logical identity
func (s *Store) GetByKey(ctx context.Context, queue, idempotencyKey string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE queue = ? AND idempotency_key = ?`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, queue, idempotencyKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf("job not found: %s/%s", queue, idempotencyKey)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get job by key")
	}
	return job, nil
}

// ClaimNextDue atomically claims the oldest due queued job on the queue:
// status moves queued -> running and the attempt counter increments. The
// status guard in the WHERE clause keeps two claimants from taking the same
// job; on a lost race the claimant simply retries the scan.
func (s *Store) ClaimNextDue(ctx context.Context, queue string, now time.Time) (*Job, error) {
	for {
		query := `SELECT ` + jobColumns + `
			FROM jobs
			WHERE queue = ? AND status = ? AND run_at <= ?
			ORDER BY run_at ASC, created_at ASC
			LIMIT 1`

		job, err := scanJob(s.db.QueryRowContext(ctx, query, queue, StatusQueued, now))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Nothing due
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan due job")
		}

		claim := `
			UPDATE jobs
			SET status = ?, attempts = attempts + 1, started_at = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`
		result, err := s.db.ExecContext(ctx, claim, StatusRunning, now, now, job.ID, StatusQueued)
		if err != nil {
			return nil, errors.Wrap(err, "failed to claim job")
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get rows affected")
		}
		if rows == 0 {
			continue // Lost the claim race, scan again
		}

		job.Status = StatusRunning
		job.Attempts++
		job.StartedAt = &now
		job.UpdatedAt = now
		return job, nil
	}
}

// MarkCompleted records a successful delivery. The queue will not redeliver
// a completed job.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query := `UPDATE jobs SET status = ?, finished_at = ?, updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, StatusCompleted, now, now, id); err != nil {
		err = errors.Wrap(err, "failed to mark job completed")
		return errors.WithDetail(err, "job ID: "+id)
	}
	return nil
}

// ScheduleRetry re-queues a failed delivery for a later attempt
func (s *Store) ScheduleRetry(ctx context.Context, id string, runAt time.Time, lastError string) error {
	now := time.Now().UTC()
	query := `UPDATE jobs SET status = ?, run_at = ?, last_error = ?, updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, StatusQueued, runAt, lastError, now, id); err != nil {
		err = errors.Wrap(err, "failed to schedule job retry")
		return errors.WithDetail(err, "job ID: "+id)
	}
	return nil
}

// MarkFailed parks a job as permanently failed. Failed jobs are retained
// for operator inspection and never redelivered.
func (s *Store) MarkFailed(ctx context.Context, id string, lastError string) error {
	now := time.Now().UTC()
	query := `UPDATE jobs SET status = ?, last_error = ?, finished_at = ?, updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, StatusFailed, lastError, now, now, id); err != nil {
		err = errors.Wrap(err, "failed to mark job failed")
		return errors.WithDetail(err, "job ID: "+id)
	}
	return nil
}

// ListJobs returns jobs, optionally filtered by queue and status
func (s *Store) ListJobs(ctx context.Context, queue *string, status *Status, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var conds []string
	var args []any
	if queue != nil {
		conds = append(conds, "queue = ?")
		args = append(args, *queue)
	}
	if status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *status)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ListFailed returns permanently failed jobs, newest first. This is the
// operator-visible dead-letter view.
func (s *Store) ListFailed(ctx context.Context, limit int) ([]*Job, error) {
	status := StatusFailed
	return s.ListJobs(ctx, nil, &status, limit)
}

// RequeueOrphans re-queues jobs stuck in running state on the queue. Called
// on pool start to recover from ungraceful shutdowns; redelivery is safe
// because handlers guard their own side effects.
func (s *Store) RequeueOrphans(ctx context.Context, queue string) (int, error) {
	now := time.Now().UTC()
	query := `UPDATE jobs SET status = ?, run_at = ?, updated_at = ? WHERE queue = ? AND status = ?`
	result, err := s.db.ExecContext(ctx, query, StatusQueued, now, now, queue, StatusRunning)
	if err != nil {
		return 0, errors.Wrap(err, "failed to requeue orphaned jobs")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(rows), nil
}

// Cleanup applies the retention policy: completed jobs are dropped after
// completedAfter, failed jobs only after the much longer failedAfter.
func (s *Store) Cleanup(ctx context.Context, completedAfter, failedAfter time.Duration) (int, error) {
	now := time.Now().UTC()
	query := `
		DELETE FROM jobs
		WHERE (status = ? AND updated_at < ?)
		   OR (status = ? AND updated_at < ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		StatusCompleted, now.Add(-completedAfter),
		StatusFailed, now.Add(-failedAfter),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old jobs")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(rows), nil
}

// CountByStatus returns job counts per status for a queue
func (s *Store) CountByStatus(ctx context.Context, queue string) (map[Status]int, error) {
	query := `SELECT status, COUNT(*) FROM jobs WHERE queue = ? GROUP BY status`
	rows, err := s.db.QueryContext(ctx, query, queue)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count jobs")
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan job count")
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating job counts")
	}
	return counts, nil
}
