package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/talenthos/talenthos/errors"
)

// Queue is the durable job queue. A single Queue serves every named queue
// in the database; worker pools bind to one queue name each.
//
// Delivery guarantee is at-least-once: a job is redelivered until a worker
// acknowledges completion, so handlers must make their side effects
// idempotent. Enqueue is exactly-once per (queue, idempotency key).
type Queue struct {
	store *Store
	mu    sync.Mutex // serializes claims across worker pools

	subMu       sync.RWMutex
	subscribers []chan *Job
}

// NewQueue creates a new job queue
func NewQueue(db *sql.DB) *Queue {
	return &Queue{
		store: NewStore(db),
	}
}

// SubscriberChannelBufferSize is the buffer size for subscriber channels
const SubscriberChannelBufferSize = 100

// Enqueue adds a job to the named queue. Enqueuing twice with the same
// (queue, idempotency key) is success-no-op: the returned job is the one
// already stored and created is false. The duplicate path is a tagged
// result, not an error.
func (q *Queue) Enqueue(ctx context.Context, queue, idempotencyKey string, payload json.RawMessage, opts Options) (job *Job, created bool, err error) {
	job, err = newJob(queue, idempotencyKey, payload, opts)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to enqueue job")
	}

	created, err = q.store.CreateJob(ctx, job)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Logical duplicate - hand back the job that won
		existing, err := q.store.GetByKey(ctx, queue, idempotencyKey)
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to load existing job after duplicate enqueue")
		}
		return existing, false, nil
	}

	q.notifySubscribers(job)
	return job, true, nil
}

// Dequeue claims the next due job on the queue, or nil when none is due
func (q *Queue) Dequeue(ctx context.Context, queue string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.ClaimNextDue(ctx, queue, time.Now().UTC())
	if err != nil {
		err = errors.Wrap(err, "failed to dequeue job")
		return nil, errors.WithDetail(err, "queue: "+queue)
	}
	if job != nil {
		q.notifySubscribers(job)
	}
	return job, nil
}

// Complete acknowledges a successful delivery
func (q *Queue) Complete(ctx context.Context, job *Job) error {
	if err := q.store.MarkCompleted(ctx, job.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	job.Status = StatusCompleted
	job.FinishedAt = &now
	job.UpdatedAt = now
	q.notifySubscribers(job)
	return nil
}

// Retry re-queues a failed delivery with the given backoff delay
func (q *Queue) Retry(ctx context.Context, job *Job, delay time.Duration, cause error) error {
	runAt := time.Now().UTC().Add(delay)
	if err := q.store.ScheduleRetry(ctx, job.ID, runAt, cause.Error()); err != nil {
		return err
	}
	job.Status = StatusQueued
	job.RunAt = runAt
	job.LastError = cause.Error()
	q.notifySubscribers(job)
	return nil
}

// Fail parks a job as permanently failed (dead-letter)
func (q *Queue) Fail(ctx context.Context, job *Job, cause error) error {
	if err := q.store.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		return err
	}
	now := time.Now().UTC()
	job.Status = StatusFailed
	job.LastError = cause.Error()
	job.FinishedAt = &now
	job.UpdatedAt = now
	q.notifySubscribers(job)
	return nil
}

// Store exposes the underlying store for operator views and recovery
func (q *Queue) Store() *Store {
	return q.store
}

// Subscribe returns a buffered channel receiving job updates. The caller
// must call Unsubscribe when done; the queue never closes the channel.
func (q *Queue) Subscribe() chan *Job {
	q.subMu.Lock()
	defer q.subMu.Unlock()

	ch := make(chan *Job, SubscriberChannelBufferSize)
	q.subscribers = append(q.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel from the queue
func (q *Queue) Unsubscribe(ch chan *Job) {
	q.subMu.Lock()
	defer q.subMu.Unlock()

	for i, sub := range q.subscribers {
		if sub == ch {
			q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
			return
		}
	}
}

// notifySubscribers uses non-blocking sends so a slow subscriber cannot
// stall delivery.
func (q *Queue) notifySubscribers(job *Job) {
	q.subMu.RLock()
	defer q.subMu.RUnlock()

	for _, ch := range q.subscribers {
		select {
		case ch <- job:
		default:
		}
	}
}
