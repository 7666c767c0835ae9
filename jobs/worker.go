package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/talenthos/talenthos/errors"
)

// PoolConfig contains configuration for a worker pool
type PoolConfig struct {
	Workers        int           // Concurrent workers pulling from the queue
	PollInterval   time.Duration // How often an idle worker checks for work
	HandlerTimeout time.Duration // Per-attempt execution deadline (0 = none)
	BackoffBase    time.Duration // First retry delay; doubles per attempt
}

// DefaultPoolConfig returns sensible defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:      1,
		PollInterval: time.Second,
		BackoffBase:  DefaultBackoffBase,
	}
}

// WorkerPool processes jobs from exactly one named queue with bounded
// concurrency. Pools for different queues are independent: no ordering is
// guaranteed between jobs, within or across queues.
type WorkerPool struct {
	queue     *Queue
	queueName string
	handler   Handler
	config    PoolConfig
	parentCtx context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *zap.SugaredLogger
}

// NewWorkerPool creates a pool bound to the handler's queue. The pool
// derives its lifecycle from ctx: cancelling the parent stops the workers.
func NewWorkerPool(ctx context.Context, queue *Queue, handler Handler, cfg PoolConfig, logger *zap.SugaredLogger) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}

	poolCtx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		queue:     queue,
		queueName: handler.Queue(),
		handler:   handler,
		config:    cfg,
		parentCtx: ctx,
		ctx:       poolCtx,
		cancel:    cancel,
		logger:    logger.Named("jobs").With("queue", handler.Queue()),
	}
}

// Start recovers orphaned jobs and begins processing
func (wp *WorkerPool) Start() {
	// Recreate the context if the pool was stopped and restarted
	select {
	case <-wp.ctx.Done():
		wp.ctx, wp.cancel = context.WithCancel(wp.parentCtx)
	default:
	}

	// Jobs left running by a crash are redelivered; handler idempotency
	// guards make the redelivery safe.
	recovered, err := wp.queue.Store().RequeueOrphans(wp.ctx, wp.queueName)
	if err != nil {
		wp.logger.Warnw("Failed to recover orphaned jobs", "error", err)
	} else if recovered > 0 {
		wp.logger.Infow("Recovered orphaned jobs", "count", recovered)
	}

	for i := 0; i < wp.config.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Infow("Worker pool started", "workers", wp.config.Workers)
}

// Stop cancels the workers and waits for in-flight jobs to finish, up to a
// 30-second drain timeout.
func (wp *WorkerPool) Stop() {
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Infow("Worker pool stopped")
	case <-time.After(30 * time.Second):
		wp.logger.Warnw("Worker pool stop timed out; workers may still be draining")
	}
}

// Workers returns the configured concurrency
func (wp *WorkerPool) Workers() int {
	return wp.config.Workers
}

// worker polls the queue until the pool context is cancelled
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case <-ticker.C:
			for {
				processed, err := wp.processNextJob(id)
				if err != nil {
					select {
					case <-wp.ctx.Done():
						return // Shutdown in progress; errors are expected
					default:
					}
					wp.logger.Errorw("Worker error", "worker_id", id, "error", err)
					break
				}
				if !processed {
					break // Queue drained; back to polling
				}
			}
		}
	}
}

// jobSubject extracts the interview/candidate id carried by every payload
// variant, for the per-attempt log record.
func jobSubject(job *Job) string {
	var subject struct {
		InterviewID string `json:"interview_id"`
		CandidateID string `json:"candidate_id"`
	}
	if err := json.Unmarshal(job.Payload, &subject); err != nil {
		return ""
	}
	if subject.InterviewID != "" {
		return subject.InterviewID
	}
	return subject.CandidateID
}

// processNextJob claims and runs one job. Returns whether a job was
// processed so the caller can drain the queue before sleeping again.
func (wp *WorkerPool) processNextJob(workerID int) (bool, error) {
	select {
	case <-wp.ctx.Done():
		return false, nil
	default:
	}

	job, err := wp.queue.Dequeue(wp.ctx, wp.queueName)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	attemptLog := wp.logger.With(
		"job_id", job.ID,
		"subject", jobSubject(job),
		"attempt", job.Attempts,
		"max_attempts", job.MaxAttempts,
		"worker_id", workerID,
	)

	execCtx := wp.ctx
	var cancel context.CancelFunc
	if wp.config.HandlerTimeout > 0 {
		execCtx, cancel = context.WithTimeout(wp.ctx, wp.config.HandlerTimeout)
		defer cancel()
	}

	execErr := wp.handler.Execute(execCtx, job)
	if execErr == nil {
		attemptLog.Infow("Job attempt succeeded", "outcome", "completed")
		return true, wp.queue.Complete(wp.ctx, job)
	}

	// Shutdown cancellation is not a failure: re-queue for immediate
	// redelivery after restart.
	select {
	case <-wp.ctx.Done():
		attemptLog.Infow("Job interrupted by shutdown, re-queuing", "outcome", "requeued")
		if err := wp.queue.Store().ScheduleRetry(context.Background(), job.ID, time.Now().UTC(), "interrupted by shutdown"); err != nil {
			attemptLog.Errorw("Failed to re-queue interrupted job", "error", err)
		}
		return true, nil
	default:
	}

	if IsPermanent(execErr) {
		attemptLog.Warnw("Job failed permanently", "outcome", "failed", "error", execErr)
		return true, wp.queue.Fail(wp.ctx, job, execErr)
	}

	if job.Attempts >= job.MaxAttempts {
		attemptLog.Warnw("Job exhausted attempts", "outcome", "failed", "error", execErr)
		cause := errors.Wrapf(execErr, "exhausted %d attempts", job.MaxAttempts)
		return true, wp.queue.Fail(wp.ctx, job, cause)
	}

	delay := Backoff(wp.config.BackoffBase, job.Attempts)
	attemptLog.Infow("Job attempt failed, retry scheduled",
		"outcome", "retry",
		"retry_in", delay,
		"error", execErr,
	)
	return true, wp.queue.Retry(wp.ctx, job, delay, execErr)
}

// Janitor applies the job retention policy on a coarse interval
type Janitor struct {
	store              *Store
	interval           time.Duration
	completedRetention time.Duration
	failedRetention    time.Duration
	ctx                context.Context
	cancel             context.CancelFunc
	wg                 sync.WaitGroup
	logger             *zap.SugaredLogger
}

// NewJanitor creates a retention janitor
func NewJanitor(ctx context.Context, store *Store, interval, completedRetention, failedRetention time.Duration, logger *zap.SugaredLogger) *Janitor {
	jctx, cancel := context.WithCancel(ctx)
	return &Janitor{
		store:              store,
		interval:           interval,
		completedRetention: completedRetention,
		failedRetention:    failedRetention,
		ctx:                jctx,
		cancel:             cancel,
		logger:             logger.Named("jobs.janitor"),
	}
}

// Start begins periodic cleanup
func (j *Janitor) Start() {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-j.ctx.Done():
				return
			case <-ticker.C:
				removed, err := j.store.Cleanup(j.ctx, j.completedRetention, j.failedRetention)
				if err != nil {
					j.logger.Warnw("Job cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					j.logger.Infow("Removed old jobs", "count", removed)
				}
			}
		}
	}()
}

// Stop cancels the janitor and waits for it to exit
func (j *Janitor) Stop() {
	j.cancel()
	j.wg.Wait()
}
