package jobs

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talenthos/talenthos/errors"
	thtest "github.com/talenthos/talenthos/internal/testing"
)

// stubHandler lets tests script per-attempt outcomes
type stubHandler struct {
	queue string
	calls atomic.Int32
	fn    func(attempt int32, job *Job) error
}

func (h *stubHandler) Queue() string { return h.queue }

func (h *stubHandler) Execute(_ context.Context, job *Job) error {
	return h.fn(h.calls.Add(1), job)
}

func newTestPool(t *testing.T, queue *Queue, handler Handler) *WorkerPool {
	t.Helper()
	return NewWorkerPool(context.Background(), queue, handler, PoolConfig{
		Workers:      1,
		PollInterval: 5 * time.Millisecond,
		BackoffBase:  time.Millisecond,
	}, zap.NewNop().Sugar())
}

// drain runs delivery attempts until the queue has nothing due, waiting out
// the short test backoff between passes.
func drain(t *testing.T, pool *WorkerPool, passes int) {
	t.Helper()
	for i := 0; i < passes; i++ {
		for {
			processed, err := pool.processNextJob(0)
			require.NoError(t, err)
			if !processed {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkerPool_RetriesThenSucceeds(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	handler := &stubHandler{queue: "notification", fn: func(attempt int32, _ *Job) error {
		if attempt < 3 {
			return errors.Newf("transient failure %d", attempt)
		}
		return nil
	}}
	pool := newTestPool(t, queue, handler)

	job := mustEnqueue(t, queue, "notification", "notification-iv-1")
	drain(t, pool, 4)

	assert.Equal(t, int32(3), handler.calls.Load())
	stored, err := queue.Store().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
}

func TestWorkerPool_ExhaustedAttemptsDeadLetter(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	handler := &stubHandler{queue: "evaluation", fn: func(int32, *Job) error {
		return errors.New("provider unavailable")
	}}
	pool := newTestPool(t, queue, handler)

	job := mustEnqueue(t, queue, "evaluation", "evaluation-iv-1")
	drain(t, pool, 6)

	assert.Equal(t, int32(DefaultMaxAttempts), handler.calls.Load(),
		"delivery stops at the attempt limit")

	stored, err := queue.Store().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "exhausted 3 attempts")
	assert.Contains(t, stored.LastError, "provider unavailable")

	// The dead letter stays visible to operators
	failed, err := queue.Store().ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, job.ID, failed[0].ID)
}

func TestWorkerPool_PermanentErrorSkipsRetries(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	handler := &stubHandler{queue: "notification", fn: func(int32, *Job) error {
		return Permanent(errors.New("payload references a deleted interview"))
	}}
	pool := newTestPool(t, queue, handler)

	job := mustEnqueue(t, queue, "notification", "notification-iv-9")
	drain(t, pool, 3)

	assert.Equal(t, int32(1), handler.calls.Load(), "permanent failures never retry")
	stored, err := queue.Store().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestWorkerPool_StartRecoversOrphans(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	job := mustEnqueue(t, queue, "welcome", "welcome-c1")
	claimed, err := queue.Dequeue(ctx, "welcome")
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)
	// claimed is never acked: simulates a crash mid-flight

	done := make(chan struct{})
	handler := &stubHandler{queue: "welcome", fn: func(int32, *Job) error {
		close(done)
		return nil
	}}
	pool := newTestPool(t, queue, handler)
	pool.Start()
	defer pool.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("orphaned job was not redelivered after pool start")
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	handler := &stubHandler{queue: "notification", fn: func(int32, *Job) error { return nil }}

	require.NoError(t, registry.Register(handler))
	assert.Same(t, handler, registry.Get("notification"))
	assert.Nil(t, registry.Get("unknown"))
	assert.Equal(t, []string{"notification"}, registry.Queues())

	err := registry.Register(&stubHandler{queue: "notification"})
	require.Error(t, err, "one handler per queue")
}

func TestPermanentMarking(t *testing.T) {
	base := errors.New("bad input")
	assert.False(t, IsPermanent(base))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.True(t, IsPermanent(errors.Wrap(Permanent(base), "outer context")))
	assert.Nil(t, Permanent(nil))
}

func TestJobSubject(t *testing.T) {
	withInterview := &Job{Payload: json.RawMessage(`{"interview_id":"iv-1"}`)}
	assert.Equal(t, "iv-1", jobSubject(withInterview))

	withCandidate := &Job{Payload: json.RawMessage(`{"candidate_id":"c-1"}`)}
	assert.Equal(t, "c-1", jobSubject(withCandidate))

	garbage := &Job{Payload: json.RawMessage(`nope`)}
	assert.Equal(t, "", jobSubject(garbage))
}
