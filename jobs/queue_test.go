package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talenthos/talenthos/errors"
	thtest "github.com/talenthos/talenthos/internal/testing"
)

func TestQueue_EnqueueAndDequeue(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	job, created, err := queue.Enqueue(ctx, "notification", "notification-iv-1", json.RawMessage(`{"interview_id":"iv-1"}`), Options{})
	require.NoError(t, err)
	assert.True(t, created)

	claimed, err := queue.Dequeue(ctx, "notification")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, StatusRunning, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts, "claiming increments the attempt counter")

	// Running jobs are not claimable again
	again, err := queue.Dequeue(ctx, "notification")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestQueue_DuplicateEnqueueIsNoOp(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	first, created, err := queue.Enqueue(ctx, "evaluation", "evaluation-iv-1", json.RawMessage(`{"interview_id":"iv-1"}`), Options{})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := queue.Enqueue(ctx, "evaluation", "evaluation-iv-1", json.RawMessage(`{"interview_id":"iv-1","notes":"later"}`), Options{})
	require.NoError(t, err)
	assert.False(t, created, "duplicate enqueue is success-no-op, not an error")
	assert.Equal(t, first.ID, second.ID, "duplicate hands back the stored job")
	assert.JSONEq(t, string(first.Payload), string(second.Payload))

	counts, err := queue.Store().CountByStatus(ctx, "evaluation")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[StatusQueued])
}

func TestQueue_SameKeyDifferentQueues(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	_, created, err := queue.Enqueue(ctx, "notification", "iv-1", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = queue.Enqueue(ctx, "reminder", "iv-1", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)
	assert.True(t, created, "idempotency is scoped per queue")
}

func TestQueue_DelayedJobNotDueYet(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	_, created, err := queue.Enqueue(ctx, "reminder", "reminder-iv-1", json.RawMessage(`{}`), Options{Delay: time.Hour})
	require.NoError(t, err)
	require.True(t, created)

	claimed, err := queue.Dequeue(ctx, "reminder")
	require.NoError(t, err)
	assert.Nil(t, claimed, "a delayed job must not deliver before run_at")
}

func TestQueue_CompleteStopsRedelivery(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	_, _, err := queue.Enqueue(ctx, "welcome", "welcome-c1", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)

	job, err := queue.Dequeue(ctx, "welcome")
	require.NoError(t, err)
	require.NotNil(t, job)
	require.NoError(t, queue.Complete(ctx, job))

	again, err := queue.Dequeue(ctx, "welcome")
	require.NoError(t, err)
	assert.Nil(t, again)

	stored, err := queue.Store().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.NotNil(t, stored.FinishedAt)
}

func TestQueue_RetryRedeliversAfterDelay(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	_, _, err := queue.Enqueue(ctx, "notification", "notification-iv-2", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)

	job, err := queue.Dequeue(ctx, "notification")
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, queue.Retry(ctx, job, 10*time.Millisecond, errors.New("smtp timeout")))

	// Not due until the backoff delay elapses
	claimed, err := queue.Dequeue(ctx, "notification")
	require.NoError(t, err)
	assert.Nil(t, claimed)

	time.Sleep(20 * time.Millisecond)
	claimed, err = queue.Dequeue(ctx, "notification")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 2, claimed.Attempts)
	assert.Equal(t, "smtp timeout", claimed.LastError)
}

func TestQueue_FailIsTerminal(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	_, _, err := queue.Enqueue(ctx, "evaluation", "evaluation-iv-9", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)

	job, err := queue.Dequeue(ctx, "evaluation")
	require.NoError(t, err)
	require.NotNil(t, job)
	require.NoError(t, queue.Fail(ctx, job, errors.New("invalid credentials")))

	again, err := queue.Dequeue(ctx, "evaluation")
	require.NoError(t, err)
	assert.Nil(t, again, "failed jobs are never redelivered")

	failed, err := queue.Store().ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, job.ID, failed[0].ID)
	assert.Contains(t, failed[0].LastError, "invalid credentials")
}

func TestQueue_SubscriberSeesLifecycle(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	ch := queue.Subscribe()
	defer queue.Unsubscribe(ch)

	_, _, err := queue.Enqueue(ctx, "welcome", "welcome-c2", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)

	select {
	case update := <-ch:
		assert.Equal(t, StatusQueued, update.Status)
	default:
		t.Fatal("expected an enqueue notification")
	}
}
