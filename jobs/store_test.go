package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	thtest "github.com/talenthos/talenthos/internal/testing"
)

func mustEnqueue(t *testing.T, q *Queue, queue, key string) *Job {
	t.Helper()
	job, created, err := q.Enqueue(context.Background(), queue, key, json.RawMessage(`{}`), Options{})
	require.NoError(t, err)
	require.True(t, created)
	return job
}

func TestStore_ClaimNextDueOrdersByRunAt(t *testing.T) {
	db := thtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	older, err := newJob("notification", "key-older", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)
	older.RunAt = now.Add(-2 * time.Minute)
	newer, err := newJob("notification", "key-newer", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)
	newer.RunAt = now.Add(-time.Minute)

	// Insert newest first to prove ordering comes from run_at
	_, err = store.CreateJob(ctx, newer)
	require.NoError(t, err)
	_, err = store.CreateJob(ctx, older)
	require.NoError(t, err)

	claimed, err := store.ClaimNextDue(ctx, "notification", now)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "key-older", claimed.IdempotencyKey)
}

func TestStore_ClaimNextDueSkipsOtherQueues(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	mustEnqueue(t, queue, "reminder", "reminder-iv-1")

	claimed, err := queue.Store().ClaimNextDue(context.Background(), "notification", time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestStore_RequeueOrphans(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	mustEnqueue(t, queue, "evaluation", "evaluation-iv-1")
	job, err := queue.Dequeue(ctx, "evaluation")
	require.NoError(t, err)
	require.NotNil(t, job)

	// Simulates a crash: the job is stuck in running with no worker
	recovered, err := queue.Store().RequeueOrphans(ctx, "evaluation")
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	reclaimed, err := queue.Dequeue(ctx, "evaluation")
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, job.ID, reclaimed.ID)
	assert.Equal(t, 2, reclaimed.Attempts, "redelivery after recovery counts as a new attempt")
}

func TestStore_CleanupRetention(t *testing.T) {
	db := thtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)

	completed, err := newJob("notification", "key-done", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)
	failed, err := newJob("notification", "key-dead", json.RawMessage(`{}`), Options{})
	require.NoError(t, err)
	for _, j := range []*Job{completed, failed} {
		_, err := store.CreateJob(ctx, j)
		require.NoError(t, err)
	}
	require.NoError(t, store.MarkCompleted(ctx, completed.ID))
	require.NoError(t, store.MarkFailed(ctx, failed.ID, "exhausted"))

	// Age both rows past the completed window but inside the failed window
	_, err = db.Exec(`UPDATE jobs SET updated_at = ?`, old)
	require.NoError(t, err)

	removed, err := store.Cleanup(ctx, 24*time.Hour, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "failed jobs outlive completed jobs")

	deadLetter, err := store.ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, deadLetter, 1)
	assert.Equal(t, failed.ID, deadLetter[0].ID)

	_, err = store.GetJob(ctx, completed.ID)
	assert.Error(t, err, "completed job past retention is gone")
}

func TestStore_ListJobsFilters(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	mustEnqueue(t, queue, "notification", "notification-iv-1")
	mustEnqueue(t, queue, "reminder", "reminder-iv-1")
	job := mustEnqueue(t, queue, "notification", "notification-iv-2")
	require.NoError(t, queue.Store().MarkFailed(ctx, job.ID, "boom"))

	all, err := queue.Store().ListJobs(ctx, nil, nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	name := "notification"
	byQueue, err := queue.Store().ListJobs(ctx, &name, nil, 10)
	require.NoError(t, err)
	assert.Len(t, byQueue, 2)

	status := StatusQueued
	queuedNotifications, err := queue.Store().ListJobs(ctx, &name, &status, 10)
	require.NoError(t, err)
	require.Len(t, queuedNotifications, 1)
	assert.Equal(t, "notification-iv-1", queuedNotifications[0].IdempotencyKey)
}

func TestStore_CountByStatus(t *testing.T) {
	db := thtest.CreateTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	mustEnqueue(t, queue, "welcome", "welcome-c1")
	mustEnqueue(t, queue, "welcome", "welcome-c2")
	job, err := queue.Dequeue(ctx, "welcome")
	require.NoError(t, err)
	require.NoError(t, queue.Complete(ctx, job))

	counts, err := queue.Store().CountByStatus(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[StatusQueued])
	assert.Equal(t, 1, counts[StatusCompleted])
}
