package interview_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talenthos/talenthos/errors"
	"github.com/talenthos/talenthos/interview"
	thtest "github.com/talenthos/talenthos/internal/testing"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := thtest.CreateTestDB(t)
	store := interview.NewStore(db)
	ctx := context.Background()

	iv := interview.New("cand-1", "Ada Lovelace", "ada@example.test")
	iv.Notes = "strong systems background"
	require.NoError(t, store.Create(ctx, iv))

	got, err := store.Get(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, iv.ID, got.ID)
	assert.Equal(t, "cand-1", got.CandidateID)
	assert.Equal(t, interview.StatusCreated, got.Status)
	assert.Equal(t, "strong systems background", got.Notes)
	assert.Nil(t, got.ScheduledAt)
}

func TestStore_GetMissing(t *testing.T) {
	db := thtest.CreateTestDB(t)
	store := interview.NewStore(db)

	_, err := store.Get(context.Background(), "no-such-interview")
	require.Error(t, err)
	assert.True(t, errors.Is(err, interview.ErrNotFound))
}

func TestStore_UpdateStatusCompareAndSet(t *testing.T) {
	db := thtest.CreateTestDB(t)
	store := interview.NewStore(db)
	ctx := context.Background()

	iv := interview.New("cand-2", "", "b@example.test")
	require.NoError(t, store.Create(ctx, iv))

	err := store.UpdateStatus(ctx, iv.ID, interview.StatusCreated, interview.StatusScheduled)
	require.NoError(t, err)

	got, err := store.Get(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.StatusScheduled, got.Status)

	// A second writer still assuming CREATED loses the compare-and-set
	err = store.UpdateStatus(ctx, iv.ID, interview.StatusCreated, interview.StatusScheduled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, interview.ErrStatusConflict))

	// Status is untouched by the losing update
	got, err = store.Get(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, interview.StatusScheduled, got.Status)
}

func TestStore_UpdateStatusMissingInterview(t *testing.T) {
	db := thtest.CreateTestDB(t)
	store := interview.NewStore(db)

	err := store.UpdateStatus(context.Background(), "ghost", interview.StatusCreated, interview.StatusScheduled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, interview.ErrNotFound))
	assert.False(t, errors.Is(err, interview.ErrStatusConflict))
}

func TestStore_SetScheduleAndNotes(t *testing.T) {
	db := thtest.CreateTestDB(t)
	store := interview.NewStore(db)
	ctx := context.Background()

	iv := interview.New("cand-3", "", "c@example.test")
	require.NoError(t, store.Create(ctx, iv))

	at := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetSchedule(ctx, iv.ID, at))
	require.NoError(t, store.SetNotes(ctx, iv.ID, "revised notes"))

	got, err := store.Get(ctx, iv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, got.ScheduledAt.Equal(at))
	assert.Equal(t, "revised notes", got.Notes)
	assert.Equal(t, interview.StatusCreated, got.Status, "scheduling metadata must not touch status")

	assert.True(t, errors.Is(store.SetSchedule(ctx, "ghost", at), interview.ErrNotFound))
	assert.True(t, errors.Is(store.SetNotes(ctx, "ghost", "x"), interview.ErrNotFound))
}
