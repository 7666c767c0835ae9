package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_DoublesPerAttempt(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, 2*time.Second, Backoff(base, 1))
	assert.Equal(t, 4*time.Second, Backoff(base, 2))
	assert.Equal(t, 8*time.Second, Backoff(base, 3))
	assert.Equal(t, 16*time.Second, Backoff(base, 4))
}

func TestBackoff_Defaults(t *testing.T) {
	assert.Equal(t, DefaultBackoffBase, Backoff(0, 1))
	assert.Equal(t, DefaultBackoffBase, Backoff(DefaultBackoffBase, 0), "attempt below 1 clamps to 1")
}

func TestNewJob_Validation(t *testing.T) {
	payload := json.RawMessage(`{"interview_id":"iv-1"}`)

	_, err := newJob("", "key-1", payload, Options{})
	require.Error(t, err, "empty queue name")

	_, err = newJob("notification", "", payload, Options{})
	require.Error(t, err, "empty idempotency key")

	_, err = newJob("notification", "key-1", nil, Options{})
	require.Error(t, err, "empty payload")

	_, err = newJob("notification", "key-1", json.RawMessage(`{not json`), Options{})
	require.Error(t, err, "malformed payload")
}

func TestNewJob_Defaults(t *testing.T) {
	payload := json.RawMessage(`{}`)

	job, err := newJob("notification", "key-1", payload, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, DefaultMaxAttempts, job.MaxAttempts)
	assert.Equal(t, 0, job.Attempts)
	assert.NotEmpty(t, job.ID)

	delayed, err := newJob("notification", "key-2", payload, Options{MaxAttempts: 5, Delay: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 5, delayed.MaxAttempts)
	assert.True(t, delayed.RunAt.After(time.Now().UTC().Add(59*time.Minute)))
}
