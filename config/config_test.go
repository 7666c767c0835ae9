package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talenthos/talenthos/config"
)

func TestDefaults(t *testing.T) {
	// Run from an empty directory so no talenthos.toml is picked up
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "talenthos.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Jobs.NotificationWorkers)
	assert.Equal(t, 2, cfg.Jobs.EvaluationWorkers)
	assert.Equal(t, 2, cfg.Jobs.BackoffBaseSeconds)
	assert.Equal(t, 24, cfg.Jobs.CompletedRetentionHours)
	assert.Equal(t, 720, cfg.Jobs.DeadRetentionHours)
	assert.Equal(t, 168, cfg.Token.TTLHours)
	assert.Equal(t, 24, cfg.Token.ReminderLeadHours)
	assert.Equal(t, 30, cfg.AI.MaxCallsPerMinute)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "talenthos.toml")
	content := `
[database]
path = "/var/lib/talenthos/talenthos.db"

[jobs]
evaluation_workers = 1
backoff_base_seconds = 5

[token]
ttl_hours = 72
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/talenthos/talenthos.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Jobs.EvaluationWorkers)
	assert.Equal(t, 5, cfg.Jobs.BackoffBaseSeconds)
	assert.Equal(t, 72, cfg.Token.TTLHours)

	// Unset keys keep their defaults
	assert.Equal(t, 5, cfg.Jobs.NotificationWorkers)
	assert.Equal(t, 24, cfg.Token.ReminderLeadHours)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := config.LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
