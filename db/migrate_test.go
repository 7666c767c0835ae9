package db_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talenthos/talenthos/db"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMigrate_CreatesSchema(t *testing.T) {
	conn := openMemory(t)
	require.NoError(t, db.Migrate(conn, nil))

	for _, table := range []string{"interviews", "assessment_tokens", "jobs", "evaluations", "deliveries"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	conn := openMemory(t)
	require.NoError(t, db.Migrate(conn, nil))
	require.NoError(t, db.Migrate(conn, nil), "re-running applied migrations is a no-op")

	var applied int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 6, applied)
}
