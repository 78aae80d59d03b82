package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/mem/internal/model"
)

func schemaSnapshot(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT type || ' ' || name || ' ' || coalesce(sql, '') FROM sqlite_master ORDER BY type, name`)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestMigrateRecordsLatestVersion(t *testing.T) {
	s := newTestStore(t)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LatestSchemaVersion, v)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mem.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	save(t, s, SaveParams{Title: "keep me", Content: "survives reopen"})
	before := schemaSnapshot(t, s.db)

	// Forget the recorded version so every change set runs again.
	_, err = s.db.ExecContext(ctx, `PRAGMA user_version = 0`)
	require.NoError(t, err)
	require.NoError(t, migrate(ctx, s.db, zerolog.Nop()))
	assert.Equal(t, before, schemaSnapshot(t, s.db))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, before, schemaSnapshot(t, s.db))

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, LatestSchemaVersion, v)

	hits, err := s.Search(ctx, SearchParams{Query: "survives"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestMigrateUpgradesOldStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, applyChangeSet(ctx, db, changeSets[0]))
	_, err = db.Exec(`PRAGMA user_version = 1`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO memories (id, title, type, content, created_at)
		VALUES ('old1', 'legacy note', 'manual', 'written before scopes existed', '2024-01-02T03:04:05Z')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	m, err := s.GetMemory(ctx, "old1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, m.Status)
	assert.Equal(t, model.ScopeProject, m.Scope)
	assert.Equal(t, 0, m.AccessCount)
	assert.Equal(t, 2024, m.CreatedAt.Year())

	n, err := s.CountIndexedFiles(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
