package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// column is an ALTER TABLE ADD COLUMN guarded by an existence check.
type column struct {
	table string
	name  string
	def   string
}

// changeSet is one schema version. Columns are added before stmts run so that
// indexes may refer to them. Every statement must be safe to re-run.
type changeSet struct {
	version int
	columns []column
	stmts   []string
}

var changeSets = []changeSet{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS sessions (
				id         TEXT PRIMARY KEY,
				project    TEXT,
				goal       TEXT,
				started_at TEXT NOT NULL,
				ended_at   TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS memories (
				id         TEXT PRIMARY KEY,
				session_id TEXT,
				project    TEXT,
				title      TEXT NOT NULL,
				type       TEXT NOT NULL CHECK(type IN ('auto', 'manual', 'pattern', 'decision')),
				content    TEXT NOT NULL,
				diff       TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project)`,
			`CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project)`,
			`CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
				title,
				content,
				content=memories,
				content_rowid=rowid,
				tokenize='porter unicode61'
			)`,
			`CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
				INSERT INTO memories_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
			`CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, title, content) VALUES ('delete', old.rowid, old.title, old.content);
			END`,
			`CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE OF title, content ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, title, content) VALUES ('delete', old.rowid, old.title, old.content);
				INSERT INTO memories_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
		},
	},
	{
		version: 2,
		columns: []column{
			{"memories", "access_count", "INTEGER NOT NULL DEFAULT 0 CHECK(access_count >= 0)"},
			{"memories", "last_accessed_at", "TEXT"},
			{"memories", "status", "TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'cold'))"},
			{"memories", "scope", "TEXT NOT NULL DEFAULT 'project' CHECK(scope IN ('project', 'global'))"},
		},
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_memories_status ON memories(status)`,
			`CREATE INDEX IF NOT EXISTS idx_memories_scope ON memories(scope)`,
		},
	},
	{
		version: 3,
		columns: []column{
			{"sessions", "turn_count", "INTEGER NOT NULL DEFAULT 0"},
			{"sessions", "duration_secs", "INTEGER NOT NULL DEFAULT 0"},
			{"sessions", "input_tokens", "INTEGER NOT NULL DEFAULT 0"},
			{"sessions", "output_tokens", "INTEGER NOT NULL DEFAULT 0"},
			{"sessions", "cache_read_tokens", "INTEGER NOT NULL DEFAULT 0"},
			{"sessions", "cache_creation_tokens", "INTEGER NOT NULL DEFAULT 0"},
		},
	},
	{
		version: 4,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS indexed_files (
				id              TEXT PRIMARY KEY,
				source_path     TEXT NOT NULL UNIQUE,
				project_path    TEXT,
				project_name    TEXT NOT NULL,
				title           TEXT NOT NULL,
				content         TEXT NOT NULL,
				indexed_at      TEXT NOT NULL,
				file_mtime_secs INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_indexed_files_project ON indexed_files(project_path)`,
			`CREATE VIRTUAL TABLE IF NOT EXISTS indexed_files_fts USING fts5(
				title,
				content,
				content=indexed_files,
				content_rowid=rowid,
				tokenize='porter unicode61'
			)`,
			`CREATE TRIGGER IF NOT EXISTS indexed_files_ai AFTER INSERT ON indexed_files BEGIN
				INSERT INTO indexed_files_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
			`CREATE TRIGGER IF NOT EXISTS indexed_files_ad AFTER DELETE ON indexed_files BEGIN
				INSERT INTO indexed_files_fts(indexed_files_fts, rowid, title, content) VALUES ('delete', old.rowid, old.title, old.content);
			END`,
			`CREATE TRIGGER IF NOT EXISTS indexed_files_au AFTER UPDATE OF title, content ON indexed_files BEGIN
				INSERT INTO indexed_files_fts(indexed_files_fts, rowid, title, content) VALUES ('delete', old.rowid, old.title, old.content);
				INSERT INTO indexed_files_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
		},
	},
}

// LatestSchemaVersion is the version recorded after all change sets are applied.
var LatestSchemaVersion = changeSets[len(changeSets)-1].version

// migrate applies pending change sets in ascending order. Each change set's DDL runs in
// its own transaction; the version is bumped afterwards as a separate statement.
func migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	current, err := userVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, cs := range changeSets {
		if cs.version <= current {
			continue
		}
		if err := applyChangeSet(ctx, db, cs); err != nil {
			return fmt.Errorf("apply schema version %d: %w", cs.version, err)
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, cs.version)); err != nil {
			return fmt.Errorf("record schema version %d: %w", cs.version, err)
		}
		logger.Debug().Int("version", cs.version).Msg("Applied schema change set")
		current = cs.version
	}
	return nil
}

func applyChangeSet(ctx context.Context, db *sql.DB, cs changeSet) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range cs.columns {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect %s.%s: %w", c.table, c.name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, c.table, c.name, c.def)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", c.table, c.name, err)
		}
	}

	for _, stmt := range cs.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func userVersion(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}) (int, error) {
	var v int
	err := q.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v)
	return v, err
}

// SchemaVersion returns the schema version recorded in the store.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return userVersion(ctx, s.db)
}
