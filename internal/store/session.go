package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/mem/internal/model"
)

// StartSession records a session start. Starting an existing session is a no-op.
func (s *SQLiteStore) StartSession(ctx context.Context, id, project, goal string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: session id must not be blank", ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, project, goal, started_at) VALUES (?, ?, ?, ?)`,
		id, nullString(project), nullString(goal), s.timestamp())
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// EndSession stamps ended_at once and reports whether this call did it. Ending an
// already ended session leaves it unchanged and returns false.
func (s *SQLiteStore) EndSession(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`, s.timestamp(), id)
	if err != nil {
		return false, fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// UpdateSessionAnalytics stores transcript-derived counters for a session.
func (s *SQLiteStore) UpdateSessionAnalytics(ctx context.Context, id string, a model.SessionAnalytics) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET turn_count = ?, duration_secs = ?, input_tokens = ?, output_tokens = ?,
			cache_read_tokens = ?, cache_creation_tokens = ?
		 WHERE id = ?`,
		a.TurnCount, a.DurationSecs, a.InputTokens, a.OutputTokens,
		a.CacheReadTokens, a.CacheCreationTokens, id)
	if err != nil {
		return fmt.Errorf("update session analytics: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return nil
}

// GetSession returns a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	var project, goal, endedAt sql.NullString
	var startedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, project, goal, started_at, ended_at, turn_count, duration_secs,
			input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens
		 FROM sessions WHERE id = ?`, id).Scan(
		&sess.ID, &project, &goal, &startedAt, &endedAt, &sess.TurnCount, &sess.DurationSecs,
		&sess.InputTokens, &sess.OutputTokens, &sess.CacheReadTokens, &sess.CacheCreationTokens)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	sess.Project = project.String
	sess.Goal = goal.String
	if sess.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, s.rowError("session", id, fmt.Errorf("%w: started_at %q: %w", ErrCorrupt, startedAt, err))
	}
	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return nil, s.rowError("session", id, fmt.Errorf("%w: ended_at %q: %w", ErrCorrupt, endedAt.String, err))
		}
		sess.EndedAt = &t
	}
	return &sess, nil
}
