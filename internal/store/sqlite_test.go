package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/mem/internal/model"
)

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), opts...)
	require.NoError(t, err, "create store")
	t.Cleanup(func() { s.Close() })
	return s
}

// testClock is a settable clock for WithClock.
type testClock struct{ t time.Time }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func save(t *testing.T, s *SQLiteStore, p SaveParams) *model.Memory {
	t.Helper()
	m, err := s.SaveMemory(context.Background(), p)
	require.NoError(t, err)
	return m
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem := save(t, s, SaveParams{Title: "  JWT auth  ", Content: "tokens expire after 1h", Project: "api"})
	assert.NotEmpty(t, mem.ID)
	assert.Equal(t, "JWT auth", mem.Title)
	assert.Equal(t, model.TypeManual, mem.Type)
	assert.Equal(t, model.StatusActive, mem.Status)
	assert.Equal(t, model.ScopeProject, mem.Scope)

	got, err := s.GetMemory(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, "tokens expire after 1h", got.Content)
	assert.Equal(t, "api", got.Project)
	assert.Equal(t, 0, got.AccessCount)
	assert.Nil(t, got.LastAccessedAt)
	assert.True(t, got.CreatedAt.Equal(mem.CreatedAt.Truncate(time.Microsecond)))
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetMemory(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		p    SaveParams
	}{
		{"blank title", SaveParams{Title: "   ", Content: "x"}},
		{"blank content", SaveParams{Title: "x", Content: "\n\t"}},
		{"auto type", SaveParams{Title: "x", Content: "y", Type: model.TypeAuto}},
		{"unknown type", SaveParams{Title: "x", Content: "y", Type: "note"}},
		{"wrong case type", SaveParams{Title: "x", Content: "y", Type: "Manual"}},
		{"unknown status", SaveParams{Title: "x", Content: "y", Status: "archived"}},
		{"unknown scope", SaveParams{Title: "x", Content: "y", Scope: "team"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveMemory(ctx, tt.p)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	n, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n.TotalMemories, "rejected saves must not write")
}

func TestCheckConstraintsRejectRawWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mem := save(t, s, SaveParams{Title: "t", Content: "c"})

	_, err := s.db.ExecContext(ctx, `UPDATE memories SET status = 'archived' WHERE id = ?`, mem.ID)
	assert.Error(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE memories SET scope = 'team' WHERE id = ?`, mem.ID)
	assert.Error(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE memories SET type = 'note' WHERE id = ?`, mem.ID)
	assert.Error(t, err)
}

func TestCaptureMemoryUsesAuto(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mem, err := s.CaptureMemory(ctx, SaveParams{Title: "session", Content: "did things", Type: model.TypeDecision})
	require.NoError(t, err)
	assert.Equal(t, model.TypeAuto, mem.Type)

	recent, err := s.RecentAuto(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, mem.ID, recent[0].ID)
}

func TestUpdateMemoryResyncsIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mem := save(t, s, SaveParams{Title: "cache layer", Content: "uses redis"})

	content := "uses memcached"
	_, err := s.UpdateMemory(ctx, UpdateParams{ID: mem.ID, Content: &content})
	require.NoError(t, err)

	old, err := s.Search(ctx, SearchParams{Query: "redis", Kind: KindMemory})
	require.NoError(t, err)
	assert.Empty(t, old)

	hits, err := s.Search(ctx, SearchParams{Query: "memcached", Kind: KindMemory})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, mem.ID, hits[0].Memory.ID)

	auto := model.TypeAuto
	_, err = s.UpdateMemory(ctx, UpdateParams{ID: mem.ID, Type: &auto})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.UpdateMemory(ctx, UpdateParams{ID: "missing", Content: &content})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mem := save(t, s, SaveParams{Title: "ephemeral", Content: "goes away"})

	require.NoError(t, s.DeleteMemory(ctx, mem.ID))
	_, err := s.GetMemory(ctx, mem.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	hits, err := s.Search(ctx, SearchParams{Query: "ephemeral"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.ErrorIs(t, s.DeleteMemory(ctx, mem.ID), ErrNotFound)
}

func TestTouchMemories(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.now))
	ctx := context.Background()

	a := save(t, s, SaveParams{Title: "a", Content: "a"})
	b := save(t, s, SaveParams{Title: "b", Content: "b"})

	clock.advance(time.Hour)
	n, err := s.TouchMemories(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.AccessMemory(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	require.NotNil(t, got.LastAccessedAt)
	assert.True(t, got.LastAccessedAt.Equal(clock.t))

	n, err = s.TouchMemories(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.AccessMemory(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMemories(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.now))
	ctx := context.Background()

	first := save(t, s, SaveParams{Title: "one", Content: "x", Project: "api"})
	clock.advance(time.Minute)
	second := save(t, s, SaveParams{Title: "two", Content: "x", Project: "api", Type: model.TypeDecision})
	clock.advance(time.Minute)
	save(t, s, SaveParams{Title: "three", Content: "x", Project: "web"})

	got, err := s.ListMemories(ctx, ListParams{Project: "api"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.Equal(t, first.ID, got[1].ID)

	got, err = s.ListMemories(ctx, ListParams{Type: model.TypeDecision})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)

	got, err = s.ListMemories(ctx, ListParams{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = s.ListMemories(ctx, ListParams{Status: "frozen"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCorruptRowIsNotNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mem := save(t, s, SaveParams{Title: "t", Content: "c"})

	_, err := s.db.ExecContext(ctx, `UPDATE memories SET created_at = 'yesterday' WHERE id = ?`, mem.ID)
	require.NoError(t, err)

	_, err = s.GetMemory(ctx, mem.ID)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewSQLiteStoreRejectsBlankPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSessions(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.now))
	ctx := context.Background()

	require.NoError(t, s.StartSession(ctx, "s1", "api", "fix login"))
	require.NoError(t, s.StartSession(ctx, "s1", "other", "ignored"))

	sess, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "api", sess.Project)
	assert.Equal(t, "fix login", sess.Goal)
	assert.Nil(t, sess.EndedAt)

	clock.advance(30 * time.Minute)
	ended, err := s.EndSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ended)
	clock.advance(30 * time.Minute)
	ended, err = s.EndSession(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ended)

	sess, err = s.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess.EndedAt)
	assert.Equal(t, 30*time.Minute, sess.EndedAt.Sub(sess.StartedAt), "second end leaves ended_at alone")

	require.NoError(t, s.UpdateSessionAnalytics(ctx, "s1", model.SessionAnalytics{
		TurnCount: 4, DurationSecs: 120, InputTokens: 10, OutputTokens: 20, CacheReadTokens: 30, CacheCreationTokens: 40,
	}))
	sess, err = s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), sess.TurnCount)
	assert.Equal(t, int64(40), sess.CacheCreationTokens)

	_, err = s.EndSession(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateSessionAnalytics(ctx, "nope", model.SessionAnalytics{}), ErrNotFound)
	assert.ErrorIs(t, s.StartSession(ctx, " ", "", ""), ErrInvalidInput)
}
