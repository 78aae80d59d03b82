package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/mem/internal/model"
)

func TestContextProjectPlusGlobalNewestFirst(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.now))

	api1 := save(t, s, SaveParams{Title: "api one", Content: "a", Project: "api"})
	clock.advance(time.Minute)
	global := save(t, s, SaveParams{Title: "everywhere", Content: "g", Project: "web"})
	require.NoError(t, s.Promote(ctx, global.ID))
	clock.advance(time.Minute)
	save(t, s, SaveParams{Title: "web only", Content: "w", Project: "web"})
	clock.advance(time.Minute)
	api2 := save(t, s, SaveParams{Title: "api two", Content: "b", Project: "api"})

	res, err := s.Context(ctx, ContextParams{Project: "api"})
	require.NoError(t, err)

	var ids []string
	for _, m := range res.Memories {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{api2.ID, global.ID, api1.ID}, ids)
}

func TestContextLimits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 60; i++ {
		save(t, s, SaveParams{Title: fmt.Sprintf("m%d", i), Content: "c"})
	}

	res, err := s.Context(ctx, ContextParams{})
	require.NoError(t, err)
	assert.Len(t, res.Memories, DefaultContextLimit)

	res, err = s.Context(ctx, ContextParams{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, res.Memories, MaxContextLimit)
}

func TestContextBudgetExcerpts(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.now))

	save(t, s, SaveParams{Title: "oldest", Content: strings.Repeat("z", 50)})
	clock.advance(time.Minute)
	save(t, s, SaveParams{Title: "big", Content: strings.Repeat("é", 300)})
	clock.advance(time.Minute)
	save(t, s, SaveParams{Title: "small", Content: strings.Repeat("a", 100)})

	// 100 tokens is 400 chars: "small" fits whole, "big" is cut to what remains.
	res, err := s.Context(ctx, ContextParams{Budget: 100})
	require.NoError(t, err)
	require.Len(t, res.Memories, 2)
	assert.False(t, res.Memories[0].Excerpt)
	assert.True(t, res.Memories[1].Excerpt)
	assert.True(t, strings.HasSuffix(res.Memories[1].Content, "..."))
	assert.True(t, strings.HasPrefix(res.Memories[1].Content, "é"))
	assert.NotContains(t, res.Memories[1].Content, "�")
	assert.LessOrEqual(t, res.Used, 100+1)
}

func TestContextSkipsCold(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.now))

	save(t, s, SaveParams{Title: "stale", Content: "old"})
	clock.advance(400 * day)
	fresh := save(t, s, SaveParams{Title: "fresh", Content: "new"})
	_, err := s.RunDecay(ctx, DefaultDecayThreshold, false)
	require.NoError(t, err)

	res, err := s.Context(ctx, ContextParams{})
	require.NoError(t, err)
	require.Len(t, res.Memories, 1)
	assert.Equal(t, fresh.ID, res.Memories[0].ID)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	save(t, s, SaveParams{Title: "a", Content: "a", Project: "api"})
	b := save(t, s, SaveParams{Title: "b", Content: "b", Project: "api"})
	save(t, s, SaveParams{Title: "c", Content: "c", Project: "web"})
	require.NoError(t, s.Promote(ctx, b.ID))
	require.NoError(t, s.StartSession(ctx, "s1", "api", ""))
	upsertFile(t, s, model.IndexedFile{SourcePath: filepath.Join(t.TempDir(), "x.md"), Content: "x"})

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalMemories)
	assert.Equal(t, 3, st.ActiveMemories)
	assert.Equal(t, 0, st.ColdMemories)
	assert.Equal(t, 1, st.GlobalMemories)
	assert.Equal(t, 1, st.Sessions)
	assert.Equal(t, 2, st.Projects)
	assert.Equal(t, 1, st.IndexedFiles)
	assert.Equal(t, LatestSchemaVersion, st.SchemaVersion)
	assert.Positive(t, st.DBSizeBytes)
	require.Len(t, st.ByProject, 2)
	assert.Equal(t, ProjectStats{Project: "api", Count: 2}, st.ByProject[0])
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	a := save(t, src, SaveParams{Title: "decision", Content: "use sqlite", Type: model.TypeDecision, Project: "api"})
	_, err := src.CaptureMemory(ctx, SaveParams{Title: "session", Content: "auto capture", Project: "api"})
	require.NoError(t, err)
	require.NoError(t, src.Promote(ctx, a.ID))

	exported, err := src.ExportAll(ctx, "api")
	require.NoError(t, err)
	require.Len(t, exported, 2)

	dst := newTestStore(t)
	n, err := dst.Import(ctx, exported, ImportOptions{KeepAuto: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := dst.ExportAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.TypeDecision, got[0].Type)
	assert.Equal(t, model.ScopeGlobal, got[0].Scope)
	assert.True(t, got[0].CreatedAt.Equal(exported[0].CreatedAt))
	assert.Equal(t, model.TypeAuto, got[1].Type)

	bad := []model.Memory{{Title: "ok", Content: "fine", Type: model.TypeManual}, {Title: "", Content: "x", Type: model.TypeManual}}
	n, err = dst.Import(ctx, bad, ImportOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, n)
}

func TestImportDowngradesAutoByDefault(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	in := []model.Memory{
		{Title: "session", Content: "looks captured", Type: model.TypeAuto},
		{Title: "rule", Content: "kept as is", Type: model.TypePattern},
	}
	n, err := s.Import(ctx, in, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ExportAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	types := []model.Type{got[0].Type, got[1].Type}
	assert.ElementsMatch(t, []model.Type{model.TypeManual, model.TypePattern}, types)

	auto, err := s.RecentAuto(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, auto)
}
