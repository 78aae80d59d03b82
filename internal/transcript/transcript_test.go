package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/mem/internal/model"
)

const sample = `{"type":"user","timestamp":"2026-02-20T09:00:00.000Z","message":{}}
{"type":"assistant","timestamp":"2026-02-20T09:01:00.000Z","message":{"usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":200,"cache_creation_input_tokens":10}}}
not json at all
{"type":"progress","timestamp":"2026-02-20T09:01:30.000Z"}

{"type":"assistant","timestamp":"2026-02-20T09:02:00.000Z","message":{"usage":{"input_tokens":80,"output_tokens":40,"cache_read_input_tokens":150,"cache_creation_input_tokens":5}}}
`

func TestParse(t *testing.T) {
	a, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, model.SessionAnalytics{
		TurnCount:           2,
		DurationSecs:        120,
		InputTokens:         180,
		OutputTokens:        90,
		CacheReadTokens:     350,
		CacheCreationTokens: 15,
	}, *a)
}

func TestParseOnlyCountsAssistantTurns(t *testing.T) {
	in := `{"type":"user","timestamp":"2026-02-20T09:00:00.000Z","message":{}}
{"type":"system","timestamp":"2026-02-20T09:00:01.000Z","message":{}}
{"type":"assistant","timestamp":"2026-02-20T09:01:00.000Z","message":{"usage":{"input_tokens":42,"output_tokens":7}}}`

	a, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.TurnCount)
	assert.Equal(t, int64(42), a.InputTokens)
	assert.Equal(t, int64(60), a.DurationSecs)
}

func TestParseNoTurns(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"type":"user"}` + "\n"))
	assert.ErrorIs(t, err, ErrNoTurns)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	a, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.TurnCount)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseHook(t *testing.T) {
	h, err := ParseHook([]byte(`{"session_id":"abc","transcript_path":"/tmp/t.jsonl","cwd":"/src/api","stop_hook_active":true,"extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, Hook{SessionID: "abc", TranscriptPath: "/tmp/t.jsonl", Cwd: "/src/api", StopHookActive: true}, h)

	_, err = ParseHook([]byte("{broken"))
	assert.Error(t, err)
}

func TestSessionNote(t *testing.T) {
	now := time.Date(2026, 2, 20, 9, 5, 0, 0, time.UTC)

	title, content := SessionNote("/src/api", &model.SessionAnalytics{TurnCount: 3, DurationSecs: 90, InputTokens: 5}, now)
	assert.Equal(t, "api: session ended after 3 turns", title)
	assert.Contains(t, content, "Project: /src/api")
	assert.Contains(t, content, "Captured: 2026-02-20 09:05 UTC")
	assert.Contains(t, content, "Duration: 1m30s")

	title, content = SessionNote("", nil, now)
	assert.Equal(t, "unknown: session ended", title)
	assert.Contains(t, content, "No transcript analytics available")
}
