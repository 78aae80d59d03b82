// Package transcript extracts session analytics from assistant transcripts and
// session-end hook payloads.
//
// A transcript is JSON Lines: one event object per line with a "type" and an
// RFC 3339 "timestamp". Assistant events carry token usage under message.usage.
package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rcliao/mem/internal/model"
)

// ErrNoTurns means the transcript held no assistant events.
var ErrNoTurns = errors.New("transcript has no assistant turns")

// maxLine bounds a single transcript line. Tool results can be large.
const maxLine = 16 << 20

// Parse reads a JSONL transcript. Lines that are blank or not valid JSON are skipped.
// Duration spans the earliest to the latest timestamp of any event.
func Parse(r io.Reader) (*model.SessionAnalytics, error) {
	var a model.SessionAnalytics
	var first, last int64
	haveTS := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !gjson.Valid(line) {
			continue
		}
		ev := gjson.Parse(line)

		if ts := ev.Get("timestamp"); ts.Type == gjson.String {
			if t, err := time.Parse(time.RFC3339Nano, ts.String()); err == nil {
				secs := t.Unix()
				if !haveTS || secs < first {
					first = secs
				}
				if !haveTS || secs > last {
					last = secs
				}
				haveTS = true
			}
		}

		if ev.Get("type").String() != "assistant" {
			continue
		}
		a.TurnCount++
		usage := ev.Get("message.usage")
		a.InputTokens += usage.Get("input_tokens").Int()
		a.OutputTokens += usage.Get("output_tokens").Int()
		a.CacheReadTokens += usage.Get("cache_read_input_tokens").Int()
		a.CacheCreationTokens += usage.Get("cache_creation_input_tokens").Int()
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	if a.TurnCount == 0 {
		return nil, ErrNoTurns
	}
	if haveTS && last > first {
		a.DurationSecs = last - first
	}
	return &a, nil
}

// ParseFile parses the transcript at path.
func ParseFile(path string) (*model.SessionAnalytics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Hook is the payload a session-end hook receives on stdin.
type Hook struct {
	SessionID      string `json:"session_id,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
	StopHookActive bool   `json:"stop_hook_active,omitempty"`
}

// ParseHook decodes a hook payload. Unknown fields are ignored; malformed input
// returns an error alongside a zero Hook.
func ParseHook(data []byte) (Hook, error) {
	if !gjson.ValidBytes(data) {
		return Hook{}, errors.New("hook payload is not valid JSON")
	}
	res := gjson.ParseBytes(data)
	return Hook{
		SessionID:      res.Get("session_id").String(),
		TranscriptPath: res.Get("transcript_path").String(),
		Cwd:            res.Get("cwd").String(),
		StopHookActive: res.Get("stop_hook_active").Bool(),
	}, nil
}

// SessionNote builds the title and content of the memory captured when a session
// ends. a may be nil when no transcript was available.
func SessionNote(project string, a *model.SessionAnalytics, now time.Time) (title, content string) {
	name := filepath.Base(filepath.Clean(project))
	if project == "" || name == "." || name == string(filepath.Separator) {
		name = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\nCaptured: %s\n\n## Session\n", project, now.UTC().Format("2006-01-02 15:04 UTC"))
	if a == nil {
		title = name + ": session ended"
		b.WriteString("No transcript analytics available")
		return title, b.String()
	}

	title = fmt.Sprintf("%s: session ended after %d turns", name, a.TurnCount)
	fmt.Fprintf(&b, "Turns: %d\nDuration: %s\n", a.TurnCount, time.Duration(a.DurationSecs)*time.Second)
	fmt.Fprintf(&b, "Tokens: %d in, %d out, %d cache read, %d cache write",
		a.InputTokens, a.OutputTokens, a.CacheReadTokens, a.CacheCreationTokens)
	return title, b.String()
}
