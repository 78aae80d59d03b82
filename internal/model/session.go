package model

import "time"

// Session is one assistant session. Token counters are filled from the transcript at session end.
type Session struct {
	ID                  string     `json:"id"`
	Project             string     `json:"project,omitempty"`
	Goal                string     `json:"goal,omitempty"`
	StartedAt           time.Time  `json:"started_at"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
	TurnCount           int64      `json:"turn_count"`
	DurationSecs        int64      `json:"duration_secs"`
	InputTokens         int64      `json:"input_tokens"`
	OutputTokens        int64      `json:"output_tokens"`
	CacheReadTokens     int64      `json:"cache_read_tokens"`
	CacheCreationTokens int64      `json:"cache_creation_tokens"`
}

// SessionAnalytics holds the counters extracted from a session transcript.
type SessionAnalytics struct {
	TurnCount           int64 `json:"turn_count"`
	DurationSecs        int64 `json:"duration_secs"`
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
}

// IndexedFile is an external per-project memory document tracked for search.
type IndexedFile struct {
	ID            string    `json:"id"`
	SourcePath    string    `json:"source_path"`
	ProjectPath   string    `json:"project_path,omitempty"`
	ProjectName   string    `json:"project_name"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	IndexedAt     time.Time `json:"indexed_at"`
	FileMtimeSecs int64     `json:"file_mtime_secs"`
}
