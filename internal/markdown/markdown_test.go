package markdown

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTitle_FirstLevelOneHeading(t *testing.T) {
	text := "Some preamble.\n\n## Auth decisions ##\n\nUse JWT.\n\n# Main Title #\n\n# Later heading\n"
	if got := Title(text); got != "Main Title" {
		t.Errorf("expected 'Main Title', got %q", got)
	}
}

func TestTitle_NoLevelOneHeading(t *testing.T) {
	for _, text := range []string{
		"",
		"  \n\n ",
		"plain text without any heading\n",
		"## Sub notes\n\nbody\n",
		"#\n\nbody\n",
	} {
		if got := Title(text); got != "" {
			t.Errorf("Title(%q) = %q, expected empty", text, got)
		}
	}
}

func TestTitle_IgnoresTagsAndFencedHashes(t *testing.T) {
	text := "#tag line\n\n```sh\n# not a heading\n```\n\n# Real Title\n"
	if got := Title(text); got != "Real Title" {
		t.Errorf("expected 'Real Title', got %q", got)
	}
}

func TestCut_KeepsRunesWhole(t *testing.T) {
	got := Cut(strings.Repeat("é", 100), 81)
	if len(got) != 80 || !utf8.ValidString(got) {
		t.Errorf("expected 80 valid bytes, got %d", len(got))
	}
	if got := Cut("short", 80); got != "short" {
		t.Errorf("expected 'short', got %q", got)
	}
}

func TestExcerpt_ShortTextUnchanged(t *testing.T) {
	if got := Excerpt("  short  ", 100); got != "short" {
		t.Errorf("expected 'short', got %q", got)
	}
}

func TestExcerpt_BreaksOnLines(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "This is a line of text that is about fifty characters long.")
	}
	text := strings.Join(lines, "\n")

	got := Excerpt(text, 200)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated excerpt to end in '...', got %q", got)
	}
	body := strings.TrimSuffix(got, "...")
	if len(body) > 200 {
		t.Errorf("excerpt body exceeds max: %d", len(body))
	}
	if strings.Count(body, "\n") != 2 {
		t.Errorf("expected three whole lines, got %q", body)
	}
}

func TestExcerpt_LongFirstLine(t *testing.T) {
	got := Excerpt(strings.Repeat("ü", 300), 101)
	if !utf8.ValidString(got) {
		t.Errorf("excerpt split a rune: %q", got)
	}
	if len(strings.TrimSuffix(got, "...")) > 101 {
		t.Errorf("excerpt too long: %d", len(got))
	}
}
