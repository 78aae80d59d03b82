// Package markdown extracts titles and excerpts from memory documents.
package markdown

import (
	"strings"
	"unicode/utf8"
)

// DefaultExcerptSize is the excerpt length used for search output.
const DefaultExcerptSize = 280

// heading reports whether line is an ATX heading and returns its text and level.
func heading(line string) (string, int, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", 0, false
	}
	level := len(line) - len(strings.TrimLeft(line, "#"))
	if level > 6 {
		return "", 0, false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", 0, false // "#tag" is not a heading
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#")), level, true
}

// Title returns the text of the first non-empty level-1 heading outside code fences,
// or "" when there is none.
func Title(text string) string {
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if h, level, ok := heading(trimmed); ok && level == 1 && h != "" {
			return h
		}
	}
	return ""
}

// Excerpt returns the leading part of text that fits in max bytes, broken on a line
// boundary when possible. Truncated excerpts end in "...".
func Excerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	if max <= 0 || len(text) <= max {
		return text
	}

	lines := strings.Split(text, "\n")
	var kept []string
	curLen := 0
	for _, line := range lines {
		if curLen+len(line) > max {
			break
		}
		kept = append(kept, line)
		curLen += len(line) + 1 // +1 for newline
	}

	t := strings.TrimSpace(strings.Join(kept, "\n"))
	if t == "" {
		// First line alone is too long
		t = Cut(lines[0], max)
	}
	return t + "..."
}

// Cut shortens s to at most n bytes without splitting a rune.
func Cut(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
