// Package suggest finds recurring terms across captured memories and proposes them
// as candidate project rules.
package suggest

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rcliao/mem/internal/model"
)

const (
	minUnigramMemories = 3
	minBigramMemories  = 2
	maxUnigrams        = 15
	maxBigrams         = 10
)

var stopWords = toSet(`
	the a an is was to in of and or with for on at be has have had by as this that it from are
	were not no so if but its via use used new get set run add fix now also just into than all
	any one two do done we my our you your will can may must then when where what how out up end
	been about more some such them they
	session git ended changes detected captured utc project repo mem memory context 00 date time
	turns duration tokens cache read write after`)

func toSet(words string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// Pattern is a term or phrase and the number of memories containing it.
type Pattern struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Report is the result of analyzing a set of memories.
type Report struct {
	Memories int       `json:"memories"`
	Bigrams  []Pattern `json:"bigrams"`
	Unigrams []Pattern `json:"unigrams"`
}

// Analyze counts, per memory, the distinct terms and adjacent term pairs in title and
// content. Terms found in at least three memories and pairs found in at least two are
// reported, most frequent first.
func Analyze(memories []model.Memory) Report {
	unigrams := map[string]int{}
	bigrams := map[string]int{}

	for _, m := range memories {
		raw := splitTokens(m.Title + " " + m.Content)

		seen := map[string]bool{}
		for _, tok := range raw {
			if keep(tok) && !seen[tok] {
				seen[tok] = true
				unigrams[tok]++
			}
		}

		// Pairs are adjacent in the unfiltered stream, so "jwt the auth" yields none.
		seenPairs := map[string]bool{}
		for i := 0; i+1 < len(raw); i++ {
			a, b := raw[i], raw[i+1]
			if !keep(a) || !keep(b) {
				continue
			}
			pair := a + " " + b
			if !seenPairs[pair] {
				seenPairs[pair] = true
				bigrams[pair]++
			}
		}
	}

	return Report{
		Memories: len(memories),
		Bigrams:  top(bigrams, minBigramMemories, maxBigrams),
		Unigrams: top(unigrams, minUnigramMemories, maxUnigrams),
	}
}

// splitTokens lowercases text and splits on anything other than letters, digits, '_'
// and '-'. Tokens shorter than three bytes are dropped.
func splitTokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-'
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.ToLower(f)
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func keep(tok string) bool {
	return !stopWords[tok] && !isYear(tok)
}

func isYear(tok string) bool {
	if len(tok) != 4 || !strings.HasPrefix(tok, "20") {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func top(counts map[string]int, min, limit int) []Pattern {
	out := []Pattern{}
	for text, n := range counts {
		if n >= min {
			out = append(out, Pattern{Text: text, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Markdown renders a report as a block ready to paste into a project rules file.
func Markdown(r Report, now time.Time) string {
	var b strings.Builder
	b.WriteString("## Suggested rules (from mem pattern analysis)\n")
	fmt.Fprintf(&b, "<!-- based on %d sessions, %s -->\n\n", r.Memories, now.UTC().Format("2006-01-02"))

	if len(r.Bigrams) == 0 && len(r.Unigrams) == 0 {
		b.WriteString("No recurring patterns detected yet. Capture more sessions for better suggestions.\n")
		return b.String()
	}

	if len(r.Bigrams) > 0 {
		b.WriteString("### Recurring phrase patterns\n\n")
		for _, p := range r.Bigrams {
			fmt.Fprintf(&b, "- [detected phrase: %q appears in %dx sessions] Consider adding a rule about: `%s`\n", p.Text, p.Count, p.Text)
		}
		b.WriteString("\n")
	}

	if len(r.Unigrams) > 0 {
		b.WriteString("### Recurring single-term patterns\n\n")
		for _, p := range r.Unigrams {
			fmt.Fprintf(&b, "- [detected term: %q appears in %dx sessions] Consider adding: \"This project uses/involves `%s`\"\n", p.Text, p.Count, p.Text)
		}
		b.WriteString("\n")
	}

	return b.String()
}
