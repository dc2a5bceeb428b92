package research

import (
	"strconv"
	"strings"

	"github.com/webscout/orchestrator/internal/util"
)

const (
	// DefaultSummaryChars is how much of each result's content the judge sees.
	DefaultSummaryChars = 500
	summarySeparator    = "\n\n---\n\n"
)

// SummarizeResults numbers and truncates raw results for the relevance judge.
// Empty input yields "", which means no judge call is needed.
func SummarizeResults(raw []RawResult) string {
	return summarizeResults(raw, DefaultSummaryChars)
}

func summarizeResults(raw []RawResult, maxChars int) string {
	if len(raw) == 0 {
		return ""
	}
	entries := make([]string, len(raw))
	for i, r := range raw {
		var b strings.Builder
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("] Title: ")
		b.WriteString(r.Title)
		b.WriteString("\nContent: ")
		b.WriteString(util.TruncateRunes(r.Content, maxChars))
		entries[i] = b.String()
	}
	return strings.Join(entries, summarySeparator)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
