package research

import (
	"strconv"
	"strings"

	"github.com/webscout/orchestrator/internal/util"
)

const (
	// DefaultContextChars caps the assembled context, in runes.
	DefaultContextChars = 15000
	// TruncationSuffix is appended whenever the context hits the cap.
	TruncationSuffix = "\n\n[Content truncated due to length...]"

	defaultSourceTitle = "Source"
)

// BuildEvidence numbers the selected results and assembles their context.
// Sources and context blocks come from the same loop, so every [num] in the
// context has a Source and vice versa. Indices outside raw are skipped
// without consuming a number.
func BuildEvidence(raw []RawResult, selected []int) Evidence {
	return buildEvidence(raw, selected, DefaultContextChars)
}

func buildEvidence(raw []RawResult, selected []int, maxChars int) Evidence {
	sources := make([]Source, 0, len(selected))
	blocks := make([]string, 0, len(selected))
	for _, idx := range selected {
		if idx < 0 || idx >= len(raw) {
			continue
		}
		r := raw[idx]
		num := len(sources) + 1
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = defaultSourceTitle
		}
		sources = append(sources, Source{Num: num, Title: title, URL: strings.TrimSpace(r.URL)})
		blocks = append(blocks, "["+strconv.Itoa(num)+"]: "+r.Content)
	}

	joined := strings.Join(blocks, "\n\n")
	truncated := false
	if cut := util.TruncateRunes(joined, maxChars); len(cut) < len(joined) {
		joined = cut + TruncationSuffix
		truncated = true
	}
	return Evidence{Sources: sources, Context: joined, Truncated: truncated}
}
