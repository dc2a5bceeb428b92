package research

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/formatting"
	"github.com/webscout/orchestrator/internal/metrics"
	"github.com/webscout/orchestrator/internal/util"
)

const (
	citationTitleMax = 40

	// private-use runes delimit placeholders so the cleanup pass cannot match them
	placeholderOpen  = "\uE000"
	placeholderClose = "\uE001"
	codeMaskOpen     = "\uE002"
	codeMaskClose    = "\uE003"
)

var (
	// source numbers start at 1, so [0] is never a marker
	citationMarkerRe = regexp.MustCompile(`\[([1-9]\d*)\]`)
	groupedMarkerRe  = regexp.MustCompile(`\[([1-9]\d*(?:[ \t]*,[ \t]*[1-9]\d*)+)\]`)
	placeholderRe    = regexp.MustCompile(placeholderOpen + `(\d+)` + placeholderClose)

	// fenced blocks (unterminated ones run to the end) and inline code spans
	codeRe     = regexp.MustCompile("(?s)```.*?(?:```|\\z)|`[^`\n]+`")
	codeMaskRe = regexp.MustCompile(codeMaskOpen + `(\d+)` + codeMaskClose)

	// residual patterns, removed after substitution
	markdownLinkRe = regexp.MustCompile(`\[([^\[\]\n]+)\]\((https?://(?:[^()\s]|\([^()\s]*\))*)\)`)
	sourceParenRe  = regexp.MustCompile(`(?i)[ \t]*\(\s*sources?\s*:[^)\n]*\)`)
	sourceLabelRe  = regexp.MustCompile(`(?i)[ \t]*\[\s*sources?(?:[ \t]+\d+)?\s*\]`)
	// at the start of a line the marker takes one following space with it instead
	unresolvedMarkerRe = regexp.MustCompile(`(?m)^\[[1-9]\d*\][ \t]?|[ \t]*\[[1-9]\d*\]`)
)

// CitationInjector binds the [n] markers of a generated narrative to
// Sources. The generator only ever emits bare numbers; titles and URLs come
// from here.
type CitationInjector struct {
	logger *zap.Logger
}

func NewCitationInjector(logger *zap.Logger) *CitationInjector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CitationInjector{logger: logger}
}

// Inject renders every resolvable marker, removes every other citation-like
// artifact and appends a Sources section listing all of sources. For a
// narrative with no markers Inject is a fixed point.
func (ci *CitationInjector) Inject(narrative string, sources []Source) string {
	body := formatting.StripSourcesSection(narrative)
	body = normalizeGroupedMarkers(body)

	body, resolved := SubstituteMarkers(body, sources)
	body, unresolved := CleanupResidual(body)
	body = expandPlaceholders(body, sources)

	metrics.Citations.WithLabelValues("resolved").Add(float64(resolved))
	metrics.Citations.WithLabelValues("unresolved").Add(float64(unresolved))
	if unresolved > 0 {
		ci.logger.Info("Removed citation markers with no matching source",
			zap.Int("unresolved", unresolved),
			zap.Int("sources", len(sources)),
		)
	}

	refs := make([]formatting.Reference, len(sources))
	for i, s := range sources {
		refs[i] = formatting.Reference{Num: s.Num, Title: cleanTitle(s.Title), URL: s.URL}
	}
	return formatting.FormatReportWithSources(body, refs)
}

// maskCode swaps code spans and fences for opaque tokens so no citation pass
// rewrites code. unmaskCode restores them.
func maskCode(text string) (string, []string) {
	var spans []string
	masked := codeRe.ReplaceAllStringFunc(text, func(m string) string {
		spans = append(spans, m)
		return codeMaskOpen + strconv.Itoa(len(spans)-1) + codeMaskClose
	})
	return masked, spans
}

func unmaskCode(text string, spans []string) string {
	if len(spans) == 0 {
		return text
	}
	return codeMaskRe.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(codeMaskRe.FindStringSubmatch(m)[1])
		if err != nil || i >= len(spans) {
			return m
		}
		return spans[i]
	})
}

// normalizeGroupedMarkers splits [1, 2] into [1][2].
func normalizeGroupedMarkers(text string) string {
	text, spans := maskCode(text)
	text = groupedMarkerRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := strings.Split(m[1:len(m)-1], ",")
		var b strings.Builder
		for _, p := range parts {
			b.WriteString("[" + strings.TrimSpace(p) + "]")
		}
		return b.String()
	})
	return unmaskCode(text, spans)
}

// isLinkTarget reports whether s starts with an inline http(s) link target.
func isLinkTarget(s string) bool {
	return strings.HasPrefix(s, "(http://") || strings.HasPrefix(s, "(https://")
}

// SubstituteMarkers replaces each [num] that has a Source with a placeholder
// for its rendered citation. Code is never touched, and a marker followed by
// an http(s) link target is link text left for CleanupResidual. It returns the
// number of markers replaced.
func SubstituteMarkers(text string, sources []Source) (string, int) {
	text, spans := maskCode(text)
	known := make(map[int]bool, len(sources))
	for _, s := range sources {
		known[s.Num] = true
	}

	var b strings.Builder
	count, last := 0, 0
	for _, loc := range citationMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if isLinkTarget(text[end:]) {
			continue
		}
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || !known[n] {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(placeholderOpen + strconv.Itoa(n) + placeholderClose)
		last = end
		count++
	}
	b.WriteString(text[last:])
	return unmaskCode(b.String(), spans), count
}

// CleanupResidual removes citation formatting the substitution pass did not
// produce: ad-hoc markdown links are reduced to their text, "(Source: ...)"
// and "[Source N]" labels are dropped, and numeric markers with no Source are
// stripped along with the spaces before them (or the one after, at the start
// of a line). Code is left alone. It returns the number of numeric markers
// stripped.
func CleanupResidual(text string) (string, int) {
	text, spans := maskCode(text)
	text = markdownLinkRe.ReplaceAllString(text, "$1")
	text = sourceParenRe.ReplaceAllString(text, "")
	text = sourceLabelRe.ReplaceAllString(text, "")
	unresolved := len(unresolvedMarkerRe.FindAllStringIndex(text, -1))
	text = unresolvedMarkerRe.ReplaceAllString(text, "")
	return unmaskCode(text, spans), unresolved
}

func expandPlaceholders(text string, sources []Source) string {
	byNum := make(map[int]Source, len(sources))
	for _, s := range sources {
		byNum[s.Num] = s
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		n, _ := strconv.Atoi(placeholderRe.FindStringSubmatch(m)[1])
		return RenderCitation(byNum[n])
	})
}

// RenderCitation formats an inline citation: [[title](url)], or [title] without a URL.
func RenderCitation(s Source) string {
	title := util.TruncateString(cleanTitle(s.Title), citationTitleMax, false)
	if s.URL == "" {
		return "[" + title + "]"
	}
	return "[[" + title + "](" + s.URL + ")]"
}

// cleanTitle removes brackets and parentheses and collapses whitespace.
func cleanTitle(title string) string {
	t := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '(', ')':
			return -1
		}
		return r
	}, title)
	t = util.CollapseWhitespace(t)
	if t == "" {
		return defaultSourceTitle
	}
	return t
}
