package formatting

import (
	"regexp"
	"strconv"
	"strings"
)

// Reference is one line of a report's Sources section.
type Reference struct {
	Num   int
	Title string
	URL   string
}

// a Sources/References line on its own: a heading of any depth, a bold or
// italic label, or a plain "Sources:" label
var sourcesHeadingRe = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*|__|\*|_)?[ \t]*(?:sources|references)[ \t]*:?[ \t]*(?:\*\*|__|\*|_)?[ \t]*:?[ \t]*$`)

// StripSourcesSection removes the last Sources or References section and
// everything after it. The last occurrence is used so a heading mentioned
// earlier in the body does not cut content.
func StripSourcesSection(report string) string {
	locs := sourcesHeadingRe.FindAllStringIndex(report, -1)
	if len(locs) == 0 {
		return strings.TrimSpace(report)
	}
	return strings.TrimSpace(report[:locs[len(locs)-1][0]])
}

// FormatSourcesSection renders refs, in the given order, as a "## Sources" section.
func FormatSourcesSection(refs []Reference) string {
	if len(refs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Sources\n")
	for i, r := range refs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(r.Num))
		b.WriteString(". ")
		if r.URL != "" {
			b.WriteString("[" + r.Title + "](" + r.URL + ")")
		} else {
			b.WriteString(r.Title)
		}
	}
	return b.String()
}

// FormatReportWithSources replaces any Sources section already present in
// body with one rebuilt from refs. With no refs the body is returned stripped.
func FormatReportWithSources(body string, refs []Reference) string {
	cut := StripSourcesSection(body)
	section := FormatSourcesSection(refs)
	if section == "" {
		return cut
	}
	if cut == "" {
		return section
	}
	return cut + "\n\n" + section
}
