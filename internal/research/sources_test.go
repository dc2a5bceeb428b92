package research

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEvidence_SelectionOrderNumbering(t *testing.T) {
	raw := rawResults(5)
	raw[3].Title = "  "
	raw[3].URL = ""

	ev := BuildEvidence(raw, []int{3, 1})
	require.Len(t, ev.Sources, 2)
	assert.Equal(t, Source{Num: 1, Title: "Source", URL: ""}, ev.Sources[0])
	assert.Equal(t, Source{Num: 2, Title: "Result 1", URL: "https://example.com/1"}, ev.Sources[1])

	want := "[1]: " + raw[3].Content + "\n\n[2]: " + raw[1].Content
	assert.Equal(t, want, ev.Context)
	assert.False(t, ev.Truncated)
}

func TestBuildEvidence_SkipsInvalidIndices(t *testing.T) {
	ev := BuildEvidence(rawResults(3), []int{-1, 2, 7, 0})
	require.Len(t, ev.Sources, 2)
	assert.Equal(t, 1, ev.Sources[0].Num)
	assert.Equal(t, "Result 2", ev.Sources[0].Title)
	assert.Equal(t, 2, ev.Sources[1].Num)
	assert.True(t, strings.HasPrefix(ev.Context, "[1]: Content of result 2"))
	assert.Contains(t, ev.Context, "\n\n[2]: Content of result 0")
}

func TestBuildEvidence_SourcesMatchBlocks(t *testing.T) {
	raw := rawResults(8)
	selections := [][]int{{}, {0}, {7, 0, 3}, {1, 2, 3, 4, 5, 6}, {5, 5}}
	for _, sel := range selections {
		ev := BuildEvidence(raw, sel)
		for _, s := range ev.Sources {
			assert.Contains(t, ev.Context, fmt.Sprintf("[%d]: ", s.Num))
		}
		assert.NotContains(t, ev.Context, fmt.Sprintf("[%d]: ", len(ev.Sources)+1))
		assert.Equal(t, len(ev.Sources), strings.Count(ev.Context, "]: Content of result"), "selection %v", sel)
	}
}

func TestBuildEvidence_Truncation(t *testing.T) {
	raw := []RawResult{
		{Title: "big", URL: "https://big", Content: strings.Repeat("a", 9000)},
		{Title: "bigger", URL: "https://bigger", Content: strings.Repeat("ü", 9000)},
	}
	ev := BuildEvidence(raw, []int{0, 1})

	require.True(t, ev.Truncated)
	assert.Len(t, ev.Sources, 2, "sources are kept even when their content is cut")
	require.True(t, strings.HasSuffix(ev.Context, TruncationSuffix))
	body := strings.TrimSuffix(ev.Context, TruncationSuffix)
	assert.Equal(t, DefaultContextChars, utf8.RuneCountInString(body))
	assert.Equal(t, DefaultContextChars+utf8.RuneCountInString(TruncationSuffix), utf8.RuneCountInString(ev.Context))
}

func TestBuildEvidence_ExactlyAtCap(t *testing.T) {
	// "[1]: " is 5 runes
	raw := []RawResult{{Title: "t", Content: strings.Repeat("x", DefaultContextChars-5)}}
	ev := BuildEvidence(raw, []int{0})
	assert.False(t, ev.Truncated)
	assert.Equal(t, DefaultContextChars, utf8.RuneCountInString(ev.Context))
}

func TestEvidenceEmpty(t *testing.T) {
	assert.True(t, Evidence{}.Empty())
	assert.True(t, Evidence{Sources: []Source{{Num: 1, Title: "A"}}, Context: " \n"}.Empty())
	assert.False(t, BuildEvidence(rawResults(1), []int{0}).Empty())
}
