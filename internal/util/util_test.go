package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "shorter than limit", input: "hello", max: 10, want: "hello"},
		{name: "exact limit", input: "hello", max: 5, want: "hello"},
		{name: "ascii cut", input: "hello world", max: 5, want: "hello"},
		{name: "multibyte cut", input: "查询中文数据库", max: 3, want: "查询中"},
		{name: "zero limit", input: "hello", max: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestTruncateString_UTF8(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		maxLen        int
		preserveWords bool
	}{
		{name: "Chinese characters", input: "查询中文数据库中的用户信息", maxLen: 10},
		{name: "English with word boundaries", input: "This is a very long string that needs truncation", maxLen: 20, preserveWords: true},
		{name: "Mixed language", input: "Query for 用户信息 in the database system", maxLen: 25, preserveWords: true},
		{name: "Emoji", input: "Hello 👋 World 🌍 Testing 🎉 Emoji", maxLen: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateString(tt.input, tt.maxLen, tt.preserveWords)
			assert.True(t, utf8.ValidString(result), "invalid UTF-8: %q", result)
			assert.LessOrEqual(t, utf8.RuneCountInString(result), tt.maxLen)
			assert.True(t, strings.HasSuffix(result, "..."), "expected ellipsis on %q", result)
		})
	}
}

func TestTruncateString_NoTruncation(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 40, false))
	assert.Equal(t, "", TruncateString("anything", 0, false))
	assert.Equal(t, "..", TruncateString("anything", 2, false))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\t b   c "))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}

func TestUniqueNonEmpty(t *testing.T) {
	got := UniqueNonEmpty([]string{" AI risks ", "", "ai risks", "AI regulation", "  "})
	assert.Equal(t, []string{"AI risks", "AI regulation"}, got)
}
