package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeJSON decodes a model response into out. Code fences are stripped; if
// strict decoding fails the text is repaired once (truncated arrays, trailing
// commas, single quotes) and decoded again. The original error is returned
// when both attempts fail.
func DecodeJSON(raw string, out any) error {
	clean := StripCodeFences(raw)
	if clean == "" {
		return ErrEmptyCompletion
	}
	err := json.Unmarshal([]byte(clean), out)
	if err == nil {
		return nil
	}
	originalErr := err

	repaired, rerr := jsonrepair.JSONRepair(clean)
	if rerr != nil {
		return fmt.Errorf("decode structured output: %w", originalErr)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("decode structured output: %w", originalErr)
	}
	return nil
}

// StripCodeFences removes a surrounding ```json ... ``` block if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	return s
}
