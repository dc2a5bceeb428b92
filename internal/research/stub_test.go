package research

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/webscout/orchestrator/internal/llm"
)

// stubCompleter answers by prompt role and records every request.
type stubCompleter struct {
	mu       sync.Mutex
	plan     func(llm.Request) (string, error)
	filter   func(llm.Request) (string, error)
	write    func(llm.Request) (string, error)
	requests []llm.Request
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	var fn func(llm.Request) (string, error)
	switch req.System {
	case plannerSystemPrompt:
		fn = s.plan
	case filterSystemPrompt:
		fn = s.filter
	case narrativeSystemPrompt:
		fn = s.write
	}
	if fn == nil {
		return "", fmt.Errorf("unexpected request: %.40q", req.System)
	}
	return fn(req)
}

func (s *stubCompleter) calls(system string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.System == system {
			n++
		}
	}
	return n
}

func (s *stubCompleter) last(system string) (llm.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].System == system {
			return s.requests[i], true
		}
	}
	return llm.Request{}, false
}

func reply(text string) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return text, nil }
}

func fail(err error) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return "", err }
}

func rawResults(n int) []RawResult {
	out := make([]RawResult, n)
	for i := range out {
		out[i] = RawResult{
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Title:   fmt.Sprintf("Result %d", i),
			Content: fmt.Sprintf("Content of result %d. %s", i, strings.Repeat("detail ", 5)),
		}
	}
	return out
}
