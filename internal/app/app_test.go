package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/webscout/orchestrator/internal/circuitbreaker"
	"github.com/webscout/orchestrator/internal/config"
	"github.com/webscout/orchestrator/internal/research"
)

func completion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

func fakeLLM(t *testing.T, narrative string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		system := req.Messages[0].Content
		switch {
		case strings.HasPrefix(system, "You are a research planning assistant"):
			completion(w, `{"queries":["alpha facts","beta facts"]}`)
		case strings.HasPrefix(system, "You are a relevance filter"):
			completion(w, `{"relevant_indices":[1]}`)
		case strings.HasPrefix(system, "You are a research report writer"):
			completion(w, narrative)
		default:
			http.Error(w, "unexpected prompt", http.StatusBadRequest)
		}
	}))
}

func fakeTavily(t *testing.T, empty bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if empty {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		name := strings.Fields(req.Query)[0]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{
				"url":     "https://" + name + ".example/page",
				"title":   strings.ToUpper(name[:1]) + name[1:],
				"content": "All about " + name + ".",
			}},
		})
	}))
}

func testConfig(llmURL, searchURL string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			BaseURL: llmURL, APIKey: "test-key", Model: "m",
			MaxTokens: 512, StructuredMode: "json_object",
		},
		Search: config.SearchConfig{
			BaseURL: searchURL, APIKey: "tvly-test",
			MaxResults: 5, SearchDepth: "basic", MaxConcurrency: 2, Dedupe: true,
		},
		Pipeline: config.PipelineConfig{
			MaxSubQueries: 3, SummaryChars: 500, ContextChars: 15000, FallbackCount: 3,
		},
		Timeouts: config.TimeoutConfig{
			Plan: 5 * time.Second, Search: 5 * time.Second,
			Filter: 5 * time.Second, Narrative: 5 * time.Second,
		},
	}
}

func TestBuildRunsEndToEnd(t *testing.T) {
	llmSrv := fakeLLM(t, "Beta is well documented [1]. Alpha is not [2].")
	defer llmSrv.Close()
	searchSrv := fakeTavily(t, false)
	defer searchSrv.Close()

	c := Build(testConfig(llmSrv.URL, searchSrv.URL), zaptest.NewLogger(t))
	res, err := c.Pipeline.Run(context.Background(), "alpha versus beta")
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha facts", "beta facts"}, res.Plan)
	assert.Equal(t, research.OutcomeLLM, res.Outcome)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "https://beta.example/page", res.Sources[0].URL)
	assert.Contains(t, res.Report, "Beta is well documented [[Beta](https://beta.example/page)].")
	assert.NotContains(t, res.Report, "[2]")
	assert.True(t, strings.HasSuffix(res.Report, "## Sources\n1. [Beta](https://beta.example/page)"))

	assert.Equal(t, circuitbreaker.StateClosed, c.LLMBreaker.State())
	assert.ElementsMatch(t, []string{"llm", "search"}, c.Breakers.Names())
}

func TestBuildNoEvidence(t *testing.T) {
	llmSrv := fakeLLM(t, "should not be requested")
	defer llmSrv.Close()
	searchSrv := fakeTavily(t, true)
	defer searchSrv.Close()

	c := Build(testConfig(llmSrv.URL, searchSrv.URL), zaptest.NewLogger(t))
	res, err := c.Pipeline.Run(context.Background(), "alpha versus beta")
	require.NoError(t, err)
	assert.Equal(t, research.NoEvidenceReport, res.Report)
	assert.Empty(t, res.Sources)
}
