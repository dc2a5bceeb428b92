// Package app wires configuration into a ready-to-run research pipeline.
package app

import (
	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/circuitbreaker"
	"github.com/webscout/orchestrator/internal/config"
	"github.com/webscout/orchestrator/internal/llm"
	"github.com/webscout/orchestrator/internal/research"
	"github.com/webscout/orchestrator/internal/search"
)

const (
	llmBreakerName    = "llm"
	searchBreakerName = "search"
)

// Components are the long-lived collaborators behind one pipeline.
type Components struct {
	Pipeline      *research.Pipeline
	Breakers      *circuitbreaker.Registry
	LLMBreaker    *circuitbreaker.CircuitBreaker
	SearchBreaker *circuitbreaker.CircuitBreaker
}

// Build constructs the pipeline from cfg. Both upstreams are guarded by
// their own circuit breaker.
func Build(cfg *config.Config, logger *zap.Logger) *Components {
	breakers := circuitbreaker.NewRegistry()
	llmCB := circuitbreaker.NewCircuitBreaker(llmBreakerName, circuitbreaker.LLMConfig(), logger)
	searchCB := circuitbreaker.NewCircuitBreaker(searchBreakerName, circuitbreaker.SearchConfig(), logger)
	breakers.Register(llmCB)
	breakers.Register(searchCB)

	completer := llm.NewClient(llm.ClientConfig{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		StructuredMode: cfg.LLM.StructuredMode,
		MaxRetries:     1,
	}, circuitbreaker.NewHTTPClient(llmCB), logger)

	tavily := search.NewTavilyClient(search.TavilyConfig{
		BaseURL:     cfg.Search.BaseURL,
		APIKey:      cfg.Search.APIKey,
		MaxResults:  cfg.Search.MaxResults,
		SearchDepth: cfg.Search.SearchDepth,
	}, circuitbreaker.NewHTTPClient(searchCB), logger)
	retriever := search.NewRetriever(tavily, search.RetrieverConfig{
		MaxConcurrency: cfg.Search.MaxConcurrency,
		Timeout:        cfg.Timeouts.Search,
		Dedupe:         cfg.Search.Dedupe,
	}, logger)

	planner := research.NewPlanner(completer, research.PlannerConfig{
		Temperature:   cfg.LLM.PlannerTemperature,
		Timeout:       cfg.Timeouts.Plan,
		MaxSubQueries: cfg.Pipeline.MaxSubQueries,
	}, logger)
	filter := research.NewFilter(completer, research.FilterConfig{
		Temperature:   cfg.LLM.FilterTemperature,
		Timeout:       cfg.Timeouts.Filter,
		SummaryChars:  cfg.Pipeline.SummaryChars,
		FallbackCount: cfg.Pipeline.FallbackCount,
		MaxSelected:   cfg.Pipeline.MaxSelected,
	}, logger)
	composer := research.NewComposer(completer, research.NewCitationInjector(logger), research.ComposerConfig{
		Temperature: cfg.LLM.NarrativeTemperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.Timeouts.Narrative,
	}, logger)

	pipeline := research.NewPipeline(planner, retriever, filter, composer, research.PipelineConfig{
		ContextChars: cfg.Pipeline.ContextChars,
	}, logger)

	return &Components{
		Pipeline:      pipeline,
		Breakers:      breakers,
		LLMBreaker:    llmCB,
		SearchBreaker: searchCB,
	}
}
