package research

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/llm"
	"github.com/webscout/orchestrator/internal/util"
)

const DefaultMaxSubQueries = 3

var errEmptyPlan = errors.New("planner returned no queries")

// PlannerConfig tunes Planner.
type PlannerConfig struct {
	Temperature   float64
	Timeout       time.Duration
	MaxSubQueries int
}

// Planner splits a question into focused web search queries.
type Planner struct {
	completer llm.Completer
	cfg       PlannerConfig
	logger    *zap.Logger
}

func NewPlanner(completer llm.Completer, cfg PlannerConfig, logger *zap.Logger) *Planner {
	if cfg.MaxSubQueries <= 0 {
		cfg.MaxSubQueries = DefaultMaxSubQueries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{completer: completer, cfg: cfg, logger: logger}
}

// Plan returns trimmed, de-duplicated sub-queries, at most MaxSubQueries.
// On failure the question itself is returned as the only sub-query together
// with a *PlanningError for the caller to log.
func (p *Planner) Plan(ctx context.Context, question string) ([]string, error) {
	queries, err := p.plan(ctx, question)
	if err != nil {
		p.logger.Warn("Planning failed, searching the question directly", zap.Error(err))
		return []string{question}, &PlanningError{Err: err}
	}
	return queries, nil
}

func (p *Planner) plan(ctx context.Context, question string) ([]string, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	text, err := p.completer.Complete(ctx, llm.Request{
		System:      plannerSystemPrompt,
		User:        plannerUserPrompt(question, p.cfg.MaxSubQueries),
		Schema:      plannerSchema,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Queries []string `json:"queries"`
	}
	if err := llm.DecodeJSON(text, &out); err != nil {
		return nil, err
	}
	queries := util.UniqueNonEmpty(out.Queries)
	if len(queries) == 0 {
		return nil, errEmptyPlan
	}
	if len(queries) > p.cfg.MaxSubQueries {
		queries = queries[:p.cfg.MaxSubQueries]
	}
	return queries, nil
}
