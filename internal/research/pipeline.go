package research

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/logging"
	"github.com/webscout/orchestrator/internal/metrics"
	"github.com/webscout/orchestrator/internal/search"
	"github.com/webscout/orchestrator/internal/tracing"
)

// ErrEmptyQuestion is returned by Run for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Retriever fetches raw results for a set of sub-queries.
type Retriever interface {
	SearchAll(ctx context.Context, queries []string) ([]search.Document, []error, error)
}

// PipelineConfig bounds the evidence handed to the composer.
type PipelineConfig struct {
	// ContextChars caps the assembled context in runes.
	ContextChars int
}

// Pipeline runs plan, search, filter and compose strictly in sequence.
type Pipeline struct {
	planner   *Planner
	retriever Retriever
	filter    *Filter
	composer  *Composer
	cfg       PipelineConfig
	logger    *zap.Logger
}

func NewPipeline(planner *Planner, retriever Retriever, filter *Filter, composer *Composer, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = DefaultContextChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		planner:   planner,
		retriever: retriever,
		filter:    filter,
		composer:  composer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run answers question. Planning, retrieval and filtering degrade instead of
// failing; a narrative failure or a done context fails the run and no partial
// result is returned.
func (p *Pipeline) Run(ctx context.Context, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	logger := logging.FromContext(ctx, p.logger)

	ctx, span := tracing.StartSpan(ctx, "research.run", attribute.Int("question.length", len(question)))
	res, err := p.run(ctx, logger, question)
	tracing.EndSpan(span, err)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case res.Outcome == OutcomeSkipped || len(res.Sources) == 0:
		status = "no_evidence"
	}
	metrics.PipelineRuns.WithLabelValues(status).Inc()
	if err != nil {
		logger.Error("Research run failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, logger *zap.Logger, question string) (*Result, error) {
	// plan
	var plan []string
	var planErr error
	err := p.stage(ctx, logger, "plan", func(ctx context.Context) error {
		// on failure plan holds the question itself
		plan, planErr = p.planner.Plan(ctx, question)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	// search
	var raw []RawResult
	var retrievalErrs []error
	err = p.stage(ctx, logger, "search", func(ctx context.Context) error {
		docs, errs, serr := p.retriever.SearchAll(ctx, plan)
		if serr != nil {
			return serr
		}
		retrievalErrs = errs
		raw = make([]RawResult, len(docs))
		for i, d := range docs {
			raw[i] = RawResult{URL: d.URL, Title: d.Title, Content: d.Content, Query: d.Query}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// filter
	var sel Selection
	var ev Evidence
	err = p.stage(ctx, logger, "filter", func(ctx context.Context) error {
		sel = p.filter.Select(ctx, question, raw)
		ev = buildEvidence(raw, sel.Indices, p.cfg.ContextChars)
		metrics.SourcesSelected.Observe(float64(len(ev.Sources)))
		if ev.Truncated {
			metrics.ContextTruncations.Inc()
		}
		logger.Info("Relevance filter finished",
			zap.String("outcome", string(sel.Outcome)),
			zap.Int("results", len(raw)),
			zap.Int("sources", len(ev.Sources)),
			zap.Bool("truncated", ev.Truncated),
		)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	// compose
	var report string
	err = p.stage(ctx, logger, "compose", func(ctx context.Context) error {
		var cerr error
		report, cerr = p.composer.Compose(ctx, question, ev)
		return cerr
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Plan:            plan,
		PlanError:       planErr,
		Report:          report,
		Sources:         ev.Sources,
		Outcome:         sel.Outcome,
		Retrieved:       len(raw),
		RetrievalErrors: retrievalErrs,
	}, nil
}

// stage wraps fn in a span, a duration observation and a log line.
func (p *Pipeline) stage(ctx context.Context, logger *zap.Logger, name string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "research."+name)
	err := fn(ctx)
	tracing.EndSpan(span, err)

	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	logger.Debug("Stage complete",
		zap.String("stage", name),
		zap.Duration("duration", elapsed),
		zap.Bool("ok", err == nil),
	)
	return err
}
