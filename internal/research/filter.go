package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/llm"
	"github.com/webscout/orchestrator/internal/metrics"
)

// DefaultFallbackCount is how many leading results are kept when the judge fails.
const DefaultFallbackCount = 3

var errMissingIndices = errors.New(`response has no "relevant_indices" field`)

// FilterConfig tunes Filter.
type FilterConfig struct {
	Temperature   float64
	Timeout       time.Duration
	SummaryChars  int
	FallbackCount int
	// MaxSelected caps the judge's selection; 0 means no cap.
	MaxSelected int
}

// Filter selects the relevant subset of a run's raw results with a single
// judge call per run.
type Filter struct {
	completer llm.Completer
	cfg       FilterConfig
	logger    *zap.Logger
}

func NewFilter(completer llm.Completer, cfg FilterConfig, logger *zap.Logger) *Filter {
	if cfg.SummaryChars <= 0 {
		cfg.SummaryChars = DefaultSummaryChars
	}
	if cfg.FallbackCount <= 0 {
		cfg.FallbackCount = DefaultFallbackCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{completer: completer, cfg: cfg, logger: logger}
}

// Select returns the indices of raw to cite, in the judge's order. It never
// fails: for non-empty raw the selection is never empty.
func (f *Filter) Select(ctx context.Context, question string, raw []RawResult) Selection {
	sel := f.selectIndices(ctx, question, raw)
	metrics.FilterDecisions.WithLabelValues(string(sel.Outcome)).Inc()
	return sel
}

func (f *Filter) selectIndices(ctx context.Context, question string, raw []RawResult) Selection {
	summaries := summarizeResults(raw, f.cfg.SummaryChars)
	if summaries == "" {
		return Selection{Indices: []int{}, Outcome: OutcomeSkipped}
	}

	decision, err := f.decide(ctx, question, summaries)
	if err != nil {
		f.logger.Warn("Relevance filter failed, using leading results",
			zap.Int("results", len(raw)),
			zap.Int("fallback", min(f.cfg.FallbackCount, len(raw))),
			zap.Error(err),
		)
		return Selection{Indices: fallbackIndices(len(raw), f.cfg.FallbackCount), Outcome: OutcomeFallbackError, Err: err}
	}

	indices := validateIndices(decision, len(raw))
	if len(indices) == 0 {
		f.logger.Info("Relevance filter selected nothing, using leading results",
			zap.Int("results", len(raw)),
			zap.Int("returned", len(decision)),
		)
		return Selection{Indices: fallbackIndices(len(raw), f.cfg.FallbackCount), Outcome: OutcomeFallbackEmpty}
	}
	if f.cfg.MaxSelected > 0 && len(indices) > f.cfg.MaxSelected {
		indices = indices[:f.cfg.MaxSelected]
	}
	f.logger.Debug("Relevance filter selected results",
		zap.Int("results", len(raw)),
		zap.Ints("selected", indices),
	)
	return Selection{Indices: indices, Outcome: OutcomeLLM}
}

// decide makes the judge call and returns the raw decoded indices.
func (f *Filter) decide(ctx context.Context, question, summaries string) ([]json.RawMessage, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}
	text, err := f.completer.Complete(ctx, llm.Request{
		System:      filterSystemPrompt,
		User:        filterUserPrompt(question, summaries),
		Schema:      filterSchema,
		Temperature: f.cfg.Temperature,
	})
	if err != nil {
		return nil, &FilterDecisionError{Err: err}
	}
	return parseDecision(text)
}

// parseDecision decodes the judge output. Elements are kept raw so one bad
// element does not discard the rest.
func parseDecision(text string) ([]json.RawMessage, error) {
	var out struct {
		RelevantIndices *[]json.RawMessage `json:"relevant_indices"`
	}
	if err := llm.DecodeJSON(text, &out); err != nil {
		return nil, &FilterDecisionError{Err: err}
	}
	if out.RelevantIndices == nil {
		return nil, &FilterDecisionError{Err: errMissingIndices}
	}
	return *out.RelevantIndices, nil
}

// validateIndices drops non-integer and out-of-range entries and duplicates,
// keeping the order of first appearance.
func validateIndices(decision []json.RawMessage, n int) []int {
	seen := make(map[int]bool, len(decision))
	out := make([]int, 0, len(decision))
	for _, raw := range decision {
		idx, ok := parseIndex(raw)
		if !ok || idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

// parseIndex accepts integers, integral floats and numeric strings.
func parseIndex(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
	} else {
		s = string(raw)
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	fv, err := strconv.ParseFloat(s, 64)
	if err != nil || fv != math.Trunc(fv) || math.Abs(fv) > math.MaxInt32 {
		return 0, false
	}
	return int(fv), true
}

func fallbackIndices(n, count int) []int {
	k := min(count, n)
	out := make([]int, k)
	for i := range out {
		out[i] = i
	}
	return out
}
