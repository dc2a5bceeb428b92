package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/webscout/orchestrator/internal/metrics"
)

// Document is a Result tagged with the sub-query that found it.
type Document struct {
	Result
	Query string
}

// RetrievalError records a failed sub-query. It is reported, never fatal.
type RetrievalError struct {
	Query string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// RetrieverConfig bounds the fan-out.
type RetrieverConfig struct {
	MaxConcurrency int
	// Timeout applies to each sub-query; zero means the caller's context only.
	Timeout time.Duration
	Dedupe  bool
}

// Retriever runs every sub-query against a Searcher and merges the results.
type Retriever struct {
	searcher Searcher
	cfg      RetrieverConfig
	logger   *zap.Logger
}

func NewRetriever(searcher Searcher, cfg RetrieverConfig, logger *zap.Logger) *Retriever {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{searcher: searcher, cfg: cfg, logger: logger}
}

// SearchAll searches each query concurrently. Documents come back in query
// order, then engine rank. A failing query contributes a RetrievalError and
// no documents; the others are unaffected. The only returned error is the
// caller's context being done.
func (r *Retriever) SearchAll(ctx context.Context, queries []string) ([]Document, []error, error) {
	slots := make([][]Result, len(queries))
	failures := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			qctx := gctx
			if r.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				qctx, cancel = context.WithTimeout(gctx, r.cfg.Timeout)
				defer cancel()
			}
			results, err := r.searcher.Search(qctx, q)
			if err != nil {
				failures[i] = &RetrievalError{Query: q, Err: err}
				return nil
			}
			slots[i] = results
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var errs []error
	for _, err := range failures {
		if err == nil {
			continue
		}
		errs = append(errs, err)
		metrics.RetrievalErrors.Inc()
		r.logger.Warn("Sub-query search failed, skipping", zap.Error(err))
	}

	seen := make(map[string]bool)
	var docs []Document
	for i, results := range slots {
		for _, res := range results {
			if r.cfg.Dedupe && res.URL != "" {
				key := normalizeURL(res.URL)
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			docs = append(docs, Document{Result: res, Query: queries[i]})
		}
	}
	metrics.RetrievedResults.Observe(float64(len(docs)))
	r.logger.Debug("Retrieval complete",
		zap.Int("queries", len(queries)),
		zap.Int("failed", len(errs)),
		zap.Int("documents", len(docs)),
	)
	return docs, errs, nil
}

// normalizeURL lowercases scheme and host and drops the fragment and a trailing slash.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.TrimSpace(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}
