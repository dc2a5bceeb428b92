package research

import (
	"fmt"

	"github.com/webscout/orchestrator/internal/search"
)

// RetrievalError is a failed sub-query search. Logged and skipped.
type RetrievalError = search.RetrievalError

// FilterDecisionError means the relevance judge produced no usable decision.
// It selects the fallback and never fails the run.
type FilterDecisionError struct {
	Err error
}

func (e *FilterDecisionError) Error() string {
	return fmt.Sprintf("relevance decision unavailable: %v", e.Err)
}

func (e *FilterDecisionError) Unwrap() error { return e.Err }

// NarrativeGenerationError fails the run. There is no fallback narrative.
type NarrativeGenerationError struct {
	Err error
}

func (e *NarrativeGenerationError) Error() string {
	return fmt.Sprintf("narrative generation failed: %v", e.Err)
}

func (e *NarrativeGenerationError) Unwrap() error { return e.Err }

// PlanningError means the planner could not produce sub-queries. The
// pipeline continues with the question itself as the only sub-query.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("research planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }
