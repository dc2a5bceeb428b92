package research

// RawResult is one retrieved document. Scoped to a single run.
type RawResult struct {
	URL     string
	Title   string
	Content string
	// Query is the sub-query that found this result.
	Query string
}

// FilterDecision is the structured output of the relevance judge.
type FilterDecision struct {
	RelevantIndices []int `json:"relevant_indices"`
}

// FilterOutcome says which path produced a Selection.
type FilterOutcome string

const (
	// OutcomeLLM means the judge returned at least one valid index.
	OutcomeLLM FilterOutcome = "llm"
	// OutcomeFallbackError means the call or its parsing failed.
	OutcomeFallbackError FilterOutcome = "fallback_error"
	// OutcomeFallbackEmpty means the call succeeded with no valid index.
	OutcomeFallbackEmpty FilterOutcome = "fallback_empty"
	// OutcomeSkipped means there was nothing to filter.
	OutcomeSkipped FilterOutcome = "skipped"
)

// Selection is the ordered set of raw result indices kept for the report.
type Selection struct {
	Indices []int
	Outcome FilterOutcome
	// Err is the cause of a fallback_error outcome, nil otherwise.
	Err error
}

// Source is a selected result as it is cited. Num is 1-based and follows selection order.
type Source struct {
	Num   int    `json:"num"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Evidence holds the Sources and the Context built from them in one pass.
type Evidence struct {
	Sources   []Source
	Context   string
	Truncated bool
}

// Empty reports whether the evidence puts the composer in its no-evidence state.
func (e Evidence) Empty() bool {
	return len(e.Sources) == 0 || isBlank(e.Context)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Plan []string
	// PlanError is the *PlanningError when the planner failed and the
	// question itself was searched.
	PlanError error
	Report    string
	Sources   []Source
	Outcome   FilterOutcome
	Retrieved int
	// RetrievalErrors lists sub-queries that failed and were skipped.
	RetrievalErrors []error
}
