package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/webscout/orchestrator/internal/research"
)

type researcherFunc func(ctx context.Context, question string) (*research.Result, error)

func (f researcherFunc) Run(ctx context.Context, question string) (*research.Result, error) {
	return f(ctx, question)
}

func newTestMux(t *testing.T, r Researcher) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mux := http.NewServeMux()
	NewResearchHandler(r, logger).RegisterRoutes(mux, nil)
	return Chain(mux, RequestID(logger), AccessLog(logger), CORS([]string{"http://localhost:3000"}))
}

func TestRootEndpoint(t *testing.T) {
	h := newTestMux(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"AI Research Assistant API is running"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResearchSuccess(t *testing.T) {
	var got string
	h := newTestMux(t, researcherFunc(func(_ context.Context, q string) (*research.Result, error) {
		got = q
		return &research.Result{
			Plan:   []string{"a", "b"},
			Report: "X is true [[A](http://a)].\n\n## Sources\n1. [A](http://a)",
		}, nil
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"query":"  what is X?  "}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what is X?", got)
	var body researchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, []string{"a", "b"}, body.Plan)
	assert.Contains(t, body.Report, "## Sources")
}

func TestResearchNilPlanEncodesAsEmptyArray(t *testing.T) {
	h := newTestMux(t, researcherFunc(func(context.Context, string) (*research.Result, error) {
		return &research.Result{Report: research.NoEvidenceReport}, nil
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"query":"q"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plan":[]`)
}

func TestResearchBadRequests(t *testing.T) {
	called := false
	h := newTestMux(t, researcherFunc(func(context.Context, string) (*research.Result, error) {
		called = true
		return &research.Result{}, nil
	}))

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"malformed json", `{"query":`, "invalid JSON body"},
		{"empty body", ``, "query is required"},
		{"missing query", `{}`, "query is required"},
		{"blank query", `{"query":"   "}`, "query is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"detail":"`+tt.detail+`"}`, rec.Body.String())
		})
	}
	assert.False(t, called)
}

func TestResearchFailure(t *testing.T) {
	h := newTestMux(t, researcherFunc(func(context.Context, string) (*research.Result, error) {
		return nil, errors.New("narrative generation failed")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"query":"q"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Research failed: narrative generation failed"}`, rec.Body.String())
}

func TestResearchRejectsGet(t *testing.T) {
	h := newTestMux(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/research", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
