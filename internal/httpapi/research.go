package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/webscout/orchestrator/internal/logging"
	"github.com/webscout/orchestrator/internal/research"
)

const maxRequestBody = 64 << 10

// Researcher runs one research pipeline.
type Researcher interface {
	Run(ctx context.Context, question string) (*research.Result, error)
}

// ResearchHandler serves the public research API.
type ResearchHandler struct {
	researcher Researcher
	logger     *zap.Logger
}

func NewResearchHandler(researcher Researcher, logger *zap.Logger) *ResearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResearchHandler{researcher: researcher, logger: logger}
}

// RegisterRoutes registers the research routes on mux. limit wraps the
// research endpoint and may be nil.
func (h *ResearchHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	var handler http.Handler = http.HandlerFunc(h.handleResearch)
	if limit != nil {
		handler = limit(handler)
	}
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.Handle("POST /api/research", handler)
}

type researchRequest struct {
	Query string `json:"query"`
}

type researchResponse struct {
	Status string   `json:"status"`
	Plan   []string `json:"plan"`
	Report string   `json:"report"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *ResearchHandler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "AI Research Assistant API is running"})
}

func (h *ResearchHandler) handleResearch(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), h.logger)

	var req researchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Invalid research request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON body"})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "query is required"})
		return
	}

	logger.Info("Research request received", zap.Int("query_length", len(query)))
	res, err := h.researcher.Run(r.Context(), query)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Research failed: " + err.Error()})
		return
	}

	plan := res.Plan
	if plan == nil {
		plan = []string{}
	}
	writeJSON(w, http.StatusOK, researchResponse{Status: "success", Plan: plan, Report: res.Report})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
