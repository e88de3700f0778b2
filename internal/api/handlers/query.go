package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/adviserops/chaser/internal/api"
	"github.com/adviserops/chaser/internal/api/middleware"
	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/service"
)

type QueryService interface {
	AnswerQuery(ctx context.Context, firmID, query string, mode domain.QueryMode) (*service.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
}

type QueryResponse struct {
	Answer     string  `json:"answer"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Rows       any     `json:"rows,omitempty"`
	Rounds     int     `json:"rounds"`
}

// Answer runs one natural-language query through the reasoning loop
func (h *QueryHandler) Answer(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	mode, err := domain.ParseQueryMode(req.Mode)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "mode must be rule_based or llm_assisted")
		return
	}

	result, err := h.svc.AnswerQuery(r.Context(), firmID, req.Query, mode)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Answer:     result.Answer,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Rows:       result.Rows,
		Rounds:     result.Rounds,
	})
}
