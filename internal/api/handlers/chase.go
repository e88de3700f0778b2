package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/adviserops/chaser/internal/api"
	"github.com/adviserops/chaser/internal/api/middleware"
	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/service"
	"github.com/go-chi/chi/v5"
)

type ChaseService interface {
	Create(ctx context.Context, input service.CreateChaseInput) (*domain.ChaseItem, error)
	Get(ctx context.Context, firmID, itemID string) (*domain.ChaseItem, error)
	List(ctx context.Context, input service.ListChasesInput) (*service.ChasePageResult, error)
	ScoreAndRecommend(ctx context.Context, firmID string) (*service.ScoredListing, error)
	RecordAction(ctx context.Context, firmID, itemID string) (*domain.ChaseItem, error)
	Acknowledge(ctx context.Context, firmID, itemID string) (*domain.ChaseItem, error)
}

type ChaseHandler struct {
	svc ChaseService
}

func NewChaseHandler(svc ChaseService) *ChaseHandler {
	return &ChaseHandler{svc: svc}
}

type CreateChaseRequest struct {
	ClientRef    string `json:"client_ref"`
	Type         string `json:"type"`
	ValueTier    string `json:"value_tier"`
	ProviderName string `json:"provider_name,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Blocking     bool   `json:"blocking,omitempty"`
	DueAt        string `json:"due_at,omitempty"`
}

type ChaseItemResponse struct {
	ID             string `json:"id"`
	ClientRef      string `json:"client_ref"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	ValueTier      string `json:"value_tier"`
	ChaseCount     int    `json:"chase_count"`
	ProviderName   string `json:"provider_name,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Blocking       bool   `json:"blocking"`
	DaysOverdue    int    `json:"days_overdue"`
	CreatedAt      string `json:"created_at"`
	DueAt          string `json:"due_at,omitempty"`
	LastChasedAt   string `json:"last_chased_at,omitempty"`
	AcknowledgedAt string `json:"acknowledged_at,omitempty"`
}

type ChaseListResponse struct {
	Items   []*ChaseItemResponse `json:"items"`
	Cursor  string               `json:"cursor,omitempty"`
	HasMore bool                 `json:"has_more"`
}

type ScoredChaseResponse struct {
	Item        *ChaseItemResponse `json:"item"`
	Urgency     float64            `json:"urgency"`
	Stuck       float64            `json:"stuck"`
	Composite   float64            `json:"composite"`
	Priority    string             `json:"priority"`
	DaysOverdue int                `json:"days_overdue"`
}

type RecommendationResponse struct {
	ItemID      string `json:"item_id"`
	ClientRef   string `json:"client_ref"`
	ChaseType   string `json:"chase_type"`
	Priority    string `json:"priority"`
	DaysOverdue int    `json:"days_overdue"`
	ChaseCount  int    `json:"chase_count"`
	Channel     string `json:"channel"`
	Timing      string `json:"timing"`
	Message     string `json:"message"`
	Rationale   string `json:"rationale,omitempty"`
}

type ScoredListingResponse struct {
	Scored          []*ScoredChaseResponse    `json:"scored"`
	Recommendations []*RecommendationResponse `json:"recommendations"`
}

func chaseToResponse(item *domain.ChaseItem, now time.Time) *ChaseItemResponse {
	resp := &ChaseItemResponse{
		ID:           item.ID,
		ClientRef:    item.ClientRef,
		Type:         string(item.Type),
		Status:       string(item.EffectiveStatus(now)),
		ValueTier:    string(item.ValueTier),
		ChaseCount:   item.ChaseCount,
		ProviderName: item.ProviderName,
		Subject:      item.Subject,
		Blocking:     item.Blocking,
		DaysOverdue:  item.DaysOverdue(now),
		CreatedAt:    item.CreatedAt.Format(time.RFC3339),
	}
	if item.DueAt != nil {
		resp.DueAt = item.DueAt.Format(time.RFC3339)
	}
	if item.LastChasedAt != nil {
		resp.LastChasedAt = item.LastChasedAt.Format(time.RFC3339)
	}
	if item.AcknowledgedAt != nil {
		resp.AcknowledgedAt = item.AcknowledgedAt.Format(time.RFC3339)
	}
	return resp
}

func recommendationToResponse(rec *domain.Recommendation) *RecommendationResponse {
	return &RecommendationResponse{
		ItemID:      rec.ItemID,
		ClientRef:   rec.ClientRef,
		ChaseType:   string(rec.ChaseType),
		Priority:    string(rec.Priority),
		DaysOverdue: rec.DaysOverdue,
		ChaseCount:  rec.ChaseCount,
		Channel:     string(rec.Channel),
		Timing:      string(rec.Timing),
		Message:     rec.Message,
		Rationale:   rec.Rationale,
	}
}

func (h *ChaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateChaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ClientRef == "" {
		api.Error(w, http.StatusBadRequest, "client_ref is required")
		return
	}
	if req.Type == "" {
		api.Error(w, http.StatusBadRequest, "type is required")
		return
	}
	if req.ValueTier == "" {
		api.Error(w, http.StatusBadRequest, "value_tier is required")
		return
	}

	input := service.CreateChaseInput{
		FirmID:       firmID,
		ClientRef:    req.ClientRef,
		Type:         domain.ChaseType(req.Type),
		ValueTier:    domain.ValueTier(req.ValueTier),
		ProviderName: req.ProviderName,
		Subject:      req.Subject,
		Blocking:     req.Blocking,
	}

	if req.DueAt != "" {
		dueAt, err := time.Parse(time.RFC3339, req.DueAt)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "due_at must be RFC3339")
			return
		}
		input.DueAt = &dueAt
	}

	item, err := h.svc.Create(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, chaseToResponse(item, time.Now().UTC()))
}

func (h *ChaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.svc.Get(r.Context(), firmID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chaseToResponse(item, time.Now().UTC()))
}

func (h *ChaseHandler) List(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	result, err := h.svc.List(r.Context(), service.ListChasesInput{
		FirmID: firmID,
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	now := time.Now().UTC()
	items := make([]*ChaseItemResponse, len(result.Items))
	for i, item := range result.Items {
		items[i] = chaseToResponse(item, now)
	}

	api.Success(w, http.StatusOK, ChaseListResponse{
		Items:   items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	})
}

// Score runs the scoring pass over the firm's open chase book and returns
// the ranked recommendations alongside the raw scores
func (h *ChaseHandler) Score(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	listing, err := h.svc.ScoreAndRecommend(r.Context(), firmID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	now := time.Now().UTC()
	scored := make([]*ScoredChaseResponse, len(listing.Scored))
	for i, sc := range listing.Scored {
		scored[i] = &ScoredChaseResponse{
			Item:        chaseToResponse(sc.Item, now),
			Urgency:     sc.Urgency,
			Stuck:       sc.Stuck,
			Composite:   sc.Composite,
			Priority:    string(sc.Priority),
			DaysOverdue: sc.DaysOverdue,
		}
	}

	recs := make([]*RecommendationResponse, len(listing.Recommendations))
	for i, rec := range listing.Recommendations {
		recs[i] = recommendationToResponse(rec)
	}

	api.Success(w, http.StatusOK, ScoredListingResponse{
		Scored:          scored,
		Recommendations: recs,
	})
}

// RecordAction marks the item as chased: pending and overdue items move to
// sent and the chase count goes up
func (h *ChaseHandler) RecordAction(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.svc.RecordAction(r.Context(), firmID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chaseToResponse(item, time.Now().UTC()))
}

// Acknowledge closes a sent item after the client or provider responded
func (h *ChaseHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.svc.Acknowledge(r.Context(), firmID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chaseToResponse(item, time.Now().UTC()))
}
