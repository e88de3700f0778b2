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
)

type CycleService interface {
	RunCycle(ctx context.Context, firmID string, mode domain.CycleMode) (*service.CycleResult, error)
	Dashboard(ctx context.Context, firmID string) (*domain.DashboardStats, error)
}

type CommunicationLister interface {
	ListByFirm(ctx context.Context, firmID string, limit int) ([]*domain.Communication, error)
}

type CycleHandler struct {
	svc   CycleService
	comms CommunicationLister
}

func NewCycleHandler(svc CycleService, comms CommunicationLister) *CycleHandler {
	return &CycleHandler{svc: svc, comms: comms}
}

type RunCycleRequest struct {
	Mode string `json:"mode"`
}

type CycleActionResponse struct {
	ItemID    string `json:"item_id"`
	ClientRef string `json:"client_ref"`
	Channel   string `json:"channel"`
	Priority  string `json:"priority"`
	Timing    string `json:"timing"`
	Message   string `json:"message"`
	Rationale string `json:"rationale,omitempty"`
}

type CycleStatsResponse struct {
	Mode        string `json:"mode"`
	ItemsScored int    `json:"items_scored"`
	Dispatched  int    `json:"dispatched"`
	Degraded    bool   `json:"degraded"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}

type CycleResultResponse struct {
	Actions []*CycleActionResponse `json:"actions"`
	Stats   CycleStatsResponse     `json:"stats"`
}

type DashboardResponse struct {
	ActiveChases  int            `json:"active_chases"`
	OverdueChases int            `json:"overdue_chases"`
	HighPriority  int            `json:"high_priority"`
	StuckRisk     int            `json:"stuck_risk"`
	AvgStuckScore float64        `json:"avg_stuck_score"`
	ByType        map[string]int `json:"by_type"`
	SnapshotAt    string         `json:"snapshot_at"`
}

type CommunicationResponse struct {
	ID        string `json:"id"`
	ChaseID   string `json:"chase_id"`
	ClientRef string `json:"client_ref"`
	Channel   string `json:"channel"`
	Priority  string `json:"priority"`
	Message   string `json:"message"`
	Rationale string `json:"rationale,omitempty"`
	SentAt    string `json:"sent_at"`
}

// Run executes one chase cycle for the calling firm. Mode defaults to
// rule_based when the body omits it.
func (h *CycleHandler) Run(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req := RunCycleRequest{Mode: string(domain.CycleModeRuleBased)}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Mode == "" {
		req.Mode = string(domain.CycleModeRuleBased)
	}

	mode, err := domain.ParseCycleMode(req.Mode)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.RunCycle(r.Context(), firmID, mode)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	actions := make([]*CycleActionResponse, len(result.Actions))
	for i, action := range result.Actions {
		actions[i] = &CycleActionResponse{
			ItemID:    action.ItemID,
			ClientRef: action.ClientRef,
			Channel:   string(action.Channel),
			Priority:  string(action.Priority),
			Timing:    string(action.Timing),
			Message:   action.Message,
			Rationale: action.Rationale,
		}
	}

	api.Success(w, http.StatusOK, CycleResultResponse{
		Actions: actions,
		Stats: CycleStatsResponse{
			Mode:        string(result.Stats.Mode),
			ItemsScored: result.Stats.ItemsScored,
			Dispatched:  result.Stats.Dispatched,
			Degraded:    result.Stats.Degraded,
			StartedAt:   result.Stats.StartedAt.Format(time.RFC3339),
			CompletedAt: result.Stats.CompletedAt.Format(time.RFC3339),
		},
	})
}

// Dashboard serves the firm's point-in-time chase stats
func (h *CycleHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	firmID := middleware.GetFirmID(r.Context())
	if firmID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.svc.Dashboard(r.Context(), firmID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	byType := make(map[string]int, len(stats.ByType))
	for chaseType, count := range stats.ByType {
		byType[string(chaseType)] = count
	}

	api.Success(w, http.StatusOK, DashboardResponse{
		ActiveChases:  stats.ActiveChases,
		OverdueChases: stats.OverdueChases,
		HighPriority:  stats.HighPriority,
		StuckRisk:     stats.StuckRisk,
		AvgStuckScore: stats.AvgStuckScore,
		ByType:        byType,
		SnapshotAt:    stats.SnapshotAt.Format(time.RFC3339),
	})
}

// ListCommunications returns the firm's dispatch audit trail, newest first
func (h *CycleHandler) ListCommunications(w http.ResponseWriter, r *http.Request) {
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

	comms, err := h.comms.ListByFirm(r.Context(), firmID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*CommunicationResponse, len(comms))
	for i, comm := range comms {
		items[i] = &CommunicationResponse{
			ID:        comm.ID,
			ChaseID:   comm.ChaseID,
			ClientRef: comm.ClientRef,
			Channel:   string(comm.Channel),
			Priority:  string(comm.Priority),
			Message:   comm.Message,
			Rationale: comm.Rationale,
			SentAt:    comm.SentAt.Format(time.RFC3339),
		}
	}

	api.Success(w, http.StatusOK, items)
}
