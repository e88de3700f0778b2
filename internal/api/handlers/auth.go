package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/adviserops/chaser/internal/api"
	"github.com/adviserops/chaser/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AuthService interface {
	CreateFirm(ctx context.Context, name string) (*domain.Firm, error)
	CreateAPIKey(ctx context.Context, firmID, name string) (string, error)
	GetAPIKeyByHash(ctx context.Context, token string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, firmID string) ([]*domain.APIKey, error)
	RevokeAPIKey(ctx context.Context, keyID string) error
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type CreateFirmRequest struct {
	Name string `json:"name"`
}

type FirmResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type CreateAPIKeyRequest struct {
	FirmID string `json:"firm_id"`
	Name   string `json:"name"`
}

type APIKeyResponse struct {
	ID    string `json:"id,omitempty"`
	Token string `json:"token,omitempty"`
	Name  string `json:"name"`
}

type APIKeyListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	Revoked   bool   `json:"revoked"`
}

func (h *AuthHandler) CreateFirm(w http.ResponseWriter, r *http.Request) {
	var req CreateFirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	firm, err := h.svc.CreateFirm(r.Context(), req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, FirmResponse{
		ID:        firm.ID,
		Name:      firm.Name,
		CreatedAt: firm.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FirmID == "" {
		api.Error(w, http.StatusBadRequest, "firm_id is required")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, err := h.svc.CreateAPIKey(r.Context(), req.FirmID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	// Best effort: the token is shown exactly once, so a failed ID lookup
	// must not fail the request.
	var keyID string
	if key, err := h.svc.GetAPIKeyByHash(r.Context(), token); err == nil {
		keyID = key.ID
	}

	api.Success(w, http.StatusCreated, APIKeyResponse{
		ID:    keyID,
		Token: token,
		Name:  req.Name,
	})
}

func (h *AuthHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	firmID := chi.URLParam(r, "firmID")
	if firmID == "" {
		api.Error(w, http.StatusBadRequest, "firm id is required")
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), firmID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*APIKeyListItem, len(keys))
	for i, key := range keys {
		items[i] = &APIKeyListItem{
			ID:        key.ID,
			Name:      key.Name,
			CreatedAt: key.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Revoked:   key.IsRevoked(),
		}
	}

	api.Success(w, http.StatusOK, items)
}

func (h *AuthHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")
	if keyID == "" {
		api.Error(w, http.StatusBadRequest, "key id is required")
		return
	}

	if err := h.svc.RevokeAPIKey(r.Context(), keyID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "revoked"})
}
