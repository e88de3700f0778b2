package server

import (
	"net/http"

	"github.com/adviserops/chaser/internal/api"
	"github.com/adviserops/chaser/internal/api/handlers"
	"github.com/adviserops/chaser/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator middleware.AuthValidator
	ChaseHandler  *handlers.ChaseHandler
	QueryHandler  *handlers.QueryHandler
	CycleHandler  *handlers.CycleHandler
	AuthHandler   *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/chases", func(r chi.Router) {
			r.Post("/", cfg.ChaseHandler.Create)
			r.Get("/", cfg.ChaseHandler.List)
			r.Post("/score", cfg.ChaseHandler.Score)
			r.Get("/{id}", cfg.ChaseHandler.Get)
			r.Post("/{id}/actions", cfg.ChaseHandler.RecordAction)
			r.Post("/{id}/ack", cfg.ChaseHandler.Acknowledge)
		})

		r.Post("/queries", cfg.QueryHandler.Answer)

		r.Post("/cycles", cfg.CycleHandler.Run)
		r.Get("/dashboard", cfg.CycleHandler.Dashboard)
		r.Get("/communications", cfg.CycleHandler.ListCommunications)
	})

	r.Post("/firms", cfg.AuthHandler.CreateFirm)
	r.Get("/firms/{firmID}/apikeys", cfg.AuthHandler.ListAPIKeys)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)
	r.Delete("/apikeys/{keyID}", cfg.AuthHandler.RevokeAPIKey)

	return r
}
