package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"media-renditions/internal/database"
	"media-renditions/internal/lifecycle"
	"media-renditions/internal/profile"
)

// Handlers bundles the operational HTTP API: health, version, job
// status and derivative management.
type Handlers struct {
	db        *database.Database
	cache     *profile.Cache
	manager   *lifecycle.Manager
	startTime time.Time
}

// New creates the handler set.
func New(db *database.Database, cache *profile.Cache, manager *lifecycle.Manager) *Handlers {
	return &Handlers{
		db:        db,
		cache:     cache,
		manager:   manager,
		startTime: time.Now(),
	}
}

// Router builds the route table.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/livez", h.Liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	api.HandleFunc("/jobs", h.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id:[0-9]+}", h.GetAsset).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id:[0-9]+}/derivative/{profile}", h.GetDerivative).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id:[0-9]+}/precache", h.PreCacheAsset).Methods(http.MethodPost)
	api.HandleFunc("/cache/invalidate", h.InvalidateProfileCache).Methods(http.MethodPost)

	return r
}
