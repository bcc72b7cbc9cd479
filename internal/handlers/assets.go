package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"media-renditions/internal/database"
	"media-renditions/internal/logging"
)

func (h *Handlers) loadAsset(w http.ResponseWriter, r *http.Request) *database.Asset {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid asset id", http.StatusBadRequest)
		return nil
	}

	a, err := h.db.GetAsset(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "asset not found", http.StatusNotFound)
		} else {
			writeJSONError(w, "failed to load asset", http.StatusInternalServerError)
		}
		return nil
	}
	return a
}

// GetAsset returns one asset record.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	a := h.loadAsset(w, r)
	if a == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, a)
}

// DerivativeResponse is the status of one derivative on disk.
type DerivativeResponse struct {
	Profile string `json:"profile"`
	Path    string `json:"path,omitempty"`
	Exists  bool   `json:"exists"`
}

// GetDerivative reports where the derivative for (asset, profile)
// lives, creating it on demand: images synchronously, videos by
// enqueueing a conversion job. Unknown profiles yield 404.
func (h *Handlers) GetDerivative(w http.ResponseWriter, r *http.Request) {
	a := h.loadAsset(w, r)
	if a == nil {
		return
	}
	profileName := mux.Vars(r)["profile"]

	p, err := h.cache.Get(r.Context(), profileName)
	if err != nil {
		writeJSONError(w, "failed to load profiles", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeJSONError(w, "unknown profile", http.StatusNotFound)
		return
	}

	handle, err := h.manager.Derivative(r.Context(), a, profileName)
	if err != nil {
		writeJSONError(w, "failed to resolve derivative", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, DerivativeResponse{
		Profile: profileName,
		Path:    handle.Path,
		Exists:  handle.Exists,
	})
}

// PreCacheAsset eagerly generates every pre_cache derivative for the
// asset. Image generation runs synchronously; video profiles only
// enqueue jobs, so a 202 is the honest answer either way.
func (h *Handlers) PreCacheAsset(w http.ResponseWriter, r *http.Request) {
	a := h.loadAsset(w, r)
	if a == nil {
		return
	}

	if err := h.manager.PreCache(r.Context(), a); err != nil {
		logging.Error("Pre-cache for asset %d failed: %v", a.ID, err)
		writeJSONError(w, "pre-cache failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "accepted"})
}

// InvalidateProfileCache resets the in-memory profile registry. Call
// after editing profile rows out of band.
func (h *Handlers) InvalidateProfileCache(w http.ResponseWriter, _ *http.Request) {
	h.cache.Invalidate()
	writeJSONStatus(w, "invalidated")
}
