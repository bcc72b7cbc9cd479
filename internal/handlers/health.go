package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-renditions/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	QueuedJobs int64 `json:"queuedJobs"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// Liveness answers as soon as the process serves traffic.
func (h *Handlers) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, "ok")
}

// HealthCheck reports service health including queue depth. A failing
// database degrades the status but still answers 200 so orchestrators
// keep the process alive while it retries.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	queued, err := h.db.CountQueuedJobs(r.Context())
	if err != nil {
		response.Status = statusDegraded
	} else {
		response.QueuedJobs = queued
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
