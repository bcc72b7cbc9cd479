package handlers

import (
	"net/http"
)

// JobsResponse lists conversion jobs for operational tooling.
type JobsResponse struct {
	Jobs  []jobView `json:"jobs"`
	Total int       `json:"total"`
}

type jobView struct {
	ID          int64   `json:"id"`
	AssetID     int64   `json:"assetId"`
	ProfileName string  `json:"profileName"`
	State       string  `json:"state"`
	Message     string  `json:"message,omitempty"`
	TimeSeconds float64 `json:"timeSeconds,omitempty"`
	AccessDate  string  `json:"accessDate"`
}

// ListJobs returns every conversion job, newest first, with its derived
// state and last diagnostic message.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.db.ListJobs(r.Context())
	if err != nil {
		writeJSONError(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}

	response := JobsResponse{Jobs: make([]jobView, 0, len(jobs)), Total: len(jobs)}
	for _, j := range jobs {
		response.Jobs = append(response.Jobs, jobView{
			ID:          j.ID,
			AssetID:     j.AssetID,
			ProfileName: j.ProfileName,
			State:       string(j.State()),
			Message:     j.Message,
			TimeSeconds: j.Time,
			AccessDate:  j.AccessDate.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
