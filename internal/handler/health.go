package handler

import (
	"net/http"

	"github.com/helpbench/support-console/internal/changefeed"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	feedClient *changefeed.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(feedClient *changefeed.Client) *HealthHandler {
	return &HealthHandler{
		feedClient: feedClient,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.feedClient == nil || !h.feedClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "change feed not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
