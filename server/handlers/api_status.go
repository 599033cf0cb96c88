package handlers

import (
	"net/http"

	"github.com/nomis52/presenced/buildinfo"
	"github.com/nomis52/presenced/logging"
	"github.com/nomis52/presenced/presence"
)

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Presence  presence.Status      `json:"presence"`
	Reconnect ReconnectInfo        `json:"reconnect"`
	Build     buildinfo.Properties `json:"build"`
	Logs      []logging.LogEntry   `json:"logs"`
}

// APIStatusHandler handles requests for the consolidated status endpoint.
type APIStatusHandler struct {
	provider APIStatusProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(provider APIStatusProvider) *APIStatusHandler {
	return &APIStatusHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logs := h.provider.RecentLogs()
	if logs == nil {
		logs = []logging.LogEntry{}
	}

	writeJSON(w, http.StatusOK, APIStatusResponse{
		Presence:  h.provider.PresenceStatus(),
		Reconnect: h.provider.Reconnect(),
		Build:     buildinfo.Get(),
		Logs:      logs,
	})
}
