package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// ActivityRequest defines the request body for PUT /activity. Empty fields
// keep the value of the most recently enqueued activity.
type ActivityRequest struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Icon     string `json:"icon"`
}

// ActivityHandler handles requests to change the displayed activity.
type ActivityHandler struct {
	logger   *slog.Logger
	presence ActivityMerger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(logger *slog.Logger, p ActivityMerger) *ActivityHandler {
	return &ActivityHandler{
		logger:   logger,
		presence: p,
	}
}

// ServeHTTP implements http.Handler.
func (h *ActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid JSON: %v", err),
		})
		return
	}

	cmd, err := h.presence.MergeActivity(req.Title, req.Subtitle, req.Icon)
	if err != nil {
		h.logger.Warn("rejected activity update", "error", err)
		writeUpdateError(w, err)
		return
	}

	h.logger.Debug("activity update enqueued", "title", cmd.Title, "subtitle", cmd.Subtitle, "icon", cmd.Icon)
	w.WriteHeader(http.StatusAccepted)
}
