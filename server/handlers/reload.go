package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/presenced/presence"
)

// ReloadHandler reloads the configuration from disk and republishes the
// configured activity.
type ReloadHandler struct {
	logger   *slog.Logger
	reloader Reloader
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(logger *slog.Logger, reloader Reloader) *ReloadHandler {
	return &ReloadHandler{
		logger:   logger,
		reloader: reloader,
	}
}

// ServeHTTP implements http.Handler.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("reloading configuration")

	err := h.reloader.Reload()
	switch {
	case err == nil:
	case errors.Is(err, presence.ErrQueueClosed):
		h.logger.Warn("configuration reloaded but presence worker is gone", "error", err)
		writeUpdateError(w, err)
		return
	default:
		h.logger.Error("failed to reload configuration", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to reload configuration: " + err.Error(),
		})
		return
	}

	h.logger.Info("configuration reloaded successfully")
	w.WriteHeader(http.StatusNoContent)
}
