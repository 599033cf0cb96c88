package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nomis52/presenced/presence"
)

// CommandHandler enqueues a fixed presence command. It serves POST /connect,
// POST /disconnect and DELETE /activity.
type CommandHandler struct {
	logger  *slog.Logger
	updater Updater
	cmd     presence.Command
}

// NewCommandHandler creates a handler that enqueues cmd on every request.
func NewCommandHandler(logger *slog.Logger, updater Updater, cmd presence.Command) *CommandHandler {
	return &CommandHandler{
		logger:  logger,
		updater: updater,
		cmd:     cmd,
	}
}

// ServeHTTP implements http.Handler.
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.updater.Update(h.cmd); err != nil {
		h.logger.Warn("rejected presence command", "command", h.cmd.String(), "error", err)
		writeUpdateError(w, err)
		return
	}

	h.logger.Debug("presence command enqueued", "command", h.cmd.String())
	w.WriteHeader(http.StatusAccepted)
}
