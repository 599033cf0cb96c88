package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nomis52/presenced/presence"
)

func TestCommandHandler(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		cmd    presence.Command
	}{
		{name: "connect", method: http.MethodPost, path: "/connect", cmd: presence.Connect{}},
		{name: "disconnect", method: http.MethodPost, path: "/disconnect", cmd: presence.Disconnect{}},
		{name: "clear", method: http.MethodDelete, path: "/activity", cmd: presence.ClearActivity{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPresence{}
			handler := NewCommandHandler(slog.Default(), p, tt.cmd)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusAccepted, w.Code)
			assert.Equal(t, []presence.Command{tt.cmd}, p.commands())
		})
	}
}

func TestCommandHandler_QueueClosed(t *testing.T) {
	p := &mockPresence{err: presence.ErrQueueClosed}
	handler := NewCommandHandler(slog.Default(), p, presence.Connect{})

	req := httptest.NewRequest(http.MethodPost, "/connect", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "presence queue closed")
}

func TestCommandHandler_OtherError(t *testing.T) {
	p := &mockPresence{err: errors.New("boom")}
	handler := NewCommandHandler(slog.Default(), p, presence.Disconnect{})

	req := httptest.NewRequest(http.MethodPost, "/disconnect", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
