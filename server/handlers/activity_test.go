package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/presenced/presence"
)

func currentStatus() presence.Status {
	return presence.Status{
		Activity: presence.Activity{AppID: 1, Title: "A", Subtitle: "B", Icon: "logo"},
	}
}

func TestActivityHandler(t *testing.T) {
	tests := []struct {
		name string
		body string
		want presence.UpdateActivity
	}{
		{
			name: "all fields",
			body: `{"title":"C","subtitle":"D","icon":"other"}`,
			want: presence.UpdateActivity{Title: "C", Subtitle: "D", Icon: "other"},
		},
		{
			name: "title only keeps the rest",
			body: `{"title":"C"}`,
			want: presence.UpdateActivity{Title: "C", Subtitle: "B", Icon: "logo"},
		},
		{
			name: "empty object republishes current",
			body: `{}`,
			want: presence.UpdateActivity{Title: "A", Subtitle: "B", Icon: "logo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPresence{status: currentStatus()}
			handler := NewActivityHandler(slog.Default(), p)

			req := httptest.NewRequest(http.MethodPut, "/activity", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusAccepted, w.Code)
			cmds := p.commands()
			require.Len(t, cmds, 1)
			assert.Equal(t, tt.want, cmds[0])
		})
	}
}

func TestActivityHandler_InvalidJSON(t *testing.T) {
	p := &mockPresence{status: currentStatus()}
	handler := NewActivityHandler(slog.Default(), p)

	req := httptest.NewRequest(http.MethodPut, "/activity", strings.NewReader(`{"title":`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON")
	assert.Empty(t, p.commands())
}

func TestActivityHandler_QueueClosed(t *testing.T) {
	p := &mockPresence{status: currentStatus(), err: presence.ErrQueueClosed}
	handler := NewActivityHandler(slog.Default(), p)

	req := httptest.NewRequest(http.MethodPut, "/activity", strings.NewReader(`{"title":"C"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
