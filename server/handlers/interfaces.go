// Package handlers provides HTTP handlers for the presenced control server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"time"

	"github.com/nomis52/presenced/config"
	"github.com/nomis52/presenced/logging"
	"github.com/nomis52/presenced/presence"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload() error
}

// Updater enqueues presence commands.
type Updater interface {
	Update(cmd presence.Command) error
}

// PresenceStatusProvider reports the presence worker state.
type PresenceStatusProvider interface {
	Status() presence.Status
}

// ActivityMerger enqueues partial activity updates.
type ActivityMerger interface {
	MergeActivity(title, subtitle, icon string) (presence.UpdateActivity, error)
}

// Presence is the presence actor as seen by the handlers.
type Presence interface {
	Updater
	ActivityMerger
	PresenceStatusProvider
}

// ReconnectInfo describes the reconnect schedule.
type ReconnectInfo struct {
	Scheduled bool       `json:"scheduled"`
	Spec      string     `json:"spec,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	Attempts  int        `json:"attempts"`
}

// APIStatusProvider aggregates what the status endpoint reports.
type APIStatusProvider interface {
	PresenceStatus() presence.Status
	Reconnect() ReconnectInfo
	RecentLogs() []logging.LogEntry
}
