package handlers

import (
	"sync"

	"github.com/nomis52/presenced/presence"
)

// mockPresence records enqueued commands and serves a fixed status.
type mockPresence struct {
	mu     sync.Mutex
	status presence.Status
	err    error
	cmds   []presence.Command
}

func (m *mockPresence) Update(cmd presence.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cmds = append(m.cmds, cmd)
	return nil
}

// MergeActivity merges against the last recorded UpdateActivity, or the
// status activity when there is none.
func (m *mockPresence) MergeActivity(title, subtitle, icon string) (presence.UpdateActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return presence.UpdateActivity{}, m.err
	}

	base := presence.UpdateActivity{
		Title:    m.status.Activity.Title,
		Subtitle: m.status.Activity.Subtitle,
		Icon:     m.status.Activity.Icon,
	}
	for _, cmd := range m.cmds {
		if u, ok := cmd.(presence.UpdateActivity); ok {
			base = u
		}
	}
	if title != "" {
		base.Title = title
	}
	if subtitle != "" {
		base.Subtitle = subtitle
	}
	if icon != "" {
		base.Icon = icon
	}
	m.cmds = append(m.cmds, base)
	return base, nil
}

func (m *mockPresence) Status() presence.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockPresence) commands() []presence.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]presence.Command(nil), m.cmds...)
}
