package replay

import (
	"github.com/cory-johannsen/partydamage/internal/game/agent"
)

// Host is a meter.Host reconstructed from capture records. Delivered lines
// are collected instead of sent anywhere.
type Host struct {
	*agent.Table
	roster agent.Roster
	loaded bool
	ready  bool
	lines  []string
}

// NewHost returns an empty Host whose channel is ready.
func NewHost() *Host {
	return &Host{Table: agent.NewTable(), ready: true}
}

// Roster implements agent.RosterSource.
func (h *Host) Roster() (agent.Roster, bool) {
	return h.roster, h.loaded
}

// SetRoster replaces the roster and marks it loaded.
func (h *Host) SetRoster(r agent.Roster) {
	h.roster = r
	h.loaded = true
}

// UnloadRoster marks the roster as not loaded.
func (h *Host) UnloadRoster() {
	h.loaded = false
}

// SetReady sets the channel readiness.
func (h *Host) SetReady(ready bool) {
	h.ready = ready
}

// Ready implements report.Channel.
func (h *Host) Ready() bool { return h.ready }

// Send implements report.Channel.
func (h *Host) Send(line string) error {
	h.lines = append(h.lines, line)
	return nil
}

// Lines returns every delivered line in order.
func (h *Host) Lines() []string {
	return append([]string(nil), h.lines...)
}

func (h *Host) observe(a *agent.Agent, name string) {
	if a == nil {
		return
	}
	h.Put(*a)
	if a.LoginNumber > 0 && name != "" {
		h.SetName(a.LoginNumber, name)
	}
}
