// Package replay captures the host inputs a meter sees into a JSONL log and
// feeds such a log back through a fresh meter with a simulated clock.
package replay

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/classify"
)

// ErrUnknownRecord is returned for a record whose kind is not understood.
var ErrUnknownRecord = errors.New("unknown capture record")

// Kind tags the host input a Record carries.
type Kind string

const (
	KindCombat     Kind = "combat"
	KindArea       Kind = "area"
	KindRoster     Kind = "roster"
	KindReport     Kind = "report"
	KindReset      Kind = "reset"
	KindVisibility Kind = "visibility"
)

// Record is one line of a capture.
type Record struct {
	Kind      Kind      `json:"kind"`
	At        time.Time `json:"at"`
	Encounter uuid.UUID `json:"encounter"`

	Event     *classify.Event `json:"event,omitempty"`
	Cause     *agent.Agent    `json:"cause,omitempty"`
	Target    *agent.Agent    `json:"target,omitempty"`
	CauseName string          `json:"cause_name,omitempty"`

	Area   string        `json:"area,omitempty"`
	Roster *agent.Roster `json:"roster,omitempty"`

	Own  bool         `json:"own,omitempty"`
	Self *agent.Agent `json:"self,omitempty"`

	Visible *bool `json:"visible,omitempty"`
}
