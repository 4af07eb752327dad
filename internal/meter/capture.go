package meter

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/classify"
)

// Capture receives every host input a Meter handles, with the agent
// snapshots needed to replay it later. Implementations must not block.
type Capture interface {
	// CombatEvent records ev with the cause and target snapshots resolved at
	// that moment (nil when unresolvable) and the cause's player name.
	CombatEvent(at time.Time, encounter uuid.UUID, ev classify.Event, cause, target *agent.Agent, causeName string)
	AreaTransition(at time.Time, encounter uuid.UUID, area Area)
	// RosterLoaded records the roster the party index was rebuilt from.
	RosterLoaded(at time.Time, encounter uuid.UUID, roster agent.Roster)
	// ReportRequested records a full (own=false) or own report request.
	ReportRequested(at time.Time, encounter uuid.UUID, own bool, self *agent.Agent)
	EncounterReset(at time.Time, encounter uuid.UUID)
	VisibilityChanged(at time.Time, visible bool)
}
