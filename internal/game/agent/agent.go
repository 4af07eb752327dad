// Package agent defines the live-agent snapshots and party roster the damage
// meter consumes from its host. The host owns the actual game state; this
// package only describes the shape the meter reads.
package agent

// ID is the volatile identifier of a live agent within the current area
// instance. It is not stable across area transitions or respawns.
type ID uint32

// IdentityKey is a per-character key that stays stable across respawns and
// instances of the same character. Remembered maximum health is keyed by it.
type IdentityKey uint32

// Allegiance is the coarse side tag of an agent.
type Allegiance uint8

const (
	AllegianceUnknown Allegiance = iota
	// AllegiancePlayer marks player-aligned agents (party members, allies, their minions).
	AllegiancePlayer
	AllegianceNeutral
	AllegianceEnemy
	AllegianceSpiritPet
	AllegianceMinion
	AllegianceNPC
)

// String returns a lower-case allegiance label.
func (a Allegiance) String() string {
	switch a {
	case AllegiancePlayer:
		return "player"
	case AllegianceNeutral:
		return "neutral"
	case AllegianceEnemy:
		return "enemy"
	case AllegianceSpiritPet:
		return "spirit_pet"
	case AllegianceMinion:
		return "minion"
	case AllegianceNPC:
		return "npc"
	default:
		return "unknown"
	}
}

// Agent is a point-in-time snapshot of one live agent.
type Agent struct {
	ID          ID          `json:"id" yaml:"id"`
	IdentityKey IdentityKey `json:"identity_key" yaml:"identity_key"`
	Allegiance  Allegiance  `json:"allegiance" yaml:"allegiance"`
	// LoginNumber is non-zero only for human-controlled players.
	LoginNumber uint32     `json:"login_number,omitempty" yaml:"login_number"`
	MaxHP       int        `json:"max_hp" yaml:"max_hp"`
	Level       int        `json:"level" yaml:"level"`
	Primary     Profession `json:"primary" yaml:"primary"`
	Secondary   Profession `json:"secondary" yaml:"secondary"`
}

// IsPlayer reports whether the agent is controlled by a human player.
func (a Agent) IsPlayer() bool { return a.LoginNumber != 0 }

// IsPlayerAligned reports whether the agent fights on the players' side.
func (a Agent) IsPlayerAligned() bool { return a.Allegiance == AllegiancePlayer }

// Resolver looks up live agents on behalf of the meter.
//
// Implementations are provided by the host and are called from the host's
// event loop only.
type Resolver interface {
	// Agent returns the live snapshot for id, or false when the agent is unknown.
	Agent(id ID) (Agent, bool)
	// PlayerName returns the display name of the player with the given login
	// number, or "" when it cannot be resolved.
	PlayerName(loginNumber uint32) string
	// Self returns the local player's agent, or false while it is unavailable.
	Self() (Agent, bool)
}
