// Package classify filters raw combat events down to damage dealt by party
// members to enemies, and resolves the absolute amount of accepted damage.
package classify

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/health"
	"github.com/cory-johannsen/partydamage/internal/game/party"
)

// EventType is the numeric type tag of a combat event.
type EventType uint32

const (
	EventTypeUnknown EventType = iota
	EventTypeDamage
	EventTypeCritical
	EventTypeArmorIgnoring
	EventTypeHealing
	EventTypeEnergyGain
	EventTypeEnergySpent
	EventTypeAttackStarted
	EventTypeAttackStopped
	EventTypeSkillActivated
)

// IsDamage reports whether t is one of the attributable damage types.
func (t EventType) IsDamage() bool {
	switch t {
	case EventTypeDamage, EventTypeCritical, EventTypeArmorIgnoring:
		return true
	default:
		return false
	}
}

// Event is one combat event as delivered by the host.
//
// Value carries damage as a negative fraction of the target's maximum health.
type Event struct {
	Type     EventType `json:"type"`
	Value    float64   `json:"value"`
	CauseID  agent.ID  `json:"cause_id"`
	TargetID agent.ID  `json:"target_id"`
}

// MaxFraction bounds the magnitude of a relative-damage fraction. Larger
// values cannot come from a real hit and are rejected as invalid.
const MaxFraction = 1000

// Reason explains why an event was accepted or rejected.
type Reason int

const (
	Accepted Reason = iota
	RejectNotDamage
	RejectHealing
	RejectUnknownCause
	RejectCauseNotPlayerAligned
	RejectCauseNotInParty
	RejectUnknownTarget
	RejectTargetIsPlayer
	RejectTargetPlayerAligned
	RejectInvalidValue
)

// String returns the metrics/log label of r.
func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectNotDamage:
		return "not_damage"
	case RejectHealing:
		return "healing"
	case RejectUnknownCause:
		return "unknown_cause"
	case RejectCauseNotPlayerAligned:
		return "cause_not_player_aligned"
	case RejectCauseNotInParty:
		return "cause_not_in_party"
	case RejectUnknownTarget:
		return "unknown_target"
	case RejectTargetIsPlayer:
		return "target_is_player"
	case RejectTargetPlayerAligned:
		return "target_player_aligned"
	case RejectInvalidValue:
		return "invalid_value"
	default:
		return "unknown"
	}
}

// Attribution is an accepted event with everything needed to record it.
type Attribution struct {
	Cause  agent.Agent
	Target agent.Agent
	Slot   int
	Damage int64
	Tier   health.Tier
}

// Classifier decides which combat events are attributable party damage.
type Classifier struct {
	agents agent.Resolver
	index  *party.Index
	health *health.Estimator
	logger *zap.Logger
}

// NewClassifier creates a Classifier.
//
// Precondition: all arguments must be non-nil.
func NewClassifier(agents agent.Resolver, index *party.Index, est *health.Estimator, logger *zap.Logger) *Classifier {
	return &Classifier{
		agents: agents,
		index:  index,
		health: est,
		logger: logger,
	}
}

// Classify applies the rejection rules in order and resolves absolute damage
// for accepted events.
//
// Damage to allied minions, spirits or environmental objects may still be
// accepted: those agents can report a non-player allegiance.
//
// Postcondition: Attribution is meaningful only when the returned Reason is Accepted.
func (c *Classifier) Classify(ev Event) (Attribution, Reason) {
	if !ev.Type.IsDamage() {
		return Attribution{}, RejectNotDamage
	}
	if math.IsNaN(ev.Value) || ev.Value < -MaxFraction {
		return c.reject(ev, RejectInvalidValue)
	}
	if ev.Value >= 0 {
		return Attribution{}, RejectHealing
	}

	cause, ok := c.agents.Agent(ev.CauseID)
	if !ok {
		return c.reject(ev, RejectUnknownCause)
	}
	if !cause.IsPlayerAligned() {
		return c.reject(ev, RejectCauseNotPlayerAligned)
	}
	slot, ok := c.index.Resolve(cause.ID)
	if !ok {
		return c.reject(ev, RejectCauseNotInParty)
	}

	target, ok := c.agents.Agent(ev.TargetID)
	if !ok {
		return c.reject(ev, RejectUnknownTarget)
	}
	if target.IsPlayer() {
		return c.reject(ev, RejectTargetIsPlayer)
	}
	if target.IsPlayerAligned() {
		return c.reject(ev, RejectTargetPlayerAligned)
	}

	dmg, tier := c.health.Damage(ev.Value, target)
	return Attribution{
		Cause:  cause,
		Target: target,
		Slot:   slot,
		Damage: dmg,
		Tier:   tier,
	}, Accepted
}

func (c *Classifier) reject(ev Event, r Reason) (Attribution, Reason) {
	c.logger.Debug("combat event rejected",
		zap.Uint32("cause_id", uint32(ev.CauseID)),
		zap.Uint32("target_id", uint32(ev.TargetID)),
		zap.Float64("value", ev.Value),
		zap.Stringer("reason", r),
	)
	return Attribution{}, r
}
