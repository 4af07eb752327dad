// Package party maps party members and their allies to stable slot numbers.
package party

import (
	"github.com/cory-johannsen/partydamage/internal/game/agent"
)

// DefaultMaxSlots is the number of slots tracked when no capacity is configured.
const DefaultMaxSlots = 12

// Index maps living party member agent ids to slots in [0, capacity).
//
// Invariant: slots are assigned in canonical roster order (each player,
// immediately followed by the allies that player owns) and never exceed capacity.
// Once populated, the Index is left untouched until Clear is called.
type Index struct {
	capacity int
	slots    map[agent.ID]int
}

// NewIndex creates an empty Index with the given slot capacity.
//
// Precondition: capacity <= 0 selects DefaultMaxSlots.
// Postcondition: Returns an empty Index.
func NewIndex(capacity int) *Index {
	if capacity <= 0 {
		capacity = DefaultMaxSlots
	}
	return &Index{
		capacity: capacity,
		slots:    make(map[agent.ID]int, capacity),
	}
}

// Capacity returns the maximum number of slots.
func (x *Index) Capacity() int { return x.capacity }

// Len returns the number of assigned slots.
func (x *Index) Len() int { return len(x.slots) }

// Empty reports whether no slot is assigned.
func (x *Index) Empty() bool { return len(x.slots) == 0 }

// Clear drops every assignment, forcing a rebuild on the next opportunity.
func (x *Index) Clear() {
	clear(x.slots)
}

// Rebuild assigns slots from src when the Index is empty and the roster is
// fully loaded. It reports whether any slot was assigned.
//
// Postcondition: A populated Index is unchanged; members beyond capacity stay unslotted.
func (x *Index) Rebuild(src agent.RosterSource) bool {
	if !x.Empty() {
		return false
	}
	roster, ok := src.Roster()
	if !ok {
		return false
	}
	x.assign(roster)
	return !x.Empty()
}

func (x *Index) assign(roster agent.Roster) {
	next := 0
	put := func(id agent.ID) {
		if next >= x.capacity {
			return
		}
		x.slots[id] = next
		next++
	}
	for _, p := range roster.Players {
		put(p.AgentID)
		for _, a := range roster.Allies {
			if a.OwnerLogin == p.LoginNumber {
				put(a.AgentID)
			}
		}
	}
}

// Resolve returns the slot assigned to id.
func (x *Index) Resolve(id agent.ID) (int, bool) {
	slot, ok := x.slots[id]
	return slot, ok
}

// Slots returns a copy of the current assignments.
func (x *Index) Slots() map[agent.ID]int {
	out := make(map[agent.ID]int, len(x.slots))
	for id, slot := range x.slots {
		out[id] = slot
	}
	return out
}
