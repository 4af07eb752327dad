// Package ledger accumulates per-slot cumulative and recent damage and ranks
// the slots against each other.
package ledger

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
)

const (
	// DefaultRecentWindow is the idle time after which a slot's recent damage decays to zero.
	DefaultRecentWindow = 7 * time.Second
	// DefaultPlaceholderName labels sources without a login-derived name.
	DefaultPlaceholderName = "<A Hero>"
)

// Source is the identity snapshot of the agent that dealt the damage.
type Source struct {
	AgentID     agent.ID
	LoginNumber uint32
	// Name is the login-derived display name; empty for allied npcs.
	Name      string
	Primary   agent.Profession
	Secondary agent.Profession
}

// Entry is the damage record of one slot.
type Entry struct {
	Damage     int64
	Recent     int64
	LastDamage time.Time
	AgentID    agent.ID
	Name       string
	Primary    agent.Profession
	Secondary  agent.Profession
}

// Populated reports whether the entry has damage and a captured identity.
func (e Entry) Populated() bool {
	return e.Damage > 0 && e.AgentID != 0
}

// Ledger holds one Entry per slot plus the running total.
//
// Invariant: total equals the sum of every entry's Damage.
// Identity fields are captured on the first contribution to an entry with zero
// damage and are not refreshed afterwards, even if a different agent later
// contributes to the same slot; only Reset clears them.
type Ledger struct {
	entries     []Entry
	total       int64
	window      time.Duration
	placeholder string
	logger      *zap.Logger
}

// NewLedger creates a Ledger with capacity slots.
//
// Precondition: capacity > 0; logger must be non-nil. window <= 0 selects
// DefaultRecentWindow; an empty placeholder selects DefaultPlaceholderName.
// Postcondition: Returns a Ledger with every slot unpopulated.
func NewLedger(capacity int, window time.Duration, placeholder string, logger *zap.Logger) *Ledger {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholderName
	}
	return &Ledger{
		entries:     make([]Entry, capacity),
		window:      window,
		placeholder: placeholder,
		logger:      logger,
	}
}

// Capacity returns the number of slots.
func (l *Ledger) Capacity() int { return len(l.entries) }

// Total returns the running total of all cumulative damage.
func (l *Ledger) Total() int64 { return l.total }

// Entry returns a copy of the entry at slot.
func (l *Ledger) Entry(slot int) (Entry, bool) {
	if slot < 0 || slot >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[slot], true
}

// Entries returns a copy of every entry in slot order.
func (l *Ledger) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Record adds amount to slot. Recent damage is only tracked while visible.
//
// Precondition: amount >= 0.
// Postcondition: Returns false and leaves the ledger unchanged when slot is out
// of range or amount is negative.
func (l *Ledger) Record(slot int, amount int64, src Source, visible bool, now time.Time) bool {
	if slot < 0 || slot >= len(l.entries) {
		l.logger.Debug("ledger slot out of range",
			zap.Int("slot", slot),
			zap.Int("capacity", len(l.entries)),
		)
		return false
	}
	if amount < 0 {
		return false
	}

	e := &l.entries[slot]
	if e.Damage == 0 {
		e.AgentID = src.AgentID
		if src.LoginNumber > 0 && src.Name != "" {
			e.Name = src.Name
		} else {
			e.Name = l.placeholder
		}
		e.Primary = src.Primary
		e.Secondary = src.Secondary
	}

	e.Damage += amount
	l.total += amount

	if visible {
		e.Recent += amount
		e.LastDamage = now
	}
	return true
}

// DecayTick zeroes recent damage of every slot idle for longer than the
// recent window. Cumulative damage is never touched.
//
// Postcondition: Returns the number of slots whose non-zero recent damage was cleared.
func (l *Ledger) DecayTick(now time.Time) int {
	cleared := 0
	for i := range l.entries {
		e := &l.entries[i]
		if now.Sub(e.LastDamage) > l.window {
			if e.Recent != 0 {
				cleared++
			}
			e.Recent = 0
		}
	}
	return cleared
}

// Reset zeroes the running total and every slot, identity included.
func (l *Ledger) Reset() {
	l.total = 0
	for i := range l.entries {
		l.entries[i] = Entry{}
	}
}

// Order returns slot numbers sorted by descending cumulative damage. Ties keep slot order.
func (l *Ledger) Order() []int {
	idx := make([]int, len(l.entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return l.entries[idx[a]].Damage > l.entries[idx[b]].Damage
	})
	return idx
}

// Rank returns 1 plus the number of other populated slots with strictly more damage.
//
// Postcondition: Returns 0 when slot is out of range.
func (l *Ledger) Rank(slot int) int {
	if slot < 0 || slot >= len(l.entries) {
		return 0
	}
	rank := 1
	mine := l.entries[slot].Damage
	for i, e := range l.entries {
		if i == slot || !e.Populated() {
			continue
		}
		if e.Damage > mine {
			rank++
		}
	}
	return rank
}

// Percent returns dmg as a percentage of the running total, 0 when the total is 0.
func (l *Ledger) Percent(dmg int64) float64 {
	if l.total == 0 {
		return 0
	}
	return 100 * float64(dmg) / float64(l.total)
}

// MaxDamage returns the highest cumulative damage of any slot.
func (l *Ledger) MaxDamage() int64 {
	var top int64
	for _, e := range l.entries {
		if e.Damage > top {
			top = e.Damage
		}
	}
	return top
}

// MaxRecent returns the highest recent damage of any slot.
func (l *Ledger) MaxRecent() int64 {
	var top int64
	for _, e := range l.entries {
		if e.Recent > top {
			top = e.Recent
		}
	}
	return top
}
