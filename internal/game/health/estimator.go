// Package health converts relative damage fractions into absolute damage by
// resolving a target's maximum health from live data, a remembered value, or
// a level-based approximation, in that order.
package health

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
)

// DefaultCeiling is the live maximum health at or above which the value is
// treated as unreliable (special or unlimited-health entities).
const DefaultCeiling = 100000

// ErrInvalidEntry is returned for persisted entries with a non-positive key or value.
var ErrInvalidEntry = errors.New("invalid health log entry")

// Tier identifies which source resolved a maximum health value.
type Tier int

const (
	// TierLive means the target's live maximum health was used.
	TierLive Tier = iota
	// TierRemembered means a previously remembered maximum health was used.
	TierRemembered
	// TierLevel means the level-based approximation was used.
	TierLevel
)

// String returns the tier label used in logs and metrics.
func (t Tier) String() string {
	switch t {
	case TierLive:
		return "live"
	case TierRemembered:
		return "remembered"
	case TierLevel:
		return "level"
	default:
		return "unknown"
	}
}

// Entry is one persisted identity key → maximum health pair.
type Entry struct {
	Key   agent.IdentityKey `json:"key" yaml:"key"`
	MaxHP int               `json:"max_hp" yaml:"max_hp"`
}

// Validate reports whether the entry may be loaded.
//
// Postcondition: Returns nil iff Key > 0 and 0 < MaxHP <= math.MaxInt32; otherwise an error wrapping ErrInvalidEntry.
func (e Entry) Validate() error {
	if e.Key == 0 || e.MaxHP <= 0 || e.MaxHP > math.MaxInt32 {
		return fmt.Errorf("key=%d max_hp=%d: %w", e.Key, e.MaxHP, ErrInvalidEntry)
	}
	return nil
}

// Store persists remembered maximum health between sessions.
type Store interface {
	// Load returns every persisted entry. Entries that fail to parse are
	// skipped by the store itself; range validation is left to the caller.
	Load(ctx context.Context) ([]Entry, error)
	// Save writes a full snapshot of entries.
	Save(ctx context.Context, entries []Entry) error
}

// LevelEstimate approximates maximum health from an agent's level.
//
// Postcondition: Returns level*20 + 100.
func LevelEstimate(level int) int {
	return level*20 + 100
}

// Estimator remembers the last known maximum health per identity key.
// Entries are only added or overwritten, never removed.
//
// Estimator is not safe for concurrent use; the meter drives it from the
// host's event loop.
type Estimator struct {
	ceiling int
	known   map[agent.IdentityKey]int
	logger  *zap.Logger
}

// NewEstimator creates an empty Estimator.
//
// Precondition: logger must be non-nil. ceiling <= 0 selects DefaultCeiling.
// Postcondition: Returns a non-nil Estimator with no remembered entries.
func NewEstimator(ceiling int, logger *zap.Logger) *Estimator {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Estimator{
		ceiling: ceiling,
		known:   make(map[agent.IdentityKey]int),
		logger:  logger,
	}
}

// Remember upserts the maximum health for key.
func (e *Estimator) Remember(key agent.IdentityKey, maxHP int) {
	e.known[key] = maxHP
}

// Lookup returns the remembered maximum health for key.
func (e *Estimator) Lookup(key agent.IdentityKey) (int, bool) {
	hp, ok := e.known[key]
	return hp, ok
}

// Len returns the number of remembered entries.
func (e *Estimator) Len() int {
	return len(e.known)
}

// reliable reports whether a live maximum health can be trusted.
func (e *Estimator) reliable(maxHP int) bool {
	return maxHP > 0 && maxHP < e.ceiling
}

// MaxHealth resolves target's maximum health. A reliable live value is
// remembered under the target's identity key before it is returned.
//
// Postcondition: The returned value comes from the first applicable tier of
// live, remembered, level-based.
func (e *Estimator) MaxHealth(target agent.Agent) (int, Tier) {
	if e.reliable(target.MaxHP) {
		e.Remember(target.IdentityKey, target.MaxHP)
		return target.MaxHP, TierLive
	}
	if hp, ok := e.Lookup(target.IdentityKey); ok {
		return hp, TierRemembered
	}
	return LevelEstimate(target.Level), TierLevel
}

// Damage converts a relative damage fraction against target into absolute damage.
//
// Precondition: fraction is the signed fraction of the target's maximum health.
// Postcondition: Returns round(|fraction| * maxHP) and the tier that resolved maxHP.
func (e *Estimator) Damage(fraction float64, target agent.Agent) (int64, Tier) {
	maxHP, tier := e.MaxHealth(target)
	return int64(math.Round(math.Abs(fraction) * float64(maxHP))), tier
}

// Snapshot returns all remembered entries ordered by key.
func (e *Estimator) Snapshot() []Entry {
	out := make([]Entry, 0, len(e.known))
	for k, hp := range e.known {
		out = append(out, Entry{Key: k, MaxHP: hp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Load merges persisted entries from store. Invalid entries are skipped.
//
// Postcondition: Returns the number of loaded and skipped entries, or the store's error.
func (e *Estimator) Load(ctx context.Context, store Store) (loaded, skipped int, err error) {
	entries, err := store.Load(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("loading health log: %w", err)
	}
	for _, entry := range entries {
		if verr := entry.Validate(); verr != nil {
			e.logger.Debug("skipping health log entry", zap.Error(verr))
			skipped++
			continue
		}
		e.Remember(entry.Key, entry.MaxHP)
		loaded++
	}
	return loaded, skipped, nil
}

// Save writes a full snapshot of remembered entries to store.
func (e *Estimator) Save(ctx context.Context, store Store) error {
	if err := store.Save(ctx, e.Snapshot()); err != nil {
		return fmt.Errorf("saving health log: %w", err)
	}
	return nil
}
