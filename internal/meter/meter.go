// Package meter wires the damage meter components behind the callbacks a
// game host drives from its event loop.
//
// A Meter is single-threaded. Every method must be called from the host's
// event loop; none of them blocks.
package meter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/config"
	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/classify"
	"github.com/cory-johannsen/partydamage/internal/game/health"
	"github.com/cory-johannsen/partydamage/internal/game/ledger"
	"github.com/cory-johannsen/partydamage/internal/game/overlay"
	"github.com/cory-johannsen/partydamage/internal/game/party"
	"github.com/cory-johannsen/partydamage/internal/game/report"
	"github.com/cory-johannsen/partydamage/internal/observability"
)

// Area is the kind of instance the host reports after a map change.
type Area int

const (
	AreaLoading Area = iota
	AreaOutpost
	AreaExplorable
)

// String returns the lowercase area name.
func (a Area) String() string {
	switch a {
	case AreaOutpost:
		return "outpost"
	case AreaExplorable:
		return "explorable"
	default:
		return "loading"
	}
}

// ParseArea is the inverse of Area.String.
func ParseArea(s string) (Area, error) {
	switch s {
	case "loading":
		return AreaLoading, nil
	case "outpost":
		return AreaOutpost, nil
	case "explorable":
		return AreaExplorable, nil
	default:
		return AreaLoading, fmt.Errorf("unknown area %q", s)
	}
}

// Host is everything the meter reads from or writes to the game client.
type Host interface {
	agent.Resolver
	agent.RosterSource
	report.Channel
}

// Meter is the host-facing damage meter.
type Meter struct {
	host       Host
	index      *party.Index
	health     *health.Estimator
	ledger     *ledger.Ledger
	classifier *classify.Classifier
	queue      *report.Queue
	formatter  *report.Formatter

	visible      bool
	inExplorable bool
	encounter    uuid.UUID

	now     func() time.Time
	metrics *observability.Metrics
	capture Capture
	logger  *zap.Logger
}

// New creates a Meter reading from and delivering to host.
//
// Precondition: host and logger must be non-nil; cfg must be valid. metrics may be nil.
// Postcondition: Returns a Meter with an empty ledger and a fresh encounter id.
func New(host Host, cfg config.MeterConfig, metrics *observability.Metrics, logger *zap.Logger) *Meter {
	index := party.NewIndex(cfg.MaxSlots)
	est := health.NewEstimator(cfg.HealthCeiling, logger)
	l := ledger.NewLedger(index.Capacity(), cfg.RecentWindow, cfg.PlaceholderName, logger)
	q := report.NewQueue(cfg.SendInterval, logger)
	return &Meter{
		host:       host,
		index:      index,
		health:     est,
		ledger:     l,
		classifier: classify.NewClassifier(host, index, est, logger),
		queue:      q,
		formatter:  report.NewFormatter(l, q),
		visible:    cfg.Visible,
		encounter:  uuid.New(),
		now:        time.Now,
		metrics:    metrics,
		logger:     logger,
	}
}

// SetClock replaces the wall clock, e.g. with a simulated one during replay.
//
// Precondition: now must be non-nil.
func (m *Meter) SetClock(now func() time.Time) {
	m.now = now
}

// SetCapture tees every subsequent host input into c. nil disables capture.
func (m *Meter) SetCapture(c Capture) {
	m.capture = c
}

// SetLineHook installs a custom report line renderer. nil restores the default.
func (m *Meter) SetLineHook(h report.LineHook) {
	m.formatter.SetHook(h)
}

// SetVisible shows or hides the overlay. Recent damage is only tracked while visible.
func (m *Meter) SetVisible(visible bool) {
	if m.visible == visible {
		return
	}
	m.visible = visible
	if m.capture != nil {
		m.capture.VisibilityChanged(m.now(), visible)
	}
}

// Visible reports whether the overlay is shown.
func (m *Meter) Visible() bool { return m.visible }

// Encounter returns the id of the current encounter.
func (m *Meter) Encounter() uuid.UUID { return m.encounter }

// Ledger exposes the damage ledger for read access.
func (m *Meter) Ledger() *ledger.Ledger { return m.ledger }

// Index exposes the party index for read access.
func (m *Meter) Index() *party.Index { return m.index }

// Health exposes the max health estimator.
func (m *Meter) Health() *health.Estimator { return m.health }

// Queue exposes the outbound line queue for read access.
func (m *Meter) Queue() *report.Queue { return m.queue }

// Standings returns the current full-report lines without queueing them.
func (m *Meter) Standings() []report.Line { return m.formatter.Lines() }

// OnCombatEvent attributes ev to a party slot when it qualifies.
//
// Postcondition: Always returns false so the host keeps dispatching ev.
func (m *Meter) OnCombatEvent(ev classify.Event) bool {
	now := m.now()
	if m.capture != nil {
		m.captureCombat(now, ev)
	}

	att, reason := m.classifier.Classify(ev)
	m.metrics.ObserveEvent(reason.String())
	if reason != classify.Accepted {
		return false
	}

	src := ledger.Source{
		AgentID:     att.Cause.ID,
		LoginNumber: att.Cause.LoginNumber,
		Primary:     att.Cause.Primary,
		Secondary:   att.Cause.Secondary,
	}
	if att.Cause.LoginNumber > 0 {
		src.Name = m.host.PlayerName(att.Cause.LoginNumber)
	}
	if m.ledger.Record(att.Slot, att.Damage, src, m.visible, now) {
		m.metrics.ObserveDamage(att.Damage, att.Tier.String())
	}
	return false
}

func (m *Meter) captureCombat(now time.Time, ev classify.Event) {
	var cause, target *agent.Agent
	var name string
	if a, ok := m.host.Agent(ev.CauseID); ok {
		cause = &a
		if a.LoginNumber > 0 {
			name = m.host.PlayerName(a.LoginNumber)
		}
	}
	if a, ok := m.host.Agent(ev.TargetID); ok {
		target = &a
	}
	m.capture.CombatEvent(now, m.encounter, ev, cause, target, name)
}

// OnAreaTransition reacts to a map change. Entering an explorable instance
// clears the party index; the ledger resets only when coming from outside an
// explorable instance. Loading transitions are ignored.
//
// Postcondition: Always returns false.
func (m *Meter) OnAreaTransition(area Area) bool {
	now := m.now()
	if m.capture != nil {
		m.capture.AreaTransition(now, m.encounter, area)
	}

	switch area {
	case AreaOutpost:
		m.inExplorable = false
	case AreaExplorable:
		m.index.Clear()
		if !m.inExplorable {
			m.inExplorable = true
			m.encounter = uuid.New()
			m.reset("explorable entered")
		}
	}
	return false
}

// OnTick runs the per-frame housekeeping. It delivers at most one outbound
// line and rebuilds an empty party index before decaying recent damage.
func (m *Meter) OnTick() {
	now := m.now()

	sent := m.queue.Drain(now, m.host)
	m.metrics.ObserveQueue(m.queue.Len(), sent)

	if m.index.Empty() {
		m.rebuildIndex(now)
	}

	m.ledger.DecayTick(now)
}

func (m *Meter) rebuildIndex(now time.Time) {
	roster, ok := m.host.Roster()
	if !ok {
		return
	}
	if !m.index.Rebuild(loadedRoster(roster)) {
		return
	}
	m.logger.Debug("party index rebuilt",
		zap.Int("slots", m.index.Len()),
		zap.Int("roster_size", roster.Size()),
	)
	if m.capture != nil {
		m.capture.RosterLoaded(now, m.encounter, roster)
	}
}

// Draw renders the overlay onto sink. Nothing is drawn while hidden.
//
// Postcondition: Returns the number of rows drawn.
func (m *Meter) Draw(sink overlay.Sink, frame overlay.Frame) int {
	if !m.visible {
		return 0
	}
	roster, ok := m.host.Roster()
	if !ok {
		return 0
	}
	return overlay.Draw(sink, frame, m.ledger, roster.Size())
}

// LoadPersisted merges remembered max health values from store.
//
// Postcondition: Returns the store's error; invalid entries are skipped, not failed on.
func (m *Meter) LoadPersisted(ctx context.Context, store health.Store) error {
	loaded, skipped, err := m.health.Load(ctx, store)
	if err != nil {
		return err
	}
	m.logger.Info("health log loaded",
		zap.Int("loaded", loaded),
		zap.Int("skipped", skipped),
	)
	return nil
}

// SavePersisted writes a full snapshot of remembered max health values to store.
func (m *Meter) SavePersisted(ctx context.Context, store health.Store) error {
	if err := m.health.Save(ctx, store); err != nil {
		return err
	}
	m.logger.Info("health log saved", zap.Int("entries", m.health.Len()))
	return nil
}

// RequestFullReport queues one line per populated slot and the total line.
func (m *Meter) RequestFullReport() {
	if m.capture != nil {
		m.capture.ReportRequested(m.now(), m.encounter, false, nil)
	}
	n := m.formatter.FormatAll()
	m.logger.Debug("full report queued", zap.Int("lines", n))
}

// RequestOwnReport queues the local player's line. It is a no-op when the
// player is unknown or holds no slot.
func (m *Meter) RequestOwnReport() {
	self, ok := m.host.Self()
	if m.capture != nil {
		var p *agent.Agent
		if ok {
			p = &self
		}
		m.capture.ReportRequested(m.now(), m.encounter, true, p)
	}
	if !ok {
		return
	}
	slot, ok := m.index.Resolve(self.ID)
	if !ok {
		return
	}
	m.formatter.FormatOne(slot, 0)
}

// ResetEncounter zeroes the ledger without touching the party index or the
// remembered max health values.
func (m *Meter) ResetEncounter() {
	if m.capture != nil {
		m.capture.EncounterReset(m.now(), m.encounter)
	}
	m.reset("requested")
}

func (m *Meter) reset(cause string) {
	m.ledger.Reset()
	m.metrics.ObserveReset()
	m.logger.Info("encounter reset",
		zap.String("cause", cause),
		zap.Stringer("encounter", m.encounter),
	)
}

type loadedRoster agent.Roster

func (r loadedRoster) Roster() (agent.Roster, bool) { return agent.Roster(r), true }
