package meter_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/partydamage/internal/config"
	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/classify"
	"github.com/cory-johannsen/partydamage/internal/game/health"
	"github.com/cory-johannsen/partydamage/internal/game/overlay"
	"github.com/cory-johannsen/partydamage/internal/meter"
	"github.com/cory-johannsen/partydamage/internal/observability"
)

const (
	aliceID agent.ID = 10
	heroID  agent.ID = 11
	bobID   agent.ID = 20
	foeID   agent.ID = 500
	foe2ID  agent.ID = 501
)

type fakeHost struct {
	*agent.Table
	roster agent.Roster
	loaded bool
	ready  bool
	sent   []string
}

func (h *fakeHost) Roster() (agent.Roster, bool) { return h.roster, h.loaded }
func (h *fakeHost) Ready() bool { return h.ready }
func (h *fakeHost) Send(line string) error {
	h.sent = append(h.sent, line)
	return nil
}

func newHost() *fakeHost {
	tbl := agent.NewTable()
	tbl.Put(agent.Agent{ID: aliceID, IdentityKey: 1, Allegiance: agent.AllegiancePlayer, LoginNumber: 1, Primary: agent.ProfessionWarrior, Secondary: agent.ProfessionMonk})
	tbl.Put(agent.Agent{ID: heroID, IdentityKey: 2, Allegiance: agent.AllegiancePlayer, Primary: agent.ProfessionRitualist})
	tbl.Put(agent.Agent{ID: bobID, IdentityKey: 3, Allegiance: agent.AllegiancePlayer, LoginNumber: 2, Primary: agent.ProfessionElementalist})
	tbl.Put(agent.Agent{ID: foeID, IdentityKey: 9001, Allegiance: agent.AllegianceEnemy, MaxHP: 1000, Level: 20})
	tbl.Put(agent.Agent{ID: foe2ID, IdentityKey: 9002, Allegiance: agent.AllegianceEnemy, Level: 10})
	tbl.SetName(1, "Aria Vale")
	tbl.SetName(2, "Brann Holt")
	tbl.SetSelf(aliceID)
	return &fakeHost{
		Table: tbl,
		roster: agent.Roster{
			Players: []agent.PartyPlayer{{LoginNumber: 1, AgentID: aliceID}, {LoginNumber: 2, AgentID: bobID}},
			Allies:  []agent.PartyAlly{{OwnerLogin: 1, AgentID: heroID}},
		},
		loaded: true,
		ready:  true,
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock { return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }

func testConfig(t *testing.T) config.MeterConfig {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg.Meter
}

func newMeter(t *testing.T, h *fakeHost, c *clock) *meter.Meter {
	t.Helper()
	m := meter.New(h, testConfig(t), nil, zaptest.NewLogger(t))
	m.SetClock(c.now)
	return m
}

func hit(cause, target agent.ID, fraction float64) classify.Event {
	return classify.Event{Type: classify.EventTypeDamage, Value: fraction, CauseID: cause, TargetID: target}
}

func TestMeter_SlotsAreAssignedOnTick(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)

	m.OnCombatEvent(hit(aliceID, foeID, -0.25))
	assert.Zero(t, m.Ledger().Total(), "no slots before the first tick")

	m.OnTick()
	assert.Equal(t, map[agent.ID]int{aliceID: 0, heroID: 1, bobID: 2}, m.Index().Slots())
}

func TestMeter_RecordsLiveDamageOnce(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()

	assert.False(t, m.OnCombatEvent(hit(aliceID, foeID, -0.25)))

	e, ok := m.Ledger().Entry(0)
	require.True(t, ok)
	assert.Equal(t, int64(250), e.Damage)
	assert.Equal(t, int64(250), e.Recent)
	assert.Equal(t, "Aria Vale", e.Name)
	assert.Equal(t, int64(250), m.Ledger().Total())

	hp, ok := m.Health().Lookup(9001)
	require.True(t, ok)
	assert.Equal(t, 1000, hp)
}

func TestMeter_HealingAndOutsidersLeaveLedgerUntouched(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()
	h.Put(agent.Agent{ID: 77, Allegiance: agent.AllegiancePlayer, LoginNumber: 9})

	before := m.Ledger().Entries()
	m.OnCombatEvent(hit(aliceID, foeID, 0.5))
	m.OnCombatEvent(hit(77, foeID, -0.5))
	assert.Equal(t, before, m.Ledger().Entries())
	assert.Zero(t, m.Ledger().Total())
}

func TestMeter_LevelFallback(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()

	m.OnCombatEvent(hit(heroID, foe2ID, -1))
	e, _ := m.Ledger().Entry(1)
	assert.Equal(t, int64(300), e.Damage)
	assert.Equal(t, "<A Hero>", e.Name)
}

func TestMeter_FullReportIsDeliveredOneLinePerInterval(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()

	m.OnCombatEvent(hit(aliceID, foeID, -0.3))
	m.OnCombatEvent(hit(bobID, foeID, -0.7))
	m.RequestFullReport()
	require.Equal(t, 3, m.Queue().Len())

	for i := 0; i < 10; i++ {
		c.advance(601 * time.Millisecond)
		m.OnTick()
	}
	assert.Equal(t, []string{
		"# 1 ~ 70.0 % ~ E/x Brann Holt ~ 700",
		"# 2 ~ 30.0 % ~ W/Mo Aria Vale ~ 300",
		"Total ~ 100 % ~ 1000",
	}, h.sent)
}

func TestMeter_NothingSentWhileChannelNotReady(t *testing.T) {
	h, c := newHost(), newClock()
	h.ready = false
	m := newMeter(t, h, c)
	m.RequestFullReport()

	for i := 0; i < 5; i++ {
		c.advance(time.Second)
		m.OnTick()
	}
	assert.Empty(t, h.sent)
	assert.Equal(t, 1, m.Queue().Len())

	h.ready = true
	c.advance(time.Second)
	m.OnTick()
	assert.Equal(t, []string{"Total ~ 100 % ~ 0"}, h.sent)
}

func TestMeter_OwnReport(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()

	m.OnCombatEvent(hit(aliceID, foeID, -0.3))
	m.OnCombatEvent(hit(bobID, foeID, -0.7))
	m.RequestOwnReport()
	assert.Equal(t, []string{"# 2 ~ 30.0 % ~ W/Mo Aria Vale ~ 300"}, m.Queue().Lines())
}

func TestMeter_OwnReportWithoutSlotIsNoop(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)

	m.RequestOwnReport()
	assert.Zero(t, m.Queue().Len(), "index not built yet")

	h.SetSelf(0)
	m.OnTick()
	m.RequestOwnReport()
	assert.Zero(t, m.Queue().Len(), "no local player")
}

func TestMeter_AreaTransitions(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)

	m.OnAreaTransition(meter.AreaExplorable)
	first := m.Encounter()
	m.OnTick()
	m.OnCombatEvent(hit(aliceID, foeID, -0.1))
	require.Equal(t, int64(100), m.Ledger().Total())

	// a second explorable load inside the same run keeps the damage but drops slots
	m.OnAreaTransition(meter.AreaLoading)
	m.OnAreaTransition(meter.AreaExplorable)
	assert.Equal(t, int64(100), m.Ledger().Total())
	assert.Equal(t, first, m.Encounter())
	assert.True(t, m.Index().Empty())

	// back to town, then a fresh run resets
	m.OnAreaTransition(meter.AreaOutpost)
	assert.Equal(t, int64(100), m.Ledger().Total(), "outpost entry keeps the ledger")
	m.OnAreaTransition(meter.AreaExplorable)
	assert.Zero(t, m.Ledger().Total())
	assert.NotEqual(t, first, m.Encounter())
}

func TestMeter_ResetEncounterKeepsSlotsAndHealth(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()
	m.OnCombatEvent(hit(aliceID, foeID, -0.1))

	m.ResetEncounter()
	assert.Zero(t, m.Ledger().Total())
	e, _ := m.Ledger().Entry(0)
	assert.Equal(t, agent.ID(0), e.AgentID)
	assert.Equal(t, 3, m.Index().Len())
	assert.Equal(t, 1, m.Health().Len())
}

func TestMeter_RecentDecaysOnTick(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()
	m.OnCombatEvent(hit(aliceID, foeID, -0.1))

	c.advance(7 * time.Second)
	m.OnTick()
	e, _ := m.Ledger().Entry(0)
	assert.Equal(t, int64(100), e.Recent)

	c.advance(time.Millisecond)
	m.OnTick()
	e, _ = m.Ledger().Entry(0)
	assert.Zero(t, e.Recent)
	assert.Equal(t, int64(100), e.Damage)
}

func TestMeter_HiddenSuspendsRecentAndDrawing(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()
	m.SetVisible(false)

	m.OnCombatEvent(hit(aliceID, foeID, -0.1))
	e, _ := m.Ledger().Entry(0)
	assert.Equal(t, int64(100), e.Damage)
	assert.Zero(t, e.Recent)

	sink := &countingSink{}
	assert.Zero(t, m.Draw(sink, overlay.Frame{Width: 100, LineHeight: 10}))
	assert.Zero(t, sink.calls)

	m.SetVisible(true)
	assert.Equal(t, 3, m.Draw(sink, overlay.Frame{Width: 100, LineHeight: 10}))
	assert.Equal(t, 12, sink.calls)
}

type countingSink struct{ calls int }

func (s *countingSink) AddRectFilled(_, _ overlay.Point, _ overlay.Color) { s.calls++ }
func (s *countingSink) AddText(_ overlay.Point, _ overlay.Color, _ string) { s.calls++ }

type failingStore struct{}

func (failingStore) Load(context.Context) ([]health.Entry, error) { return nil, errors.New("disk gone") }
func (failingStore) Save(context.Context, []health.Entry) error { return errors.New("disk gone") }

func TestMeter_PersistRoundTrip(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	m.OnTick()
	m.OnCombatEvent(hit(aliceID, foeID, -0.1))

	store := health.NewMemoryStore(health.Entry{Key: 42, MaxHP: 480}, health.Entry{Key: 0, MaxHP: 5})
	require.NoError(t, m.LoadPersisted(context.Background(), store))
	require.NoError(t, m.SavePersisted(context.Background(), store))

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []health.Entry{{Key: 42, MaxHP: 480}, {Key: 9001, MaxHP: 1000}}, entries)

	assert.Error(t, m.LoadPersisted(context.Background(), failingStore{}))
	assert.Error(t, m.SavePersisted(context.Background(), failingStore{}))
}

func TestMeter_RememberedHealthUsedAfterLoad(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	require.NoError(t, m.LoadPersisted(context.Background(), health.NewMemoryStore(health.Entry{Key: 9002, MaxHP: 800})))
	m.OnTick()

	m.OnCombatEvent(hit(aliceID, foe2ID, -0.5))
	assert.Equal(t, int64(400), m.Ledger().Total())
}

func TestMeter_ResetIsLoggedWithEncounter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h, c := newHost(), newClock()
	m := meter.New(h, testConfig(t), nil, zap.New(core))
	m.SetClock(c.now)

	m.OnAreaTransition(meter.AreaExplorable)
	entries := logs.FilterMessage("encounter reset").All()
	require.Len(t, entries, 1)
	assert.Equal(t, m.Encounter().String(), entries[0].ContextMap()["encounter"])
	assert.Equal(t, "explorable entered", entries[0].ContextMap()["cause"])
}

func TestMeter_MetricsObserveOutcomes(t *testing.T) {
	h, c := newHost(), newClock()
	metrics := observability.NewMetrics()
	m := meter.New(h, testConfig(t), metrics, zaptest.NewLogger(t))
	m.SetClock(c.now)
	m.OnTick()

	m.OnCombatEvent(hit(aliceID, foeID, -0.1))
	m.OnCombatEvent(hit(aliceID, foeID, 0.1))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "dmgmeter_combat_events_total")
	assert.Contains(t, names, "dmgmeter_damage_recorded_total")
}

func TestMeter_InvalidFractionsAreNotCountedAccepted(t *testing.T) {
	h, c := newHost(), newClock()
	metrics := observability.NewMetrics()
	m := meter.New(h, testConfig(t), metrics, zaptest.NewLogger(t))
	m.SetClock(c.now)
	m.OnTick()

	m.OnCombatEvent(hit(aliceID, foeID, math.NaN()))
	m.OnCombatEvent(hit(aliceID, foeID, -1e16))
	m.OnCombatEvent(hit(aliceID, foeID, -1e16))
	assert.Zero(t, m.Ledger().Total())

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "dmgmeter_combat_events_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "outcome" {
					outcomes[lp.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"invalid_value": 3}, outcomes)
}

type captured struct {
	kinds     []string
	encounter uuid.UUID
	roster    agent.Roster
	causeName string
}

func (c *captured) CombatEvent(_ time.Time, enc uuid.UUID, _ classify.Event, cause, _ *agent.Agent, name string) {
	c.kinds = append(c.kinds, "combat")
	c.encounter = enc
	if cause != nil {
		c.causeName = name
	}
}
func (c *captured) AreaTransition(_ time.Time, _ uuid.UUID, a meter.Area) {
	c.kinds = append(c.kinds, "area:"+a.String())
}
func (c *captured) RosterLoaded(_ time.Time, _ uuid.UUID, r agent.Roster) {
	c.kinds = append(c.kinds, "roster")
	c.roster = r
}
func (c *captured) ReportRequested(_ time.Time, _ uuid.UUID, own bool, _ *agent.Agent) {
	if own {
		c.kinds = append(c.kinds, "report:own")
		return
	}
	c.kinds = append(c.kinds, "report:full")
}
func (c *captured) EncounterReset(time.Time, uuid.UUID) { c.kinds = append(c.kinds, "reset") }
func (c *captured) VisibilityChanged(_ time.Time, v bool) {
	if v {
		c.kinds = append(c.kinds, "shown")
		return
	}
	c.kinds = append(c.kinds, "hidden")
}

func TestMeter_CaptureSeesEveryInput(t *testing.T) {
	h, c := newHost(), newClock()
	m := newMeter(t, h, c)
	rec := &captured{}
	m.SetCapture(rec)

	m.OnAreaTransition(meter.AreaExplorable)
	m.OnTick()
	m.OnTick()
	m.OnCombatEvent(hit(aliceID, foeID, -0.1))
	m.SetVisible(false)
	m.SetVisible(false)
	m.RequestFullReport()
	m.RequestOwnReport()
	m.ResetEncounter()

	assert.Equal(t, []string{
		"area:explorable", "roster", "combat", "hidden", "report:full", "report:own", "reset",
	}, rec.kinds)
	assert.Equal(t, m.Encounter(), rec.encounter)
	assert.Equal(t, "Aria Vale", rec.causeName)
	assert.Equal(t, h.roster, rec.roster)
}

func TestMeter_Property_TotalMatchesSlots(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h, c := newHost(), newClock()
		m := meter.New(h, testConfig(t), nil, zap.NewNop())
		m.SetClock(c.now)
		m.OnTick()

		causes := []agent.ID{aliceID, heroID, bobID, 77, foeID}
		targets := []agent.ID{foeID, foe2ID, aliceID, 999}
		n := rapid.IntRange(0, 60).Draw(rt, "events")
		for i := 0; i < n; i++ {
			ev := classify.Event{
				Type:     classify.EventType(rapid.Uint32Range(0, 9).Draw(rt, "type")),
				Value:    rapid.Float64Range(-1, 1).Draw(rt, "value"),
				CauseID:  rapid.SampledFrom(causes).Draw(rt, "cause"),
				TargetID: rapid.SampledFrom(targets).Draw(rt, "target"),
			}
			m.OnCombatEvent(ev)
			c.advance(time.Duration(rapid.IntRange(0, 3000).Draw(rt, "ms")) * time.Millisecond)
			m.OnTick()

			var sum int64
			for _, e := range m.Ledger().Entries() {
				sum += e.Damage
				if e.Damage < 0 || e.Recent < 0 {
					rt.Fatalf("negative damage in ledger: %+v", e)
				}
			}
			if sum != m.Ledger().Total() {
				rt.Fatalf("total %d != sum of slots %d", m.Ledger().Total(), sum)
			}
		}
	})
}
