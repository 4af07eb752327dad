package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/ledger"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newLedger(t testing.TB) *ledger.Ledger {
	return ledger.NewLedger(12, 0, "", zaptest.NewLogger(t))
}

func player(id agent.ID, login uint32, name string) ledger.Source {
	return ledger.Source{
		AgentID:     id,
		LoginNumber: login,
		Name:        name,
		Primary:     agent.ProfessionWarrior,
		Secondary:   agent.ProfessionMonk,
	}
}

func TestLedger_RecordCapturesIdentityOnFirstHit(t *testing.T) {
	l := newLedger(t)
	require.True(t, l.Record(0, 250, player(100, 1, "Aria Vale"), true, epoch))

	e, ok := l.Entry(0)
	require.True(t, ok)
	assert.Equal(t, int64(250), e.Damage)
	assert.Equal(t, int64(250), e.Recent)
	assert.Equal(t, epoch, e.LastDamage)
	assert.Equal(t, agent.ID(100), e.AgentID)
	assert.Equal(t, "Aria Vale", e.Name)
	assert.Equal(t, agent.ProfessionWarrior, e.Primary)
	assert.Equal(t, agent.ProfessionMonk, e.Secondary)
	assert.Equal(t, int64(250), l.Total())
}

func TestLedger_IdentityFrozenAfterFirstHit(t *testing.T) {
	l := newLedger(t)
	l.Record(3, 10, player(100, 1, "First"), false, epoch)
	l.Record(3, 15, player(200, 2, "Second"), false, epoch)

	e, _ := l.Entry(3)
	assert.Equal(t, "First", e.Name)
	assert.Equal(t, agent.ID(100), e.AgentID)
	assert.Equal(t, int64(25), e.Damage)
}

func TestLedger_PlaceholderForAllies(t *testing.T) {
	l := newLedger(t)
	l.Record(1, 40, ledger.Source{AgentID: 101, Primary: agent.ProfessionRitualist}, false, epoch)
	e, _ := l.Entry(1)
	assert.Equal(t, ledger.DefaultPlaceholderName, e.Name)

	custom := ledger.NewLedger(4, 0, "<Hero>", zaptest.NewLogger(t))
	custom.Record(0, 1, ledger.Source{AgentID: 5}, false, epoch)
	e, _ = custom.Entry(0)
	assert.Equal(t, "<Hero>", e.Name)
}

func TestLedger_HiddenOverlaySuspendsRecent(t *testing.T) {
	l := newLedger(t)
	l.Record(0, 100, player(1, 1, "A"), false, epoch)
	e, _ := l.Entry(0)
	assert.Equal(t, int64(100), e.Damage)
	assert.Zero(t, e.Recent)
	assert.True(t, e.LastDamage.IsZero())
}

func TestLedger_OutOfRangeSlotIsNoOp(t *testing.T) {
	l := newLedger(t)
	assert.False(t, l.Record(12, 100, player(1, 1, "A"), true, epoch))
	assert.False(t, l.Record(-1, 100, player(1, 1, "A"), true, epoch))
	assert.False(t, l.Record(0, -5, player(1, 1, "A"), true, epoch))
	assert.Zero(t, l.Total())
	_, ok := l.Entry(12)
	assert.False(t, ok)
}

func TestLedger_DecayTick(t *testing.T) {
	l := newLedger(t)
	l.Record(0, 100, player(1, 1, "A"), true, epoch)
	l.Record(1, 50, player(2, 2, "B"), true, epoch.Add(5*time.Second))

	assert.Equal(t, 0, l.DecayTick(epoch.Add(7*time.Second)), "exactly the window is not idle yet")
	assert.Equal(t, 1, l.DecayTick(epoch.Add(7*time.Second+time.Millisecond)))

	a, _ := l.Entry(0)
	b, _ := l.Entry(1)
	assert.Zero(t, a.Recent)
	assert.Equal(t, int64(100), a.Damage, "decay never touches cumulative damage")
	assert.Equal(t, int64(50), b.Recent)
}

func TestLedger_Reset(t *testing.T) {
	l := newLedger(t)
	l.Record(0, 100, player(1, 1, "A"), true, epoch)
	l.Record(4, 30, player(2, 2, "B"), true, epoch)
	l.Reset()

	assert.Zero(t, l.Total())
	for _, e := range l.Entries() {
		assert.Equal(t, ledger.Entry{}, e)
	}
}

func TestLedger_OrderAndRank(t *testing.T) {
	l := newLedger(t)
	l.Record(0, 300, player(1, 1, "A"), false, epoch)
	l.Record(1, 700, player(2, 2, "B"), false, epoch)
	l.Record(2, 300, player(3, 3, "C"), false, epoch)

	order := l.Order()
	assert.Equal(t, []int{1, 0, 2}, order[:3], "ties keep slot order")
	assert.Equal(t, 1, l.Rank(1))
	assert.Equal(t, 2, l.Rank(0))
	assert.Equal(t, 2, l.Rank(2), "tied slots share a rank")
	assert.Equal(t, 4, l.Rank(5), "an empty slot ranks behind every populated one")
	assert.Equal(t, 0, l.Rank(99))
}

func TestLedger_Percent(t *testing.T) {
	l := newLedger(t)
	assert.Zero(t, l.Percent(100), "no total means 0 percent")
	l.Record(0, 300, player(1, 1, "A"), false, epoch)
	l.Record(1, 700, player(2, 2, "B"), false, epoch)
	assert.InDelta(t, 30.0, l.Percent(300), 1e-9)
	assert.InDelta(t, 70.0, l.Percent(700), 1e-9)
}

func TestLedger_MaxDamageAndRecent(t *testing.T) {
	l := newLedger(t)
	l.Record(0, 300, player(1, 1, "A"), true, epoch)
	l.Record(1, 200, player(2, 2, "B"), false, epoch)
	assert.Equal(t, int64(300), l.MaxDamage())
	assert.Equal(t, int64(300), l.MaxRecent())
}

func TestLedger_Property_TotalEqualsSumOfSlots(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := ledger.NewLedger(12, 0, "", zaptest.NewLogger(t))
		n := rapid.IntRange(0, 50).Draw(rt, "n")
		for i := 0; i < n; i++ {
			slot := rapid.IntRange(-2, 14).Draw(rt, "slot")
			amount := rapid.Int64Range(-10, 5000).Draw(rt, "amount")
			visible := rapid.Bool().Draw(rt, "visible")
			l.Record(slot, amount, player(agent.ID(slot+10), 1, "P"), visible, epoch)

			var sum int64
			for _, e := range l.Entries() {
				sum += e.Damage
				assert.GreaterOrEqual(rt, e.Damage, int64(0))
			}
			assert.Equal(rt, sum, l.Total())
		}
	})
}

func TestLedger_Property_PercentagesSumTo100(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := ledger.NewLedger(12, 0, "", zaptest.NewLogger(t))
		for slot := 0; slot < 12; slot++ {
			amount := rapid.Int64Range(0, 100000).Draw(rt, "amount")
			l.Record(slot, amount, player(agent.ID(slot+1), 1, "P"), false, epoch)
		}
		if l.Total() == 0 {
			return
		}
		var sum float64
		for _, e := range l.Entries() {
			p := l.Percent(e.Damage)
			assert.LessOrEqual(rt, p, 100.0+1e-9)
			sum += p
		}
		assert.InDelta(rt, 100.0, sum, 1e-6)
	})
}

func TestLedger_Property_RankWorsensWhenOvertaken(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := ledger.NewLedger(12, 0, "", zaptest.NewLogger(t))
		base := rapid.Int64Range(1, 1000).Draw(rt, "base")
		l.Record(0, base, player(1, 1, "Me"), false, epoch)
		before := l.Rank(0)

		other := rapid.IntRange(1, 11).Draw(rt, "other")
		l.Record(other, base+rapid.Int64Range(1, 1000).Draw(rt, "lead"), player(2, 2, "Them"), false, epoch)
		assert.Equal(rt, before+1, l.Rank(0))
	})
}
