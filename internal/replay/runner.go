package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/meter"
)

// DefaultStep is the simulated frame time between two ticks.
const DefaultStep = 50 * time.Millisecond

// Stats summarises a replay.
type Stats struct {
	Records int
	ByKind  map[Kind]int
	Ticks   int
	Elapsed time.Duration
}

// Runner feeds capture records through a Meter on a simulated clock.
//
// Runner is not safe for concurrent use.
type Runner struct {
	host   *Host
	meter  *meter.Meter
	step   time.Duration
	now    time.Time
	start  time.Time
	stats  Stats
	logger *zap.Logger
}

// NewRunner binds m to a simulated clock driven by the Runner.
//
// Precondition: host must be the Host m was created with; logger must be non-nil.
// step <= 0 selects DefaultStep.
func NewRunner(host *Host, m *meter.Meter, step time.Duration, logger *zap.Logger) *Runner {
	if step <= 0 {
		step = DefaultStep
	}
	r := &Runner{
		host:   host,
		meter:  m,
		step:   step,
		stats:  Stats{ByKind: make(map[Kind]int)},
		logger: logger,
	}
	m.SetClock(func() time.Time { return r.now })
	return r
}

// Now returns the simulated time.
func (r *Runner) Now() time.Time { return r.now }

// Stats returns what has been replayed so far.
func (r *Runner) Stats() Stats {
	s := r.stats
	s.ByKind = make(map[Kind]int, len(r.stats.ByKind))
	for k, v := range r.stats.ByKind {
		s.ByKind[k] = v
	}
	s.Elapsed = r.now.Sub(r.start)
	return s
}

// Run applies every record from rd, then keeps ticking until the outbound
// queue is empty.
//
// Postcondition: Returns the replay stats, or the first read/apply error.
func (r *Runner) Run(ctx context.Context, rd *Reader) (Stats, error) {
	for {
		if err := ctx.Err(); err != nil {
			return r.Stats(), err
		}
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return r.Stats(), err
		}
		if err := r.Apply(rec); err != nil {
			return r.Stats(), err
		}
	}
	r.Flush()
	return r.Stats(), nil
}

// Apply ticks the meter up to rec.At and then dispatches rec.
func (r *Runner) Apply(rec Record) error {
	if r.now.IsZero() {
		r.now = rec.At
		r.start = rec.At
	}
	r.advance(rec.At)

	switch rec.Kind {
	case KindCombat:
		if rec.Event == nil {
			return fmt.Errorf("combat record without event: %w", ErrUnknownRecord)
		}
		r.host.observe(rec.Cause, rec.CauseName)
		r.host.observe(rec.Target, "")
		r.meter.OnCombatEvent(*rec.Event)
	case KindArea:
		area, err := meter.ParseArea(rec.Area)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownRecord, err)
		}
		r.host.SetReady(area != meter.AreaLoading)
		if area == meter.AreaExplorable {
			r.host.Clear()
			r.host.UnloadRoster()
		}
		r.meter.OnAreaTransition(area)
	case KindRoster:
		if rec.Roster == nil {
			return fmt.Errorf("roster record without roster: %w", ErrUnknownRecord)
		}
		r.host.SetRoster(*rec.Roster)
		r.tick()
	case KindReport:
		if rec.Own {
			r.host.observe(rec.Self, "")
			if rec.Self != nil {
				r.host.SetSelf(rec.Self.ID)
			}
			r.meter.RequestOwnReport()
		} else {
			r.meter.RequestFullReport()
		}
	case KindReset:
		r.meter.ResetEncounter()
	case KindVisibility:
		if rec.Visible != nil {
			r.meter.SetVisible(*rec.Visible)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRecord, rec.Kind)
	}

	r.stats.Records++
	r.stats.ByKind[rec.Kind]++
	return nil
}

// Flush ticks until every queued line has been delivered or the channel
// stays unready.
func (r *Runner) Flush() {
	for r.meter.Queue().Len() > 0 {
		if !r.host.Ready() {
			r.logger.Warn("replay ended with undelivered lines",
				zap.Int("queued", r.meter.Queue().Len()),
			)
			return
		}
		r.now = r.now.Add(r.step)
		r.tick()
	}
}

func (r *Runner) advance(to time.Time) {
	for !r.now.Add(r.step).After(to) {
		r.now = r.now.Add(r.step)
		r.tick()
	}
	if to.After(r.now) {
		r.now = to
	}
}

func (r *Runner) tick() {
	r.meter.OnTick()
	r.stats.Ticks++
}
