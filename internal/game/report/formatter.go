// Package report turns ledger standings into chat lines and queues them for
// rate-limited delivery.
package report

import (
	"fmt"

	"github.com/cory-johannsen/partydamage/internal/game/ledger"
)

// Line is the data behind one standings line.
type Line struct {
	Rank      int
	Percent   float64
	Primary   string
	Secondary string
	Name      string
	Damage    int64
}

// String renders the line in the default chat format.
func (l Line) String() string {
	return fmt.Sprintf("#%2d ~ %.1f %% ~ %s/%s %s ~ %d",
		l.Rank, l.Percent, l.Primary, l.Secondary, l.Name, l.Damage)
}

// TotalLine renders the trailing summary line of a full report.
func TotalLine(total int64) string {
	return fmt.Sprintf("Total ~ 100 %% ~ %d", total)
}

// LineHook may replace the default rendering of a standings line.
type LineHook interface {
	// FormatLine returns the replacement text, or false to keep the default.
	FormatLine(l Line) (string, bool)
}

// Formatter reads a Ledger and pushes rendered lines onto a Queue.
type Formatter struct {
	ledger *ledger.Ledger
	queue  *Queue
	hook   LineHook
}

// NewFormatter creates a Formatter.
//
// Precondition: l and q must be non-nil.
func NewFormatter(l *ledger.Ledger, q *Queue) *Formatter {
	return &Formatter{ledger: l, queue: q}
}

// SetHook installs h; nil restores the default format.
func (f *Formatter) SetHook(h LineHook) {
	f.hook = h
}

// Lines returns the standings lines of every populated slot, ordered by
// descending damage. Ranks are positions in that order, so tied slots get
// consecutive numbers; FormatOne reports the competition rank instead.
func (f *Formatter) Lines() []Line {
	var out []Line
	for pos, slot := range f.ledger.Order() {
		l, ok := f.line(slot, pos+1)
		if !ok {
			continue
		}
		out = append(out, l)
	}
	return out
}

// FormatAll queues one line per populated slot plus the total line.
//
// Postcondition: Returns the number of queued lines, total line included.
func (f *Formatter) FormatAll() int {
	n := 0
	for _, l := range f.Lines() {
		f.queue.Push(f.render(l))
		n++
	}
	f.queue.Push(TotalLine(f.ledger.Total()))
	return n + 1
}

// FormatOne queues the line of slot. A rank <= 0 is computed from the ledger.
//
// Postcondition: Returns false without queueing when slot is out of range or unpopulated.
func (f *Formatter) FormatOne(slot, rank int) bool {
	if rank <= 0 {
		rank = f.ledger.Rank(slot)
	}
	l, ok := f.line(slot, rank)
	if !ok {
		return false
	}
	f.queue.Push(f.render(l))
	return true
}

func (f *Formatter) line(slot, rank int) (Line, bool) {
	e, ok := f.ledger.Entry(slot)
	if !ok || !e.Populated() {
		return Line{}, false
	}
	return Line{
		Rank:      rank,
		Percent:   f.ledger.Percent(e.Damage),
		Primary:   e.Primary.Acronym(),
		Secondary: e.Secondary.Acronym(),
		Name:      e.Name,
		Damage:    e.Damage,
	}, true
}

func (f *Formatter) render(l Line) string {
	if f.hook != nil {
		if s, ok := f.hook.FormatLine(l); ok {
			return s
		}
	}
	return l.String()
}
