package commands

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/cory-johannsen/partydamage/internal/game/overlay"
)

// termRow accumulates the draw calls for one overlay row.
type termRow struct {
	cumulative float64
	recent     float64
	labels     []string
}

// termSink is an overlay.Sink that renders rows as colored terminal bars.
type termSink struct {
	frame overlay.Frame
	cols  int
	rows  map[int]*termRow
}

func newTermSink(f overlay.Frame, cols int) *termSink {
	if cols <= 0 {
		cols = 40
	}
	return &termSink{frame: f, cols: cols, rows: make(map[int]*termRow)}
}

func (s *termSink) row(y float64) *termRow {
	i := int(math.Floor((y - s.frame.Y) / s.frame.LineHeight))
	r, ok := s.rows[i]
	if !ok {
		r = &termRow{}
		s.rows[i] = r
	}
	return r
}

// AddRectFilled implements overlay.Sink. Only the bar width is kept.
func (s *termSink) AddRectFilled(lo, hi overlay.Point, c overlay.Color) {
	frac := (hi.X - lo.X) / s.frame.Width
	r := s.row(lo.Y)
	switch c {
	case overlay.CumulativeColor:
		r.cumulative = frac
	case overlay.RecentColor:
		r.recent = frac
	}
}

// AddText implements overlay.Sink.
func (s *termSink) AddText(at overlay.Point, _ overlay.Color, text string) {
	r := s.row(at.Y)
	r.labels = append(r.labels, text)
}

// Render writes one bar line per row, right-anchored like the overlay.
func (s *termSink) Render(out io.Writer) {
	idx := make([]int, 0, len(s.rows))
	for i := range s.rows {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	cum := color.New(color.FgHiRed)
	rec := color.New(color.FgHiBlue)
	for _, i := range idx {
		r := s.rows[i]
		fmt.Fprintf(out, "%s  %s\n", s.bar(cum, r.cumulative, "█"), strings.Join(r.labels, "  "))
		fmt.Fprintf(out, "%s\n", s.bar(rec, r.recent, "▁"))
	}
}

func (s *termSink) bar(c *color.Color, frac float64, glyph string) string {
	n := int(math.Round(frac * float64(s.cols)))
	n = max(0, min(n, s.cols))
	return strings.Repeat(" ", s.cols-n) + c.Sprint(strings.Repeat(glyph, n))
}
