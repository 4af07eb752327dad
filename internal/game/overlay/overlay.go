// Package overlay renders the per-slot damage bars onto an opaque drawing sink.
package overlay

import (
	"fmt"

	"github.com/cory-johannsen/partydamage/internal/game/ledger"
)

// RecentBarHeight is the height of the recent-damage bar at the bottom of each row.
const RecentBarHeight = 6

var (
	// CumulativeColor fills the cumulative-damage bar.
	CumulativeColor = Color{R: 205, G: 102, B: 51, A: 102}
	// RecentColor fills the recent-damage bar.
	RecentColor = Color{R: 102, G: 153, B: 230, A: 205}
	// TextColor is used for every label.
	TextColor = Color{R: 255, G: 255, B: 255, A: 255}
)

// Point is a position on the drawing surface.
type Point struct {
	X, Y float64
}

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// Sink is the host's drawing surface.
type Sink interface {
	AddRectFilled(min, max Point, c Color)
	AddText(at Point, c Color, text string)
}

// Frame places the overlay on the surface.
type Frame struct {
	X, Y       float64
	Width      float64
	LineHeight float64
	// Padding is the horizontal inset of the damage label.
	Padding float64
}

// DamageLabel formats an absolute damage value for a bar.
func DamageLabel(dmg int64) string {
	switch {
	case dmg < 1000:
		return fmt.Sprintf("%d", dmg)
	case dmg < 10_000:
		return fmt.Sprintf("%.2f k", float64(dmg)/1000)
	case dmg < 1_000_000:
		return fmt.Sprintf("%.1f k", float64(dmg)/1000)
	default:
		return fmt.Sprintf("%.2f m", float64(dmg)/1_000_000)
	}
}

// PercentLabel formats a share of the running total.
func PercentLabel(pct float64) string {
	return fmt.Sprintf("%.1f %%", pct)
}

// Draw renders one row per slot for the first min(partySize, capacity) slots of l.
// Bars are right-anchored and scaled against the largest value across all slots.
//
// Postcondition: Returns the number of rows drawn.
func Draw(sink Sink, f Frame, l *ledger.Ledger, partySize int) int {
	rows := min(partySize, l.Capacity())
	if rows <= 0 {
		return 0
	}
	top := l.MaxDamage()
	topRecent := l.MaxRecent()

	for i := 0; i < rows; i++ {
		e, _ := l.Entry(i)
		rowTop := f.Y + float64(i)*f.LineHeight
		rowBottom := rowTop + f.LineHeight
		right := f.X + f.Width

		sink.AddRectFilled(
			Point{X: f.X + f.Width*(1-share(e.Damage, top)), Y: rowTop},
			Point{X: right, Y: rowBottom},
			CumulativeColor,
		)
		sink.AddRectFilled(
			Point{X: f.X + f.Width*(1-share(e.Recent, topRecent)), Y: rowBottom - RecentBarHeight},
			Point{X: right, Y: rowBottom},
			RecentColor,
		)
		sink.AddText(Point{X: f.X + f.Padding, Y: rowTop}, TextColor, DamageLabel(e.Damage))
		sink.AddText(Point{X: f.X + f.Width/2, Y: rowTop}, TextColor, PercentLabel(l.Percent(e.Damage)))
	}
	return rows
}

func share(v, top int64) float64 {
	if top <= 0 {
		return 0
	}
	return float64(v) / float64(top)
}
