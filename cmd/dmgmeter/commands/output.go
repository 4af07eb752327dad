package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/cory-johannsen/partydamage/internal/game/health"
	"github.com/cory-johannsen/partydamage/internal/game/report"
	"github.com/cory-johannsen/partydamage/internal/replay"
)

const msgNoStandings = "No damage recorded"

func writeSummary(out io.Writer, stats replay.Stats, encounter string) {
	kinds := make([]string, 0, len(stats.ByKind))
	for k := range stats.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	fmt.Fprintf(out, "replayed %s records over %s of session time (%s ticks)\n",
		humanize.Comma(int64(stats.Records)), stats.Elapsed, humanize.Comma(int64(stats.Ticks)))
	for _, k := range kinds {
		fmt.Fprintf(out, "  %-10s %s\n", k, humanize.Comma(int64(stats.ByKind[replay.Kind(k)])))
	}
	fmt.Fprintf(out, "encounter %s\n\n", encounter)
}

func writeStandings(out io.Writer, lines []report.Line, total int64) {
	if len(lines) == 0 {
		fmt.Fprintln(out, msgNoStandings)
		return
	}
	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Member", "Build", "Damage", "Share"})
	for _, l := range lines {
		tbl.AppendRow(table.Row{
			l.Rank,
			l.Name,
			l.Primary + "/" + l.Secondary,
			humanize.Comma(l.Damage),
			fmt.Sprintf("%.1f %%", l.Percent),
		})
	}
	tbl.AppendFooter(table.Row{"", "Total", "", humanize.Comma(total), "100 %"})
	tbl.Render()
}

func writeLines(out io.Writer, lines []string) {
	if len(lines) == 0 {
		return
	}
	header := color.New(color.FgCyan)
	header.Fprintf(out, "\ndelivered %d chat line(s):\n", len(lines))
	for _, l := range lines {
		fmt.Fprintf(out, "  %s\n", l)
	}
}

func writeHealthLog(out io.Writer, entries []health.Entry) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Identity Key", "Max Health"})
	for _, e := range entries {
		tbl.AppendRow(table.Row{e.Key, humanize.Comma(int64(e.MaxHP))})
	}
	tbl.AppendFooter(table.Row{"Entries", humanize.Comma(int64(len(entries)))})
	tbl.Render()
}
