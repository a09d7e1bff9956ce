// Package report renders run results for the terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ballsim/internal/experiment"
)

var (
	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00cccc"))

	Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899"))

	Value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00ccff")).
		Bold(true)

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 2)
)

// Summary writes the run statistics and metrics of r under title.
func Summary(w io.Writer, title string, r *experiment.Result) error {
	var b strings.Builder
	b.WriteString(Heading.Render(title) + "\n")
	b.WriteString(Subtle.Render(strings.Repeat("─", 32)) + "\n")

	rows := [][2]string{
		{"elapsed", r.Elapsed.Round(time.Millisecond).String()},
		{"ticks", fmt.Sprintf("%d", r.Ticks)},
		{"ticks/sec", fmt.Sprintf("%.0f", TickRate(r))},
		{"samples", fmt.Sprintf("%d", len(r.Times))},
		{"balls", fmt.Sprintf("%d", len(r.Final))},
		{"skipped actions", fmt.Sprintf("%d", r.Skipped)},
	}
	writeRows(&b, rows)

	if len(r.Metrics) > 0 {
		b.WriteString("\n" + Heading.Render("metrics") + "\n")
		writeRows(&b, metricRows(r.Metrics))
	}

	_, err := fmt.Fprintln(w, Panel.Render(strings.TrimRight(b.String(), "\n")))
	return err
}

func TickRate(r *experiment.Result) float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ticks) / r.Elapsed.Seconds()
}

func metricRows(m map[string]float64) [][2]string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][2]string, len(names))
	for i, name := range names {
		rows[i] = [2]string{name, fmt.Sprintf("%.6f", m[name])}
	}
	return rows
}

func writeRows(b *strings.Builder, rows [][2]string) {
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n", Label.Render(fmt.Sprintf("%-16s", row[0])), Value.Render(row[1])))
	}
}

// EnergyPlot charts the kinetic energy series. It returns "" for fewer than
// two samples.
func EnergyPlot(energy []float64, width, height int) string {
	if len(energy) < 2 {
		return ""
	}
	return asciigraph.Plot(energy,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("kinetic energy vs time"),
	)
}
