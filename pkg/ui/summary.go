package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"wallharvest/pkg/harvest"
)

// RenderSummary formats the aggregate block for a finished run
func (p *Printer) RenderSummary(s *harvest.Summary) string {
	st := p.styles
	totals := s.Totals()

	title := st.label.Render("Run summary")
	if s.Interrupted {
		title += " " + st.warning.Render("(interrupted)")
	}

	rows := []string{
		title,
		"",
		row(st, "Collections", fmt.Sprintf("%d", len(s.Collections))),
		row(st, "Pages", fmt.Sprintf("%d", totals.Pages)),
		row(st, "Links", fmt.Sprintf("%d", totals.Links)),
		row(st, "Downloaded", st.success.Render(fmt.Sprintf("%d", totals.Downloaded))),
		row(st, "Skipped", fmt.Sprintf("%d", totals.Skipped)),
		row(st, "Failed", failedValue(st, totals.Failed)),
		row(st, "Bytes", humanize.Bytes(uint64(totals.Bytes))),
		row(st, "Elapsed", formatDuration(s.Elapsed)),
	}
	if s.RunID != "" {
		rows = append(rows, row(st, "Run ID", st.dim.Render(s.RunID)))
	}

	var skipped []string
	for _, r := range s.Collections {
		if r.Err != nil {
			skipped = append(skipped, r.Collection)
		}
	}
	if len(skipped) > 0 {
		rows = append(rows, "", st.failure.Render("Not processed: "+strings.Join(skipped, ", ")))
	}

	return st.panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// PrintSummary prints the aggregate block
func (p *Printer) PrintSummary(s *harvest.Summary) {
	fmt.Fprintln(p.out, p.RenderSummary(s))
}

func row(st styles, label, value string) string {
	return fmt.Sprintf("%s %s", st.dim.Render(fmt.Sprintf("%-12s", label)), value)
}

func failedValue(st styles, n int) string {
	if n == 0 {
		return "0"
	}
	return st.failure.Render(fmt.Sprintf("%d", n))
}
