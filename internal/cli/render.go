package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fintrack/internal/core"
)

var (
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	SubtleColor  = lipgloss.Color("#666666")

	TitleStyle   = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
)

const barWidth = 20

// StatusStyle picks the style used to print a budget status.
func StatusStyle(s core.BudgetStatus) lipgloss.Style {
	switch s {
	case core.StatusOver:
		return ErrorStyle
	case core.StatusWarning:
		return WarningStyle
	default:
		return SuccessStyle
	}
}

// ProgressBar draws a fixed-width bar for a display percentage in [0, 100].
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// RenderMetrics writes one aligned row per budget.
func RenderMetrics(w io.Writer, metrics []core.BudgetMetrics) error {
	if len(metrics) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No active budgets."))
		return err
	}

	rows := make([][]string, 0, len(metrics)+1)
	rows = append(rows, []string{
		HeaderStyle.Render("Budget"),
		HeaderStyle.Render("Category"),
		HeaderStyle.Render("Spent"),
		HeaderStyle.Render("Budgeted"),
		HeaderStyle.Render("Used"),
		HeaderStyle.Render("Status"),
	})
	for _, m := range metrics {
		rows = append(rows, []string{
			m.Budget.Name,
			m.CategoryName,
			m.ActualSpent.String(),
			m.Budget.Amount.String(),
			fmt.Sprintf("%s %5.1f%%", ProgressBar(m.Percentage, barWidth), m.PercentRaw),
			StatusStyle(m.Status).Render(string(m.Status)),
		})
	}
	return writeColumns(w, rows, 2)
}

// writeColumns left-aligns cells that may carry ANSI styling. Widths are
// measured with lipgloss so escape sequences take no room.
func writeColumns(w io.Writer, rows [][]string, gap int) error {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for _, row := range rows {
		b.Reset()
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+gap))
			}
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// RenderSummary writes the aggregate line printed under the budget table.
func RenderSummary(w io.Writer, s core.BudgetSummary) error {
	_, err := fmt.Fprintf(w, "%s\n%s of %s spent (%.1f%%), %s remaining\n%s  %s  %s\n",
		TitleStyle.Render(fmt.Sprintf("%d budgets", s.BudgetCount)),
		s.TotalSpent, s.TotalBudgeted, s.PercentUsed, s.TotalRemaining,
		ErrorStyle.Render(fmt.Sprintf("%d over", s.OverCount)),
		WarningStyle.Render(fmt.Sprintf("%d warning", s.WarningCount)),
		SuccessStyle.Render(fmt.Sprintf("%d good", s.GoodCount)))
	return err
}

// RenderAlerts lists budgets that need attention.
func RenderAlerts(w io.Writer, alerts []core.BudgetAlert) error {
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(w, SuccessStyle.Render("All budgets on track."))
		return err
	}
	for _, a := range alerts {
		line := fmt.Sprintf("%s (%s): %s of %s, %.1f%%", a.BudgetName, a.Category, a.Spent, a.Amount, a.Percent)
		if _, err := fmt.Fprintln(w, StatusStyle(a.Status).Render(line)); err != nil {
			return err
		}
	}
	return nil
}
