package sheets

import (
	"fmt"
	"time"
)

// ReportHeader is the first row of an exported budget report.
var ReportHeader = []any{"Budget", "Category", "Budgeted", "Spent", "Remaining", "Used %", "Status"}

// ReportRows renders a report as spreadsheet rows: a title row, the header,
// one row per budget and a totals row. Amounts are decimal strings so the
// sheet parses them as numbers with USER_ENTERED input.
func ReportRows(r BudgetReport) [][]any {
	rows := make([][]any, 0, len(r.Metrics)+4)
	rows = append(rows,
		[]any{fmt.Sprintf("Budgets %04d-%02d", r.Year, r.Month), "Generated " + r.GeneratedAt.UTC().Format(time.RFC3339)},
		ReportHeader,
	)
	for _, m := range r.Metrics {
		rows = append(rows, []any{
			m.Budget.Name,
			m.CategoryName,
			m.Budget.Amount.String(),
			m.ActualSpent.String(),
			m.Remaining.String(),
			fmt.Sprintf("%.1f", m.PercentRaw),
			string(m.Status),
		})
	}
	s := r.Summary
	rows = append(rows, []any{
		"Total",
		fmt.Sprintf("%d over, %d warning", s.OverCount, s.WarningCount),
		s.TotalBudgeted.String(),
		s.TotalSpent.String(),
		s.TotalRemaining.String(),
		fmt.Sprintf("%.1f", s.PercentUsed),
		"",
	})
	return rows
}
