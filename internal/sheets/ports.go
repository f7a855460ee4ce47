package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// BudgetReport is a point-in-time export of one user's budget metrics.
type BudgetReport struct {
	UserID      string
	Year        int
	Month       int
	GeneratedAt time.Time
	Summary     core.BudgetSummary
	Metrics     []core.BudgetMetrics
}

// Ports for outbound adapters.
type (
	ReportWriter interface {
		// WriteBudgetReport replaces the user's report and returns the
		// written range reference.
		WriteBudgetReport(ctx context.Context, r BudgetReport) (rangeRef string, err error)
	}
)

// NewBudgetReport assembles a report from derived metrics.
func NewBudgetReport(userID string, metrics []core.BudgetMetrics, now time.Time) BudgetReport {
	return BudgetReport{
		UserID:      userID,
		Year:        now.Year(),
		Month:       int(now.Month()),
		GeneratedAt: now,
		Summary:     core.SummarizeBudgets(metrics),
		Metrics:     metrics,
	}
}
