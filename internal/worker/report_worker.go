package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
)

// MetricsSource derives budget metrics for a user. Invalidate drops any
// cached metrics so the next call reads storage.
type MetricsSource interface {
	Metrics(ctx context.Context, userID string, sorted bool) ([]core.BudgetMetrics, error)
	Invalidate(userID string)
}

// ReportWorker exports a user's budget report whenever an event changes
// their budget metrics.
type ReportWorker struct {
	source MetricsSource
	writer sheets.ReportWriter
	now    func() time.Time
	logger *applog.Logger
}

func NewReportWorker(source MetricsSource, writer sheets.ReportWriter, now func() time.Time, logger *applog.Logger) *ReportWorker {
	if now == nil {
		now = time.Now
	}
	return &ReportWorker{
		source: source,
		writer: writer,
		now:    now,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent satisfies events.Handler. Events that cannot change budget
// metrics are acknowledged without writing.
func (w *ReportWorker) HandleEvent(ctx context.Context, ev events.Event) error {
	if !ev.Type.AffectsBudgets() {
		w.logger.DebugContext(ctx, "Skipping event", applog.FieldEventType, ev.Type, applog.FieldUserID, ev.UserID)
		return nil
	}
	return w.Export(ctx, ev.UserID)
}

// Export recomputes and writes the report for one user. Writes come from
// other processes, so cached metrics are dropped first.
func (w *ReportWorker) Export(ctx context.Context, userID string) error {
	start := time.Now()
	w.source.Invalidate(userID)
	metrics, err := w.source.Metrics(ctx, userID, true)
	if err != nil {
		return fmt.Errorf("derive metrics for %s: %w", userID, err)
	}

	report := sheets.NewBudgetReport(userID, metrics, w.now())
	ref, err := w.writer.WriteBudgetReport(ctx, report)
	if err != nil {
		return fmt.Errorf("write report for %s: %w", userID, err)
	}

	w.logger.InfoContext(ctx, "Exported budget report",
		applog.FieldUserID, userID,
		applog.FieldSheetsRange, ref,
		applog.FieldCount, len(metrics),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
