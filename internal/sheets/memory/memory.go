package memory

import (
	"context"
	"fmt"
	"sync"

	ports "fintrack/internal/sheets"
)

// Writer keeps the latest report per user in memory.
type Writer struct {
	mu      sync.Mutex
	reports map[string]ports.BudgetReport
	rows    map[string][][]any
	writes  int
}

var _ ports.ReportWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{reports: map[string]ports.BudgetReport{}, rows: map[string][][]any{}}
}

func (w *Writer) WriteBudgetReport(_ context.Context, r ports.BudgetReport) (string, error) {
	if r.UserID == "" {
		return "", fmt.Errorf("report without user id")
	}
	rows := ports.ReportRows(r)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports[r.UserID] = r
	w.rows[r.UserID] = rows
	w.writes++
	return fmt.Sprintf("mem:%s!A1:G%d", r.UserID, len(rows)), nil
}

// Last returns the most recent report written for userID.
func (w *Writer) Last(userID string) (ports.BudgetReport, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.reports[userID]
	return r, ok
}

// Rows returns the rendered rows of the user's latest report.
func (w *Writer) Rows(userID string) [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows[userID]
}

// Writes counts successful writes.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
