// Package memory provides an in-memory ReportWriter for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ipon/internal/core"
	ports "ipon/internal/sheets"
)

type Writer struct {
	mu      sync.Mutex
	reports []core.MonthlyReport
}

var _ ports.ReportWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

func (w *Writer) WriteMonthlyReport(_ context.Context, report core.MonthlyReport) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, report)
	return fmt.Sprintf("memory://reports/%d", len(w.reports)), nil
}

// Reports returns a copy of everything written so far.
func (w *Writer) Reports() []core.MonthlyReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.MonthlyReport, len(w.reports))
	copy(out, w.reports)
	return out
}

// Last returns the most recent report, or false if none was written.
func (w *Writer) Last() (core.MonthlyReport, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.reports) == 0 {
		return core.MonthlyReport{}, false
	}
	return w.reports[len(w.reports)-1], true
}
