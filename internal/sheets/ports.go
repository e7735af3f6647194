// Package sheets defines the spreadsheet port the report sync worker writes
// through. The group keeps a shared spreadsheet as a human-readable mirror of
// the monthly compliance report.
package sheets

import (
	"context"

	"ipon/internal/core"
)

// ReportWriter replaces the report sheet's contents with the given monthly
// report and returns a reference to the written range.
type ReportWriter interface {
	WriteMonthlyReport(ctx context.Context, report core.MonthlyReport) (string, error)
}
