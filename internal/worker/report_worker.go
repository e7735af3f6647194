// Package worker keeps the group's shared spreadsheet in sync with the
// ledger. It recomputes the current month's compliance report whenever a
// ledger event arrives and on a periodic timer as a backup for lost events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ipon/internal/amqp"
	"ipon/internal/core"
	"ipon/internal/report"
	"ipon/internal/sheets"
	"ipon/internal/store"
)

type ReportWorker struct {
	store    store.Store
	writer   sheets.ReportWriter
	expected core.Money
	interval time.Duration

	// now is replaceable in tests to pin the current month.
	now func() time.Time
}

func NewReportWorker(st store.Store, writer sheets.ReportWriter, expected core.Money, interval time.Duration) *ReportWorker {
	return &ReportWorker{
		store:    st,
		writer:   writer,
		expected: expected,
		interval: interval,
		now:      time.Now,
	}
}

// SetClock replaces the worker's clock. Test hook.
func (w *ReportWorker) SetClock(now func() time.Time) { w.now = now }

// HandleLedgerEvent reacts to a single change event. The event only says that
// something changed; the report is always recomputed from the store.
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"entity", event.Entity,
		"op", event.Op,
		"id", event.ID)

	return w.SyncCurrentMonth(ctx)
}

// SyncCurrentMonth recomputes the report for the month containing now and
// rewrites the spreadsheet mirror.
func (w *ReportWorker) SyncCurrentMonth(ctx context.Context) error {
	now := w.now()
	return w.syncMonth(ctx, int(now.Month()), now.Year())
}

func (w *ReportWorker) syncMonth(ctx context.Context, month, year int) error {
	members, err := w.store.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	contributions, err := w.store.ListContributions(ctx)
	if err != nil {
		return fmt.Errorf("list contributions: %w", err)
	}

	monthly, err := report.Monthly(members, contributions, month, year, w.expected)
	if err != nil {
		return fmt.Errorf("build monthly report: %w", err)
	}

	ref, err := w.writer.WriteMonthlyReport(ctx, *monthly)
	if err != nil {
		return fmt.Errorf("write monthly report: %w", err)
	}

	slog.InfoContext(ctx, "Synced monthly report",
		"month", month,
		"year", year,
		"members", len(monthly.Members),
		"total_collected", monthly.TotalCollected.String(),
		"ref", ref)

	return nil
}

// RunPeriodicSync rewrites the report on a fixed interval until ctx is done.
// This is the backup path for lost or unconfigured AMQP delivery; failures
// are logged and retried on the next tick.
func (w *ReportWorker) RunPeriodicSync(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Started periodic report sync", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic report sync", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.SyncCurrentMonth(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic report sync failed", "error", err)
			}
		}
	}
}
