package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ipon/internal/amqp"
	"ipon/internal/backend"
	"ipon/internal/config"
	applog "ipon/internal/log"
	gsheet "ipon/internal/sheets/google"
	"ipon/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	applog.Setup()

	slog.Info("Starting ipon-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	expected, err := cfg.ExpectedAmount()
	if err != nil {
		slog.Error("Invalid expected monthly amount", "error", err, "value", cfg.ExpectedMonthlyAmount)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := backend.New(ctx, backend.Config{
		Type:          backend.Type(cfg.DataBackend),
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		SQLiteDBPath:  cfg.SQLiteDBPath,
	})
	if err != nil {
		slog.Error("Failed to initialize store backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer st.Close()

	if cfg.GoogleSpreadsheetID == "" {
		slog.Error("GOOGLE_SPREADSHEET_ID is required for the report worker")
		os.Exit(1)
	}
	sheetsClient, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		slog.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	slog.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	reportWorker := worker.NewReportWorker(st, sheetsClient, expected, cfg.SyncInterval)

	// Write the current state once at startup so a restarted worker
	// converges before the first event or tick.
	if err := reportWorker.SyncCurrentMonth(ctx); err != nil {
		slog.Error("Startup report sync failed", "error", err)
	}

	// AMQP consumption is optional; the periodic sync alone keeps the sheet
	// eventually consistent.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		slog.Info("AMQP disabled - relying on periodic sync only")
	}

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeLedgerEvents(gctx, reportWorker.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		err := reportWorker.RunPeriodicSync(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Worker error", "error", err)
		os.Exit(1)
	}

	slog.Info("Worker stopped gracefully")
}
