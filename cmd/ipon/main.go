package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ipon/internal/amqp"
	"ipon/internal/backend"
	"ipon/internal/config"
	apphttp "ipon/internal/http"
	applog "ipon/internal/log"
	"ipon/internal/media"
	"ipon/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	applog.Setup()

	slog.Info("Starting ipon server")

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

	// Proof uploads are optional; without Cloudinary credentials the API
	// rejects contributions that attach a file.
	var uploader media.Uploader
	if cfg.CloudinaryCloudName != "" {
		cl, err := media.NewCloudinaryClient(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset)
		if err != nil {
			slog.Error("Failed to initialize Cloudinary client", "error", err)
			os.Exit(1)
		}
		uploader = cl
		slog.Info("Cloudinary uploads enabled", "cloud_name", cfg.CloudinaryCloudName)
	} else {
		slog.Info("Cloudinary uploads disabled - no CLOUDINARY_CLOUD_NAME provided")
	}

	// AMQP is optional; without it, consumers rely on their periodic resync.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		slog.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		slog.Info("AMQP disabled - no AMQP_URL provided")
	}

	tracker := services.NewTracker(st, uploader, amqpClient)
	defer tracker.Close()

	cache := services.NewSnapshotCache()

	srv := apphttp.NewServer(":"+cfg.Port, tracker, cache, st, expected)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := cache.Run(gctx, st)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped gracefully")
}
