// Package backend selects and constructs the document-store implementation
// the tracker runs against.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ipon/internal/store"
	"ipon/internal/store/memory"
	mongostore "ipon/internal/store/mongo"
	sqlitestore "ipon/internal/store/sqlite"
)

// Type names a store backend.
type Type string

const (
	Mongo  Type = "mongo"
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) String() string { return string(t) }

// IsValid returns true for a known backend type.
func (t Type) IsValid() bool {
	switch t {
	case Mongo, SQLite, Memory:
		return true
	default:
		return false
	}
}

// Config holds what each backend needs to come up.
type Config struct {
	Type Type

	MongoURI      string
	MongoDatabase string

	SQLiteDBPath string
}

// New constructs the configured store. The returned Store owns its resources;
// callers Close it on shutdown.
func New(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Type {
	case Mongo:
		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("initialize mongo backend: %w", err)
		}
		slog.Info("Initialized mongo backend", "database", cfg.MongoDatabase)
		return s, nil

	case SQLite:
		s, err := sqlitestore.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		slog.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return s, nil

	case Memory:
		slog.Info("Initialized memory backend")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("invalid backend type: %q", cfg.Type)
	}
}
