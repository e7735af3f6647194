package services

import (
	"context"
	"log/slog"
	"sync"

	"ipon/internal/store"
)

// SnapshotCache holds the latest store snapshot pushed through a
// subscription. Read paths serve from here so a slow or flaky backend never
// blocks a request; the cache is only ever replaced by confirmed store state.
type SnapshotCache struct {
	mu       sync.RWMutex
	snapshot store.Snapshot
	ready    bool
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{}
}

// Set replaces the cached snapshot.
func (c *SnapshotCache) Set(s store.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = s
	c.ready = true
}

// Get returns the cached snapshot and whether one has arrived yet.
func (c *SnapshotCache) Get() (store.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.ready
}

// Ready reports whether at least one snapshot has been received.
func (c *SnapshotCache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Run subscribes to the store and keeps the cache current until ctx is done
// or the subscription fails.
func (c *SnapshotCache) Run(ctx context.Context, st store.Store) error {
	sub, err := st.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-sub.Snapshots():
			if !ok {
				if err := sub.Err(); err != nil {
					slog.ErrorContext(ctx, "Snapshot feed failed", "error", err)
					return err
				}
				return nil
			}
			c.Set(snap)
			slog.DebugContext(ctx, "Snapshot updated",
				"members", len(snap.Members),
				"contributions", len(snap.Contributions))
		}
	}
}
