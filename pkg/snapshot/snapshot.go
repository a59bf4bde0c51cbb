// Package snapshot persists cell registry snapshots.
//
// A snapshot is the JSON image of a store.Store: every registered cell's
// current value keyed by name. Backends are pluggable; DiskStore writes
// a local file and S3Store writes an object, both the same JSON
// document. The Runner saves on an interval and can restore registered
// sources at startup.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cellgraph-dev/cellgraph/pkg/store"
)

// ErrNone is returned by Load when no snapshot has been saved yet.
var ErrNone = errors.New("snapshot: no snapshot available")

// Store is the interface for snapshot storage backends.
// Implement this interface to use disk, S3, or other storage.
type Store interface {
	// Save persists the snapshot, replacing any previous one.
	Save(ctx context.Context, snap map[string]any) error

	// Load returns the most recently saved snapshot.
	// Returns ErrNone when nothing has been saved.
	Load(ctx context.Context) (map[string]any, error)
}

// Runner periodically snapshots a cell registry into a backend.
type Runner struct {
	store    *store.Store
	backend  Store
	interval time.Duration
	logger   *slog.Logger
}

// NewRunner creates a snapshot runner.
// A zero interval defaults to one minute.
func NewRunner(st *store.Store, backend Store, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    st,
		backend:  backend,
		interval: interval,
		logger:   logger,
	}
}

// Restore loads the latest snapshot and sets every registered source
// from it. Derived cells and names no longer registered are skipped;
// restoring is best-effort by design since derived values recompute
// from their sources anyway.
func (r *Runner) Restore(ctx context.Context) error {
	snap, err := r.backend.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNone) {
			return nil
		}
		return fmt.Errorf("snapshot: restore: %w", err)
	}

	for name, value := range snap {
		raw, err := json.Marshal(value)
		if err != nil {
			r.logger.Warn("skipping unrestorable value", "cell", name, "error", err)
			continue
		}
		if err := r.store.SetJSON(name, raw); err != nil {
			if errors.Is(err, store.ErrReadOnly) || errors.Is(err, store.ErrNotFound) {
				continue
			}
			r.logger.Warn("restore failed for cell", "cell", name, "error", err)
		}
	}

	r.logger.Info("snapshot restored", "cells", len(snap))
	return nil
}

// Run saves snapshots on the configured interval until ctx is done,
// then takes one final snapshot.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.save(ctx)
		case <-ctx.Done():
			// Final snapshot on the way out; the parent context is
			// done, so give the backend its own deadline.
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			r.save(final)
			cancel()
			return
		}
	}
}

// save takes and persists one snapshot.
func (r *Runner) save(ctx context.Context) {
	snap, err := r.store.Snapshot()
	if err != nil {
		r.logger.Warn("partial snapshot", "error", err)
	}
	if err := r.backend.Save(ctx, snap); err != nil {
		r.logger.Error("snapshot save failed", "error", err)
		return
	}
	r.logger.Debug("snapshot saved", "cells", len(snap))
}
