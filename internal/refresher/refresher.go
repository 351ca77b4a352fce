// Package refresher recomputes pipeline snapshots on a fixed interval and
// holds the latest result per model, so dashboards read a recent snapshot
// instead of fanning a query burst at the warehouse on every page load.
package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/usecase"
	"docconsole/internal/observability/metrics"
)

type catalogLister interface {
	List(ctx context.Context) ([]domain.Model, error)
}

type snapshotter interface {
	Snapshot(ctx context.Context, modelName string) (usecase.PipelineSnapshot, error)
}

// Refresher drives the scheduled snapshot loop. One refresh cycle walks
// every cataloged model; a model's failure is logged and counted but never
// stops the cycle or evicts that model's previous snapshot.
type Refresher struct {
	catalog  catalogLister
	status   snapshotter
	interval time.Duration
	metrics  *metrics.ConsoleMetrics

	mu     sync.RWMutex
	latest map[string]usecase.PipelineSnapshot
}

func New(catalog catalogLister, status snapshotter, interval time.Duration, m *metrics.ConsoleMetrics) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{
		catalog:  catalog,
		status:   status,
		interval: interval,
		metrics:  m,
		latest:   make(map[string]usecase.PipelineSnapshot),
	}
}

// Run refreshes once immediately, then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	r.RefreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll recomputes the snapshot for every cataloged model.
func (r *Refresher) RefreshAll(ctx context.Context) {
	models, err := r.catalog.List(ctx)
	if err != nil {
		slog.Error("snapshot_refresh_catalog_failed", "error", err)
		if r.metrics != nil {
			r.metrics.RecordSnapshotRefresh("refresher", "catalog", "error")
		}
		return
	}

	for _, model := range models {
		name := model.Name
		snap, err := r.status.Snapshot(ctx, name)
		if err != nil {
			slog.Warn("snapshot_refresh_failed", "model", name, "error", err)
			if r.metrics != nil {
				r.metrics.RecordSnapshotRefresh("refresher", name, "error")
			}
			continue
		}

		r.mu.Lock()
		r.latest[name] = snap
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.RecordSnapshotRefresh("refresher", name, "ok")
		}
		slog.Info("snapshot_refreshed", "model", name, "stages", len(snap.Stages), "diagnostics", len(snap.Diagnostics))
	}
}

// Latest returns the most recent snapshot for the model, if one exists.
func (r *Refresher) Latest(modelName string) (usecase.PipelineSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.latest[modelName]
	return snap, ok
}
