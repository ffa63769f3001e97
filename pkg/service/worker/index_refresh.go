package worker

import (
	"context"
	"time"

	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

// Rebuilder rebuilds the vector index from fresh source data.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// IndexRefreshWorker rebuilds the vector index on a fixed interval so the
// service keeps answering over recent member messages without manual
// cache clearing.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or leader election
type IndexRefreshWorker struct {
	index    Rebuilder
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewIndexRefreshWorker creates a new worker for periodic index rebuilds
func NewIndexRefreshWorker(index Rebuilder, interval time.Duration) *IndexRefreshWorker {
	return &IndexRefreshWorker{
		index:    index,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop. It does not block server startup
// and does not run an initial rebuild: the first build happens lazily on the
// first request or through warmup.
func (w *IndexRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("Index refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *IndexRefreshWorker) Stop() {
	logging.Default().Info("Index refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Index refresh worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *IndexRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			if err := w.index.Rebuild(ctx); err != nil {
				// A failed rebuild keeps the previous index active, so the
				// worker just retries on the next tick.
				logging.Default().Error("Index refresh failed (will retry next interval)",
					"error", err.Error())
				continue
			}
			logging.Default().Info("Index refreshed",
				"duration", time.Since(start).String())

		case <-w.stopCh:
			logging.Default().Info("Index refresh worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Index refresh worker context cancelled")
			return
		}
	}
}
