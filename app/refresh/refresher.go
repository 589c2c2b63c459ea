package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/complaint-comb/app/crawler"
	"github.com/lysyi3m/complaint-comb/app/database"
)

const DefaultTimeout = 300 * time.Second

// Refresher brings the store up to date with the newest complaints. Only one
// refresh runs at a time; callers that arrive during a run wait for it.
type Refresher struct {
	store   database.ComplaintStore
	runner  Runner
	timeout time.Duration

	mu sync.Mutex
}

func NewRefresher(store database.ComplaintStore, runner Runner, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Refresher{store: store, runner: runner, timeout: timeout}
}

// Refresh snapshots the known reference URLs and runs one incremental crawl
// bounded by the refresher timeout.
func (r *Refresher) Refresh(ctx context.Context) (Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	urls, err := r.store.AllRefURLs(ctx)
	if err != nil {
		return Progress{}, fmt.Errorf("failed to load known URLs: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	progress, err := r.runner.Run(runCtx, crawler.NewRefSet(urls))
	if err != nil {
		slog.Error("Refresh failed", "error", err, "duration", time.Since(start))
		return progress, err
	}

	slog.Info("Refresh completed",
		"new_records", progress.ItemsScraped,
		"stop_reason", progress.StopReason,
		"duration", time.Since(start))

	return progress, nil
}
