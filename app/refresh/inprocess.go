package refresh

import (
	"context"
	"fmt"

	"github.com/lysyi3m/complaint-comb/app/crawler"
	"github.com/lysyi3m/complaint-comb/app/database"
)

// InProcessRunner crawls in the current process and writes straight to the store.
type InProcessRunner struct {
	crawler     *crawler.Crawler
	store       database.ComplaintStore
	concurrency int
	maxPages    int
}

func NewInProcessRunner(c *crawler.Crawler, store database.ComplaintStore, concurrency, maxPages int) *InProcessRunner {
	return &InProcessRunner{
		crawler:     c,
		store:       store,
		concurrency: concurrency,
		maxPages:    maxPages,
	}
}

func (r *InProcessRunner) Run(ctx context.Context, known crawler.RefSet) (Progress, error) {
	sink := NewStoreSink(r.store)

	summary, err := r.crawler.Run(ctx, crawler.Options{
		Incremental: true,
		StartPage:   1,
		Known:       known,
		Concurrency: r.concurrency,
		MaxPages:    r.maxPages,
	}, sink)

	progress := Progress{
		ItemsScraped: sink.Inserted,
		StopReason:   summary.StopReason,
		DuplicateURL: summary.DuplicateURL,
	}
	if err != nil {
		return progress, fmt.Errorf("crawl failed: %w", err)
	}

	return progress, nil
}
