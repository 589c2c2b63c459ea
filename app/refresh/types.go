package refresh

import (
	"context"

	"github.com/lysyi3m/complaint-comb/app/crawler"
)

// Progress is what a crawl reports back to the process that started it.
type Progress struct {
	ItemsScraped int
	StopReason   string
	DuplicateURL string
}

// Runner performs one incremental crawl against a snapshot of known URLs.
type Runner interface {
	Run(ctx context.Context, known crawler.RefSet) (Progress, error)
}
