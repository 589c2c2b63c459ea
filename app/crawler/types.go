package crawler

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("page not found")

const (
	StopDuplicateFound     = "duplicate_found"
	StopDateRangeExhausted = "date_range_exhausted"
	StopTargetReached      = "target_count_reached"
	StopSourceExhausted    = "source_exhausted"
	StopMaxPages           = "max_pages_reached"
)

// RefSet is a membership oracle over reference URLs known before the run.
type RefSet map[string]struct{}

func NewRefSet(urls []string) RefSet {
	set := make(RefSet, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set
}

func (s RefSet) Contains(url string) bool {
	_, ok := s[url]
	return ok
}

// DateRange bounds a ranged crawl by calendar day, both ends inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type Options struct {
	Incremental bool
	StartPage   int
	TargetCount int
	DateRange   *DateRange
	Known       RefSet
	Concurrency int
	MaxPages    int
}

type Record struct {
	RefURL     string
	Title      string
	FullText   string
	OccurredAt time.Time
}

type Summary struct {
	ItemsCollected int
	PagesVisited   int
	StopReason     string
	DuplicateURL   string
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Sink receives records in listing order.
type Sink interface {
	Emit(ctx context.Context, record Record) error
}

type SinkFunc func(ctx context.Context, record Record) error

func (f SinkFunc) Emit(ctx context.Context, record Record) error {
	return f(ctx, record)
}
