package crawler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

type Crawler struct {
	fetcher Fetcher
	source  *url.URL
	now     func() time.Time
}

func New(fetcher Fetcher, sourceURL string) (*Crawler, error) {
	source, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	if source.Scheme == "" || source.Host == "" {
		return nil, fmt.Errorf("source URL must be absolute: %s", sourceURL)
	}

	return &Crawler{
		fetcher: fetcher,
		source:  source,
		now:     time.Now,
	}, nil
}

// WithClock replaces the time source used to resolve year-less dates.
func (c *Crawler) WithClock(now func() time.Time) *Crawler {
	c.now = now
	return c
}

func (c *Crawler) PageURL(page int) string {
	u := *c.source
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

type run struct {
	opts    Options
	sink    Sink
	summary Summary
	stop    bool
}

type detailResult struct {
	card Card
	data []byte
	err  error
}

// Run walks listing pages from opts.StartPage until a stop condition. The
// listing is newest-first, so the first known URL (incremental mode) and the
// first post older than the range start (ranged mode) end the whole run.
// Records reach the sink in (page, card) order whatever the fetch concurrency.
func (c *Crawler) Run(ctx context.Context, opts Options, sink Sink) (Summary, error) {
	if opts.Incremental {
		opts.StartPage = 1
	}
	opts.StartPage = max(opts.StartPage, 1)
	opts.Concurrency = cmp.Or(opts.Concurrency, DefaultConcurrency)
	if opts.Known == nil {
		opts.Known = RefSet{}
	}

	r := &run{opts: opts, sink: sink}

	slog.Info("Crawl started",
		"incremental", opts.Incremental,
		"start_page", opts.StartPage,
		"target_count", opts.TargetCount,
		"date_range", opts.DateRange != nil,
		"known_refs", len(opts.Known))

	for page := opts.StartPage; !r.stop; page++ {
		if opts.MaxPages > 0 && r.summary.PagesVisited >= opts.MaxPages {
			r.finish(StopMaxPages)
			break
		}

		if err := ctx.Err(); err != nil {
			return r.summary, fmt.Errorf("crawl interrupted on page %d: %w", page, err)
		}

		if err := c.crawlPage(ctx, r, page); err != nil {
			return r.summary, err
		}
	}

	slog.Info("Crawl finished",
		"items", r.summary.ItemsCollected,
		"pages", r.summary.PagesVisited,
		"stop_reason", r.summary.StopReason)

	return r.summary, nil
}

func (r *run) finish(reason string) {
	r.stop = true
	r.summary.StopReason = reason
}

func (r *run) targetReached() bool {
	return !r.opts.Incremental && r.opts.TargetCount > 0 && r.summary.ItemsCollected >= r.opts.TargetCount
}

func (c *Crawler) crawlPage(ctx context.Context, r *run, page int) error {
	data, err := c.fetcher.Fetch(ctx, c.PageURL(page))
	if errors.Is(err, ErrNotFound) {
		slog.Info("Listing page not found, source exhausted", "page", page)
		r.finish(StopSourceExhausted)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch listing page %d: %w", page, err)
	}
	r.summary.PagesVisited++

	cards, err := ParseListing(data, c.source)
	if err != nil {
		return fmt.Errorf("failed to parse listing page %d: %w", page, err)
	}

	if len(cards) == 0 {
		slog.Warn("No complaint cards on listing page, moving on", "page", page)
		return nil
	}

	slog.Debug("Listing page parsed", "page", page, "cards", len(cards))

	scheduled, duplicate := r.schedule(page, cards)

	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := c.fetchDetails(pageCtx, scheduled, r.opts.Concurrency)
	for i := range results {
		res := <-results[i]
		if err := c.processDetail(ctx, r, page, res); err != nil {
			return err
		}
		if r.stop {
			return nil
		}
	}

	if duplicate != "" {
		slog.Info("Known complaint reached, stopping incremental crawl", "page", page, "url", duplicate)
		r.summary.DuplicateURL = duplicate
		r.finish(StopDuplicateFound)
	}

	return nil
}

// schedule picks the cards whose details are fetched. In incremental mode the
// first known URL ends scheduling; cards before it are still processed.
func (r *run) schedule(page int, cards []Card) ([]Card, string) {
	var scheduled []Card

	for _, card := range cards {
		if r.targetReached() {
			r.finish(StopTargetReached)
			break
		}

		if card.URL == "" {
			slog.Warn("Complaint card has no URL", "page", page, "card", card.Index)
			continue
		}

		if r.opts.Known.Contains(card.URL) {
			if r.opts.Incremental {
				return scheduled, card.URL
			}
			slog.Debug("Skipping known complaint", "page", page, "card", card.Index, "url", card.URL)
			continue
		}

		scheduled = append(scheduled, card)
	}

	return scheduled, ""
}

// fetchDetails starts bounded concurrent fetches and hands back one channel
// per card, in card order.
func (c *Crawler) fetchDetails(ctx context.Context, cards []Card, limit int) []chan detailResult {
	results := make([]chan detailResult, len(cards))
	for i := range results {
		results[i] = make(chan detailResult, 1)
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(limit)
		for i, card := range cards {
			g.Go(func() error {
				data, err := c.fetcher.Fetch(ctx, card.URL)
				results[i] <- detailResult{card: card, data: data, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return results
}

func (c *Crawler) processDetail(ctx context.Context, r *run, page int, res detailResult) error {
	if r.targetReached() {
		r.finish(StopTargetReached)
		return nil
	}

	if res.err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("crawl interrupted: %w", ctx.Err())
		}
		slog.Warn("Failed to fetch complaint, skipping", "page", page, "card", res.card.Index, "url", res.card.URL, "error", res.err)
		return nil
	}

	detail, err := ParseDetail(res.data)
	if err != nil {
		slog.Warn("Failed to parse complaint, skipping", "url", res.card.URL, "error", err)
		return nil
	}

	if detail.DateText == "" {
		slog.Warn("Complaint has no date, skipping", "url", res.card.URL)
		return nil
	}

	occurredAt, err := ParseTurkishDate(detail.DateText, c.now())
	if err != nil {
		slog.Warn("Could not parse complaint date, skipping", "url", res.card.URL, "date", detail.DateText, "error", err)
		return nil
	}

	if dr := r.opts.DateRange; dr != nil {
		day := truncateDay(occurredAt)
		if day.Before(truncateDay(dr.Start)) {
			slog.Info("Complaint older than date range, stopping crawl", "url", res.card.URL, "date", occurredAt)
			r.finish(StopDateRangeExhausted)
			return nil
		}
		if day.After(truncateDay(dr.End)) {
			slog.Debug("Complaint newer than date range, skipping", "url", res.card.URL, "date", occurredAt)
			return nil
		}
	}

	record := Record{
		RefURL:     res.card.URL,
		Title:      detail.Title,
		FullText:   detail.Body,
		OccurredAt: occurredAt,
	}

	if err := r.sink.Emit(ctx, record); err != nil {
		return fmt.Errorf("failed to store complaint %s: %w", record.RefURL, err)
	}
	r.summary.ItemsCollected++

	slog.Debug("Complaint collected", "page", page, "card", res.card.Index, "url", record.RefURL, "date", occurredAt)

	if r.targetReached() {
		r.finish(StopTargetReached)
	}

	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
