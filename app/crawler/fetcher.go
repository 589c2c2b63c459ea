package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxResponseBodyBytes = 10 * 1024 * 1024
	defaultMaxRetries    = 3
	maxRetryDelay        = 30 * time.Second
)

type httpStatusError struct {
	code   int
	status string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.code, e.status)
}

// retryable reports whether a later attempt could succeed.
func (e *httpStatusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// HTTPFetcher issues polite GET requests: one token per request from a shared
// limiter, exponential backoff on 429 and 5xx, and ErrNotFound on 404.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
}

func NewHTTPFetcher(client *http.Client, userAgent string, delay time.Duration) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	return &HTTPFetcher{
		client:     client,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: defaultMaxRetries,
		baseDelay:  time.Second,
	}
}

// WithRetries overrides the retry budget and the first backoff step.
func (f *HTTPFetcher) WithRetries(maxRetries int, baseDelay time.Duration) *HTTPFetcher {
	f.maxRetries = maxRetries
	f.baseDelay = baseDelay
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := f.baseDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			slog.Debug("Retrying fetch", "url", url, "attempt", attempt, "delay", delay.String(), "error", lastErr)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		data, err := f.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return nil, err
		}

		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("failed to fetch %s after %d retries: %w", url, f.maxRetries, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{code: resp.StatusCode, status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
