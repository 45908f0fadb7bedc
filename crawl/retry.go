package crawl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fwojciec/crawlfront"
)

// DownloadFunc is the signature for a download function.
type DownloadFunc func(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error)

// DefaultRetryDelays returns the backoff delays for download retries: 1s, 2s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second}
}

// RetryDelays returns n exponential backoff delays starting at base.
func RetryDelays(n int, base time.Duration) []time.Duration {
	delays := make([]time.Duration, n)
	for i := range delays {
		delays[i] = base << i
	}
	return delays
}

// DownloadWithRetry downloads req, retrying download errors with the given
// delays between attempts. HTTP error statuses are responses and are not
// retried. Context errors are returned immediately.
func DownloadWithRetry(ctx context.Context, req *crawlfront.Request, download DownloadFunc, logger *slog.Logger, delays []time.Duration) (*crawlfront.Response, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := download(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if attempt >= maxAttempts-1 {
			break
		}

		if logger != nil {
			logger.Debug("retrying download", "url", req.URL, "attempt", attempt+2, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return nil, lastErr
}
