package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadWithRetry(t *testing.T) {
	t.Parallel()

	delays := []time.Duration{time.Millisecond, time.Millisecond}
	req := crawlfront.NewRequest("http://example.com")

	t.Run("retries download errors until success", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		download := func(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection reset")
			}
			return &crawlfront.Response{URL: req.URL, Status: 200, Request: req}, nil
		}

		resp, err := crawl.DownloadWithRetry(context.Background(), req, download, nil, delays)

		require.NoError(t, err)
		assert.Equal(t, 200, resp.Status)
		assert.Equal(t, 3, attempts)
	})

	t.Run("returns the last error after all attempts", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		download := func(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error) {
			attempts++
			return nil, errors.New("connection reset")
		}

		_, err := crawl.DownloadWithRetry(context.Background(), req, download, nil, delays)

		assert.EqualError(t, err, "connection reset")
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry error statuses", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		download := func(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error) {
			attempts++
			return &crawlfront.Response{URL: req.URL, Status: 503, Request: req}, nil
		}

		resp, err := crawl.DownloadWithRetry(context.Background(), req, download, nil, delays)

		require.NoError(t, err)
		assert.Equal(t, 503, resp.Status)
		assert.Equal(t, 1, attempts)
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		download := func(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error) {
			attempts++
			cancel()
			return nil, ctx.Err()
		}

		_, err := crawl.DownloadWithRetry(ctx, req, download, nil, delays)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})
}

func TestRetryDelays_doubles_each_step(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, crawl.RetryDelays(3, time.Second))
	assert.Empty(t, crawl.RetryDelays(0, time.Second))
}
