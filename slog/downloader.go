package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/crawlfront"
)

// Ensure LoggingDownloader implements crawlfront.Downloader.
var _ crawlfront.Downloader = (*LoggingDownloader)(nil)

// LoggingDownloader wraps a Downloader with debug logging.
type LoggingDownloader struct {
	next   crawlfront.Downloader
	logger *slog.Logger
}

// NewLoggingDownloader creates a new LoggingDownloader.
func NewLoggingDownloader(next crawlfront.Downloader, logger *slog.Logger) *LoggingDownloader {
	return &LoggingDownloader{next: next, logger: logger}
}

// KeyType delegates to the wrapped downloader.
func (d *LoggingDownloader) KeyType() crawlfront.KeyType {
	return d.next.KeyType()
}

// Slots delegates to the wrapped downloader.
func (d *LoggingDownloader) Slots() []crawlfront.Slot {
	return d.next.Slots()
}

// Download delegates to the wrapped downloader and logs the operation.
func (d *LoggingDownloader) Download(ctx context.Context, req *crawlfront.Request) (resp *crawlfront.Response, err error) {
	defer func(begin time.Time) {
		var status, size int
		if resp != nil {
			status, size = resp.Status, len(resp.Body)
		}
		d.logger.Debug("download",
			"url", req.URL,
			"method", req.Method,
			"status", status,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return d.next.Download(ctx, req)
}
