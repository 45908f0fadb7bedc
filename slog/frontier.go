// Package slog provides logging decorators for the frontier and the
// downloader.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/crawlfront"
)

// Ensure LoggingFrontier implements crawlfront.Frontier.
var _ crawlfront.Frontier = (*LoggingFrontier)(nil)

// LoggingFrontier wraps a Frontier with logging. Lifecycle calls are
// logged at info level, per-batch calls at debug level.
type LoggingFrontier struct {
	next   crawlfront.Frontier
	logger *slog.Logger
}

// NewLoggingFrontier creates a new LoggingFrontier.
func NewLoggingFrontier(next crawlfront.Frontier, logger *slog.Logger) *LoggingFrontier {
	return &LoggingFrontier{next: next, logger: logger}
}

// Start delegates to the wrapped frontier and logs the operation.
func (f *LoggingFrontier) Start(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		f.logger.Info("frontier start", "duration", time.Since(begin), "err", err)
	}(time.Now())
	return f.next.Start(ctx)
}

// Stop delegates to the wrapped frontier and logs the operation.
func (f *LoggingFrontier) Stop(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		f.logger.Info("frontier stop", "duration", time.Since(begin), "err", err)
	}(time.Now())
	return f.next.Stop(ctx)
}

// AddSeeds delegates to the wrapped frontier and logs the operation.
func (f *LoggingFrontier) AddSeeds(ctx context.Context, seeds []*crawlfront.FrontierRequest) (err error) {
	defer func(begin time.Time) {
		f.logger.Info("frontier add seeds",
			"count", len(seeds),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.AddSeeds(ctx, seeds)
}

// GetNextRequests delegates to the wrapped frontier and logs the operation.
func (f *LoggingFrontier) GetNextRequests(ctx context.Context, maxCount int, keyType crawlfront.KeyType, overusedKeys []string) (reqs []*crawlfront.FrontierRequest, err error) {
	defer func(begin time.Time) {
		f.logger.Debug("frontier get next requests",
			"max", maxCount,
			"key_type", string(keyType),
			"overused", len(overusedKeys),
			"count", len(reqs),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.GetNextRequests(ctx, maxCount, keyType, overusedKeys)
}

// PageCrawled delegates to the wrapped frontier and logs the operation.
func (f *LoggingFrontier) PageCrawled(ctx context.Context, resp *crawlfront.FrontierResponse) (err error) {
	defer func(begin time.Time) {
		f.logger.Debug("frontier page crawled",
			"url", resp.URL,
			"status", resp.StatusCode,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.PageCrawled(ctx, resp)
}

// LinksExtracted delegates to the wrapped frontier and logs the operation.
func (f *LoggingFrontier) LinksExtracted(ctx context.Context, req *crawlfront.FrontierRequest, links []*crawlfront.FrontierRequest) (err error) {
	defer func(begin time.Time) {
		f.logger.Debug("frontier links extracted",
			"url", req.URL,
			"count", len(links),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.LinksExtracted(ctx, req, links)
}

// RequestError delegates to the wrapped frontier and logs the operation.
func (f *LoggingFrontier) RequestError(ctx context.Context, req *crawlfront.FrontierRequest, errKind string) (err error) {
	defer func(begin time.Time) {
		f.logger.Debug("frontier request error",
			"url", req.URL,
			"kind", errKind,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.RequestError(ctx, req, errKind)
}

// Finished delegates to the wrapped frontier.
func (f *LoggingFrontier) Finished() bool {
	return f.next.Finished()
}

// AutoStart delegates to the wrapped frontier.
func (f *LoggingFrontier) AutoStart() bool {
	return f.next.AutoStart()
}
