package crawl_test

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/mock"
)

// newSpider returns a spider with parse, parse2 and errback handlers that
// yield nothing.
func newSpider(name string) *mock.Spider {
	h := crawlfront.NewHandlers()
	h.Handle("parse", noop)
	h.Handle("parse2", noop)
	h.HandleError("errback", func(ctx context.Context, f *crawlfront.Failure) ([]crawlfront.Output, error) {
		return nil, nil
	})
	return &mock.Spider{SpiderName: name, HandlerTable: h}
}

func noop(ctx context.Context, resp *crawlfront.Response) ([]crawlfront.Output, error) {
	return nil, nil
}

// newBufferLogger returns a logger writing JSON lines to the returned buffer.
func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}
