package mock

import (
	"context"

	"github.com/fwojciec/crawlfront"
)

var _ crawlfront.Frontier = (*Frontier)(nil)

// Frontier is a mock implementation of crawlfront.Frontier.
type Frontier struct {
	StartFn           func(ctx context.Context) error
	StopFn            func(ctx context.Context) error
	AddSeedsFn        func(ctx context.Context, seeds []*crawlfront.FrontierRequest) error
	GetNextRequestsFn func(ctx context.Context, maxCount int, keyType crawlfront.KeyType, overusedKeys []string) ([]*crawlfront.FrontierRequest, error)
	PageCrawledFn     func(ctx context.Context, resp *crawlfront.FrontierResponse) error
	LinksExtractedFn  func(ctx context.Context, req *crawlfront.FrontierRequest, links []*crawlfront.FrontierRequest) error
	RequestErrorFn    func(ctx context.Context, req *crawlfront.FrontierRequest, errKind string) error
	FinishedFn        func() bool
	AutoStartFn       func() bool
}

func (f *Frontier) Start(ctx context.Context) error {
	return f.StartFn(ctx)
}

func (f *Frontier) Stop(ctx context.Context) error {
	return f.StopFn(ctx)
}

func (f *Frontier) AddSeeds(ctx context.Context, seeds []*crawlfront.FrontierRequest) error {
	return f.AddSeedsFn(ctx, seeds)
}

func (f *Frontier) GetNextRequests(ctx context.Context, maxCount int, keyType crawlfront.KeyType, overusedKeys []string) ([]*crawlfront.FrontierRequest, error) {
	return f.GetNextRequestsFn(ctx, maxCount, keyType, overusedKeys)
}

func (f *Frontier) PageCrawled(ctx context.Context, resp *crawlfront.FrontierResponse) error {
	return f.PageCrawledFn(ctx, resp)
}

func (f *Frontier) LinksExtracted(ctx context.Context, req *crawlfront.FrontierRequest, links []*crawlfront.FrontierRequest) error {
	return f.LinksExtractedFn(ctx, req, links)
}

func (f *Frontier) RequestError(ctx context.Context, req *crawlfront.FrontierRequest, errKind string) error {
	return f.RequestErrorFn(ctx, req, errKind)
}

func (f *Frontier) Finished() bool {
	return f.FinishedFn()
}

func (f *Frontier) AutoStart() bool {
	return f.AutoStartFn()
}
