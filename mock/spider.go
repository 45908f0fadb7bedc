package mock

import (
	"context"

	"github.com/fwojciec/crawlfront"
)

var (
	_ crawlfront.Spider              = (*Spider)(nil)
	_ crawlfront.StartRequester      = (*Spider)(nil)
	_ crawlfront.RequestPreprocessor = (*Spider)(nil)
)

// Spider is a mock implementation of crawlfront.Spider. A nil
// StartRequestsFn yields no start requests; a nil PreprocessRequestFn keeps
// every request unchanged.
type Spider struct {
	SpiderName          string
	HandlerTable        *crawlfront.Handlers
	StartRequestsFn     func(ctx context.Context) ([]*crawlfront.Request, error)
	PreprocessRequestFn func(req *crawlfront.Request) (*crawlfront.Request, bool)
}

func (s *Spider) Name() string {
	return s.SpiderName
}

func (s *Spider) Handlers() *crawlfront.Handlers {
	if s.HandlerTable == nil {
		s.HandlerTable = crawlfront.NewHandlers()
	}
	return s.HandlerTable
}

func (s *Spider) StartRequests(ctx context.Context) ([]*crawlfront.Request, error) {
	if s.StartRequestsFn == nil {
		return nil, nil
	}
	return s.StartRequestsFn(ctx)
}

func (s *Spider) PreprocessRequest(req *crawlfront.Request) (*crawlfront.Request, bool) {
	if s.PreprocessRequestFn == nil {
		return req, true
	}
	return s.PreprocessRequestFn(req)
}
