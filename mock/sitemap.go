package mock

import (
	"context"
	"regexp"

	"github.com/fwojciec/crawlfront"
)

var _ crawlfront.SeedSource = (*SeedSource)(nil)

// SeedSource is a mock implementation of crawlfront.SeedSource.
type SeedSource struct {
	SeedsFn func(ctx context.Context, baseURL string, include *regexp.Regexp) ([]*crawlfront.Request, error)
}

func (s *SeedSource) Seeds(ctx context.Context, baseURL string, include *regexp.Regexp) ([]*crawlfront.Request, error) {
	return s.SeedsFn(ctx, baseURL, include)
}
