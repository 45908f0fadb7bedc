package crawl

import (
	"context"

	"github.com/fwojciec/crawlfront"
)

var _ crawlfront.Frontier = (*FingerprintFrontier)(nil)

// FingerprintFrontier is a frontier decorator that gives every seed and
// extracted link a fingerprint before the wrapped frontier sees it.
// Requests that already carry one keep it.
type FingerprintFrontier struct {
	crawlfront.Frontier
}

// NewFingerprintFrontier wraps next.
func NewFingerprintFrontier(next crawlfront.Frontier) *FingerprintFrontier {
	return &FingerprintFrontier{Frontier: next}
}

// AddSeeds annotates seeds and forwards them.
func (f *FingerprintFrontier) AddSeeds(ctx context.Context, seeds []*crawlfront.FrontierRequest) error {
	annotate(seeds)
	return f.Frontier.AddSeeds(ctx, seeds)
}

// LinksExtracted annotates links and forwards them.
func (f *FingerprintFrontier) LinksExtracted(ctx context.Context, req *crawlfront.FrontierRequest, links []*crawlfront.FrontierRequest) error {
	annotate(links)
	return f.Frontier.LinksExtracted(ctx, req, links)
}

func annotate(reqs []*crawlfront.FrontierRequest) {
	for _, req := range reqs {
		if req.Meta.Fingerprint == "" {
			req.Meta.Fingerprint = FrontierFingerprint(req)
		}
	}
}
