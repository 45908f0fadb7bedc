package mock

import (
	"context"

	"github.com/fwojciec/crawlfront"
)

var _ crawlfront.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of crawlfront.ContentExtractor.
type ContentExtractor struct {
	ExtractContentFn func(resp *crawlfront.Response) (*crawlfront.Content, error)
}

func (e *ContentExtractor) ExtractContent(resp *crawlfront.Response) (*crawlfront.Content, error) {
	return e.ExtractContentFn(resp)
}

var _ crawlfront.MarkdownConverter = (*MarkdownConverter)(nil)

// MarkdownConverter is a mock implementation of crawlfront.MarkdownConverter.
type MarkdownConverter struct {
	ConvertMarkdownFn func(html, baseURL string) (string, error)
}

func (c *MarkdownConverter) ConvertMarkdown(html, baseURL string) (string, error) {
	return c.ConvertMarkdownFn(html, baseURL)
}

var _ crawlfront.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is a mock implementation of crawlfront.DocumentStore.
type DocumentStore struct {
	SaveFn   func(ctx context.Context, doc *crawlfront.Document) error
	CommitFn func() error
	AbortFn  func() error
}

func (s *DocumentStore) Save(ctx context.Context, doc *crawlfront.Document) error {
	return s.SaveFn(ctx, doc)
}

func (s *DocumentStore) Commit() error {
	return s.CommitFn()
}

func (s *DocumentStore) Abort() error {
	return s.AbortFn()
}
