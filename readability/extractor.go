// Package readability extracts the main content of crawled pages with the
// Readability algorithm.
package readability

import (
	"bytes"
	"net/url"

	"github.com/fwojciec/crawlfront"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements crawlfront.ContentExtractor at compile time.
var _ crawlfront.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-readability.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractContent returns the main content of resp. Relative links in the
// content are resolved against the response URL.
func (e *Extractor) ExtractContent(resp *crawlfront.Response) (*crawlfront.Content, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "empty HTML response <%s>", resp.URL)
	}

	pageURL, err := url.Parse(resp.URL)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "invalid response URL %q: %v", resp.URL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(resp.Body), pageURL)
	if err != nil {
		return nil, err
	}

	return &crawlfront.Content{
		Title: article.Title,
		HTML:  article.Content,
	}, nil
}
