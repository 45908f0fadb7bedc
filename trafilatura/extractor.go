// Package trafilatura extracts the main content of crawled pages with
// go-trafilatura, falling back to readability and dom-distiller.
package trafilatura

import (
	"bytes"
	"net/url"

	"github.com/fwojciec/crawlfront"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements crawlfront.ContentExtractor at compile time.
var _ crawlfront.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura.
type Extractor struct {
	fallback bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFallback sets whether the fallback extractors run when trafilatura
// finds too little content. Enabled by default.
func WithFallback(enabled bool) Option {
	return func(e *Extractor) {
		e.fallback = enabled
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{fallback: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractContent returns the main content of resp.
func (e *Extractor) ExtractContent(resp *crawlfront.Response) (*crawlfront.Content, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "empty HTML response <%s>", resp.URL)
	}

	opts := trafilatura.Options{
		EnableFallback: e.fallback,
	}
	if u, err := url.Parse(resp.URL); err == nil {
		opts.OriginalURL = u
	}

	result, err := trafilatura.Extract(bytes.NewReader(resp.Body), opts)
	if err != nil {
		return nil, err
	}

	var content string
	if result.ContentNode != nil {
		if content, err = renderNode(result.ContentNode); err != nil {
			return nil, err
		}
	}

	return &crawlfront.Content{
		Title: result.Metadata.Title,
		HTML:  content,
	}, nil
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
