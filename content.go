package crawlfront

import (
	"context"
	"time"
)

// Content is the main content of a page with navigation, footers and other
// boilerplate removed.
type Content struct {
	// Title comes from page metadata (title, og:title, JSON+LD).
	Title string

	// HTML is the main content as clean HTML.
	HTML string
}

// ContentExtractor finds the main content of an HTML response.
type ContentExtractor interface {
	ExtractContent(resp *Response) (*Content, error)
}

// MarkdownConverter renders HTML as Markdown. Relative links are resolved
// against baseURL.
type MarkdownConverter interface {
	ConvertMarkdown(html, baseURL string) (string, error)
}

// Document is a crawled page rendered as Markdown.
type Document struct {
	URL       string
	Title     string
	Markdown  string
	CrawledAt time.Time
}

// Validate returns an error if the document is missing required fields.
func (d *Document) Validate() error {
	if d.URL == "" {
		return Errorf(EINVALID, "document URL required")
	}
	return nil
}

// DocumentStore keeps the documents of one crawl. Saved documents become
// visible together on Commit; Abort discards them.
type DocumentStore interface {
	Save(ctx context.Context, doc *Document) error
	Commit() error
	Abort() error
}
