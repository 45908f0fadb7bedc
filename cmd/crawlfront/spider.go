package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/goquery"
)

var (
	_ crawlfront.Spider         = (*FollowSpider)(nil)
	_ crawlfront.StartRequester = (*FollowSpider)(nil)
)

// Page is the item the follow spider yields for every crawled page.
type Page struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Title  string `json:"title,omitempty"`
	Links  int    `json:"links"`

	// Markdown is the page's main content, when conversion is enabled.
	Markdown string `json:"markdown,omitempty"`
}

// FollowSpider crawls from its start URLs, yielding a Page per response and
// following the links found on HTML pages.
type FollowSpider struct {
	// Extractor and Converter, when both set, fill in Page.Markdown.
	Extractor crawlfront.ContentExtractor
	Converter crawlfront.MarkdownConverter

	startURLs []string
	links     *goquery.LinkExtractor
	logger    *slog.Logger
	handlers  *crawlfront.Handlers
}

// NewFollowSpider creates a FollowSpider.
func NewFollowSpider(startURLs []string, links *goquery.LinkExtractor, logger *slog.Logger) *FollowSpider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &FollowSpider{startURLs: startURLs, links: links, logger: logger}
	s.handlers = crawlfront.NewHandlers()
	s.handlers.Handle(crawlfront.DefaultCallback, s.parse)
	s.handlers.HandleError(crawlfront.DefaultErrback, s.errback)
	return s
}

// Name returns the spider name.
func (s *FollowSpider) Name() string {
	return "follow"
}

// Handlers returns the spider's callback table.
func (s *FollowSpider) Handlers() *crawlfront.Handlers {
	return s.handlers
}

// StartRequests returns a GET request per start URL.
func (s *FollowSpider) StartRequests(_ context.Context) ([]*crawlfront.Request, error) {
	reqs := make([]*crawlfront.Request, len(s.startURLs))
	for i, u := range s.startURLs {
		reqs[i] = s.request(u)
	}
	return reqs, nil
}

func (s *FollowSpider) request(url string) *crawlfront.Request {
	req := crawlfront.NewRequest(url)
	req.Callback = crawlfront.Method(s, crawlfront.DefaultCallback)
	req.Errback = crawlfront.Method(s, crawlfront.DefaultErrback)
	return req
}

func (s *FollowSpider) parse(_ context.Context, resp *crawlfront.Response) ([]crawlfront.Output, error) {
	page := Page{URL: resp.URL, Status: resp.Status}
	if !isHTML(resp) {
		return []crawlfront.Output{crawlfront.ItemOutput(page)}, nil
	}

	page.Title = goquery.Title(resp)
	if s.Extractor != nil && s.Converter != nil {
		if err := s.convert(resp, &page); err != nil {
			s.logger.Warn("convert page", "url", resp.URL, "error", err)
		}
	}
	found, err := s.links.Requests(resp)
	if err != nil {
		return nil, err
	}
	page.Links = len(found)

	out := make([]crawlfront.Output, 0, len(found)+1)
	out = append(out, crawlfront.ItemOutput(page))
	for _, link := range found {
		req := s.request(link.URL)
		req.Priority = link.Priority
		out = append(out, crawlfront.RequestOutput(req))
	}
	return out, nil
}

// convert sets the Markdown of page from the main content of resp,
// preferring the title found by the extractor.
func (s *FollowSpider) convert(resp *crawlfront.Response, page *Page) error {
	content, err := s.Extractor.ExtractContent(resp)
	if err != nil {
		return err
	}
	md, err := s.Converter.ConvertMarkdown(content.HTML, resp.URL)
	if err != nil {
		return err
	}
	page.Markdown = md
	if content.Title != "" {
		page.Title = content.Title
	}
	return nil
}

func (s *FollowSpider) errback(_ context.Context, failure *crawlfront.Failure) ([]crawlfront.Output, error) {
	s.logger.Warn("request failed", "url", failure.Request.URL, "error", failure.Err)
	return nil, nil
}

// isHTML reports whether resp is an HTML page. Responses without a
// Content-Type are assumed to be HTML.
func isHTML(resp *crawlfront.Response) bool {
	ct := resp.Headers.Get("Content-Type")
	return ct == "" || strings.Contains(ct, "html")
}
