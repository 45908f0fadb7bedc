package main_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/crawlfront"
	main "github.com/fwojciec/crawlfront/cmd/crawlfront"
	"github.com/fwojciec/crawlfront/goquery"
	"github.com/fwojciec/crawlfront/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowSpider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("start requests are bound to the spider", func(t *testing.T) {
		t.Parallel()

		spider := main.NewFollowSpider([]string{"https://example.com/", "https://example.com/docs"}, &goquery.LinkExtractor{}, nil)
		session := crawlfront.NewSession(spider)

		reqs, err := spider.StartRequests(ctx)

		require.NoError(t, err)
		require.Len(t, reqs, 2)
		assert.Equal(t, "https://example.com/docs", reqs[1].URL)
		name, err := session.CallbackName(reqs[0].Callback)
		require.NoError(t, err)
		assert.Equal(t, crawlfront.DefaultCallback, name)
		name, err = session.ErrbackName(reqs[0].Errback)
		require.NoError(t, err)
		assert.Equal(t, crawlfront.DefaultErrback, name)
	})

	t.Run("parse yields a page and its links", func(t *testing.T) {
		t.Parallel()

		spider := main.NewFollowSpider(nil, &goquery.LinkExtractor{}, nil)
		parse, ok := spider.Handlers().Callback(crawlfront.DefaultCallback)
		require.True(t, ok)

		resp := &crawlfront.Response{
			URL:     "https://example.com/",
			Status:  200,
			Headers: crawlfront.Headers{{Name: "Content-Type", Values: []string{"text/html; charset=utf-8"}}},
			Body: []byte(`<html><head><title>Home</title></head><body>
				<nav><a href="/guide">Guide</a></nav>
				<main><a href="/blog">Blog</a></main>
			</body></html>`),
		}

		out, err := parse(ctx, resp)

		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, main.Page{URL: "https://example.com/", Status: 200, Title: "Home", Links: 2}, out[0].Item)
		urls := map[string]int{}
		for _, o := range out[1:] {
			require.NotNil(t, o.Request)
			assert.Equal(t, crawlfront.DefaultCallback, o.Request.Callback.Name)
			urls[o.Request.URL] = o.Request.Priority
		}
		assert.Equal(t, map[string]int{"https://example.com/guide": 20, "https://example.com/blog": 10}, urls)
	})

	t.Run("parse does not follow links of non-HTML responses", func(t *testing.T) {
		t.Parallel()

		spider := main.NewFollowSpider(nil, &goquery.LinkExtractor{}, nil)
		parse, _ := spider.Handlers().Callback(crawlfront.DefaultCallback)

		resp := &crawlfront.Response{
			URL:     "https://example.com/data.json",
			Status:  200,
			Headers: crawlfront.Headers{{Name: "Content-Type", Values: []string{"application/json"}}},
			Body:    []byte(`{"href": "<a href=\"/x\">x</a>"}`),
		}

		out, err := parse(ctx, resp)

		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, main.Page{URL: "https://example.com/data.json", Status: 200}, out[0].Item)
	})

	t.Run("parse converts the main content to Markdown", func(t *testing.T) {
		t.Parallel()

		spider := main.NewFollowSpider(nil, &goquery.LinkExtractor{}, nil)
		spider.Extractor = &mock.ContentExtractor{
			ExtractContentFn: func(resp *crawlfront.Response) (*crawlfront.Content, error) {
				return &crawlfront.Content{Title: "Guide", HTML: "<h1>Guide</h1>"}, nil
			},
		}
		var gotBase string
		spider.Converter = &mock.MarkdownConverter{
			ConvertMarkdownFn: func(html, baseURL string) (string, error) {
				gotBase = baseURL
				return "# Guide", nil
			},
		}
		parse, _ := spider.Handlers().Callback(crawlfront.DefaultCallback)

		out, err := parse(ctx, &crawlfront.Response{
			URL:    "https://example.com/guide",
			Status: 200,
			Body:   []byte(`<html><head><title>Guide | Docs</title></head><body><h1>Guide</h1></body></html>`),
		})

		require.NoError(t, err)
		require.Len(t, out, 1)
		page := out[0].Item.(main.Page)
		assert.Equal(t, "# Guide", page.Markdown)
		assert.Equal(t, "Guide", page.Title)
		assert.Equal(t, "https://example.com/guide", gotBase)
	})

	t.Run("parse keeps the page when conversion fails", func(t *testing.T) {
		t.Parallel()

		spider := main.NewFollowSpider(nil, &goquery.LinkExtractor{}, nil)
		spider.Extractor = &mock.ContentExtractor{
			ExtractContentFn: func(*crawlfront.Response) (*crawlfront.Content, error) {
				return nil, errors.New("no content")
			},
		}
		spider.Converter = &mock.MarkdownConverter{
			ConvertMarkdownFn: func(string, string) (string, error) {
				t.Fatal("converter called without content")
				return "", nil
			},
		}
		parse, _ := spider.Handlers().Callback(crawlfront.DefaultCallback)

		out, err := parse(ctx, &crawlfront.Response{
			URL:    "https://example.com/",
			Status: 200,
			Body:   []byte(`<html><head><title>Home</title></head><body><a href="/a">A</a></body></html>`),
		})

		require.NoError(t, err)
		require.Len(t, out, 2)
		page := out[0].Item.(main.Page)
		assert.Empty(t, page.Markdown)
		assert.Equal(t, "Home", page.Title)
	})

	t.Run("errback yields nothing", func(t *testing.T) {
		t.Parallel()

		spider := main.NewFollowSpider(nil, &goquery.LinkExtractor{}, nil)
		errback, ok := spider.Handlers().Errback(crawlfront.DefaultErrback)
		require.True(t, ok)

		out, err := errback(ctx, &crawlfront.Failure{Request: crawlfront.NewRequest("https://example.com/"), Err: errors.New("boom")})

		require.NoError(t, err)
		assert.Empty(t, out)
	})
}
