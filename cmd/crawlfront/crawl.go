package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/crawl"
	"github.com/fwojciec/crawlfront/fs"
	"github.com/fwojciec/crawlfront/goquery"
	"github.com/fwojciec/crawlfront/htmltomarkdown"
	"github.com/fwojciec/crawlfront/readability"
	crawlslog "github.com/fwojciec/crawlfront/slog"
	"github.com/fwojciec/crawlfront/sqlite"
	"github.com/fwojciec/crawlfront/trafilatura"
)

// apply returns s with the command's flag overrides.
func (c *CrawlCmd) apply(s crawlfront.Settings) crawlfront.Settings {
	if c.MaxRequests > 0 {
		s.MaxRequests = c.MaxRequests
	}
	if c.Concurrency > 0 {
		s.ConcurrentRequests = c.Concurrency
	}
	if c.Delay > 0 {
		s.DownloadDelay = c.Delay
	}
	if c.SeedFrontier {
		s.StartRequestsToFrontier = true
	}
	if !c.Local && len(s.RequestCallbacksToFrontier) == 0 {
		s.RequestCallbacksToFrontier = []string{crawlfront.DefaultCallback}
	}
	return s
}

// NewFrontier creates the frontier backend selected by --frontier. Options
// the settings do not recognize are handed to the backend unchanged.
func (c *CrawlCmd) NewFrontier(deps *Dependencies, settings crawlfront.Settings) crawlfront.Frontier {
	switch c.Frontier {
	case "sqlite":
		// Started explicitly so requests a previous run left in flight
		// are queued again.
		return sqlite.NewFrontier(deps.DB,
			sqlite.WithMaxRequests(settings.MaxRequests),
			sqlite.WithAutoStart(false),
			sqlite.WithOptions(settings.Extra),
		)
	default:
		return crawl.NewMemoryFrontier(100_000, 0.001,
			crawl.WithMaxRequests(settings.MaxRequests),
			crawl.WithAutoStart(settings.AutoStart),
			crawl.WithOptions(settings.Extra),
		)
	}
}

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	links, err := c.linkExtractor()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}
	if len(c.URLs) == 0 && c.Frontier != "sqlite" {
		err := errors.New("no start URLs given")
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	settings := c.apply(deps.Settings)
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}

	frontier := crawlslog.NewLoggingFrontier(crawl.NewFingerprintFrontier(c.NewFrontier(deps, settings)), deps.Logger)

	if c.Metrics != "" && deps.Stats != nil {
		srv := &http.Server{Addr: c.Metrics, Handler: metricsMux(deps), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				deps.Logger.Error("metrics server", "addr", c.Metrics, "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	var stats crawlfront.Stats
	if deps.Stats != nil {
		stats = deps.Stats
	}

	var store crawlfront.DocumentStore
	if c.Out != "" {
		store = fs.NewDocumentStore(c.Out)
	}
	saved := 0
	enc := json.NewEncoder(deps.Stdout)
	items := func(item any) {
		if c.Items {
			_ = enc.Encode(item)
		}
		page, ok := item.(Page)
		if !ok || store == nil || page.Markdown == "" {
			return
		}
		doc := &crawlfront.Document{URL: page.URL, Title: page.Title, Markdown: page.Markdown, CrawledAt: time.Now()}
		if err := store.Save(deps.Ctx, doc); err != nil {
			deps.Logger.Error("save document", "url", page.URL, "error", err)
			return
		}
		saved++
	}

	queue := crawl.NewQueue(100_000, 0.001)
	engine := &crawl.Engine{
		Scheduler: &crawl.Scheduler{
			Manager:  crawl.NewManager(frontier, deps.Logger),
			Queue:    queue,
			Slots:    deps.Downloader,
			Stats:    stats,
			Logger:   deps.Logger,
			Settings: settings,
		},
		Queue:       queue,
		Downloader:  deps.Downloader,
		Logger:      deps.Logger,
		Concurrency: settings.ConcurrentRequests,
		RetryDelays: crawl.RetryDelays(settings.RetryTimes, time.Second),
		Items:       items,
	}

	spider := NewFollowSpider(c.URLs, links, deps.Logger)
	if c.Markdown || c.Out != "" {
		spider.Extractor = c.contentExtractor()
		spider.Converter = htmltomarkdown.NewConverter()
	}
	session := crawlfront.NewSession(spider, settings.StateAttributes...)

	progress := func(event crawl.ProgressEvent) {
		if event.Type == crawl.ProgressFailed {
			fmt.Fprintf(deps.Stderr, "  fail %s: %v\n", TruncateURL(event.URL, 80), event.Error)
		}
	}

	result, err := engine.Run(deps.Ctx, session, progress)
	if result != nil {
		fmt.Fprintf(deps.Stderr, "Crawled %d pages (%s), %d failed, %d queued locally\n",
			result.Pages, FormatBytes(result.Bytes), result.Failed, result.Enqueued)
	}
	if err != nil {
		if store != nil {
			_ = store.Abort()
		}
		fmt.Fprintf(deps.Stderr, "error crawling: %s\n", errorText(err))
		return err
	}
	if store != nil {
		if err := store.Commit(); err != nil {
			fmt.Fprintf(deps.Stderr, "error writing documents: %v\n", err)
			return err
		}
		fmt.Fprintf(deps.Stderr, "Wrote %d documents to %s\n", saved, c.Out)
	}
	return nil
}

func (c *CrawlCmd) contentExtractor() crawlfront.ContentExtractor {
	if c.Extractor == "readability" {
		return readability.NewExtractor()
	}
	return trafilatura.NewExtractor()
}

func (c *CrawlCmd) linkExtractor() (*goquery.LinkExtractor, error) {
	links := &goquery.LinkExtractor{AllowOtherHosts: c.OtherHosts}
	var err error
	if c.Allow != "" {
		if links.Allow, err = regexp.Compile(c.Allow); err != nil {
			return nil, fmt.Errorf("invalid allow pattern %q: %w", c.Allow, err)
		}
	}
	if c.Deny != "" {
		if links.Deny, err = regexp.Compile(c.Deny); err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", c.Deny, err)
		}
	}
	return links, nil
}

func metricsMux(deps *Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", deps.Stats.Handler())
	return mux
}
