package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/prometheus"
	"github.com/fwojciec/crawlfront/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx        context.Context
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
	Settings   crawlfront.Settings
	DB         *sqlite.DB
	Downloader crawlfront.Downloader
	Sitemaps   crawlfront.SeedSource
	Stats      *prometheus.Stats
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Settings string `short:"s" type:"path" help:"Settings YAML file"`
	DB       string `name:"db" type:"path" help:"SQLite frontier database (default $CRAWLFRONT_DB or ~/.crawlfront/frontier.db)"`
	Verbose  bool   `short:"v" help:"Log debug output"`

	Crawl CrawlCmd `cmd:"" help:"Crawl from start URLs, following links"`
	Seed  SeedCmd  `cmd:"" help:"Add URLs to the SQLite frontier"`
	Queue QueueCmd `cmd:"" help:"Show the SQLite frontier contents"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URLs         []string      `arg:"" optional:"" help:"Start URLs"`
	Frontier     string        `enum:"memory,sqlite" default:"memory" help:"Frontier backend (memory, sqlite)"`
	MaxRequests  int           `short:"n" help:"Stop after the frontier hands out this many requests"`
	Concurrency  int           `short:"c" help:"Concurrent downloads (overrides CONCURRENT_REQUESTS)"`
	Delay        time.Duration `help:"Delay between requests to one destination (overrides DOWNLOAD_DELAY)"`
	Local        bool          `help:"Schedule followed links locally instead of through the frontier"`
	SeedFrontier bool          `help:"Send start URLs to the frontier as seeds"`
	Allow        string        `help:"Follow only links matching this regex"`
	Deny         string        `help:"Never follow links matching this regex"`
	OtherHosts   bool          `help:"Follow links to other hosts"`
	Timeout      time.Duration `default:"10s" help:"Per-request timeout"`
	Metrics      string        `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
	Items        bool          `help:"Print crawled pages as JSON lines"`
	Render       bool          `help:"Render pages in headless Chrome before parsing"`
	Markdown     bool          `help:"Convert the main content of pages to Markdown"`
	Extractor    string        `enum:"trafilatura,readability" default:"trafilatura" help:"Content extractor used for Markdown (trafilatura, readability)"`
	Out          string        `type:"path" help:"Write pages as Markdown files to this directory (implies --markdown)"`
}

// SeedCmd is the "seed" subcommand.
type SeedCmd struct {
	URLs     []string `arg:"" optional:"" help:"URLs to add"`
	Sitemap  string   `help:"Add the URLs listed in this site's sitemap"`
	Include  string   `help:"Add only sitemap URLs matching this regex"`
	Priority int      `short:"p" help:"Priority of the given URLs"`
}

// QueueCmd is the "queue" subcommand.
type QueueCmd struct {
	State string `help:"List only requests in this state (queued, in_flight, crawled, failed)"`
	Limit int    `short:"l" help:"List up to this many requests"`
}
