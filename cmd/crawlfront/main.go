package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/crawlfront"
	crawlhttp "github.com/fwojciec/crawlfront/http"
	"github.com/fwojciec/crawlfront/prometheus"
	"github.com/fwojciec/crawlfront/rod"
	crawlslog "github.com/fwojciec/crawlfront/slog"
	"github.com/fwojciec/crawlfront/sqlite"
	"github.com/fwojciec/crawlfront/yaml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Default database path, used when --db is not given.
	DBPath string

	// SQLite database backing the persistent frontier, when one is used.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("crawlfront"),
		kong.Description("Crawl websites through a crawl frontier."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'crawlfront --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd, _, _ := strings.Cut(kongCtx.Command(), " ")

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	deps.Settings = crawlfront.DefaultSettings()
	if cli.Settings != "" {
		if deps.Settings, err = yaml.LoadSettings(cli.Settings); err != nil {
			return fmt.Errorf("failed to load settings: %s", errorText(err))
		}
	}

	if cmd != "crawl" || cli.Crawl.Frontier == "sqlite" {
		path := cli.DB
		if path == "" {
			path = m.DBPath
		}
		m.DB = sqlite.NewDB(path)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set CRAWLFRONT_DB or --db to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", path, err)
		}
		defer m.Close()
		deps.DB = m.DB
	}

	deps.Sitemaps = crawlhttp.NewSitemapService(nil)

	if cmd == "crawl" {
		downloader, err := newDownloader(&cli.Crawl, cli.Crawl.apply(deps.Settings))
		if err != nil {
			return fmt.Errorf("failed to start downloader: %w", err)
		}
		defer downloader.Close()
		deps.Downloader = crawlslog.NewLoggingDownloader(downloader, deps.Logger)

		deps.Stats = prometheus.NewStats()
		if err := deps.Stats.Register(prometheus.NewSlotCollector(downloader)); err != nil {
			return fmt.Errorf("failed to register slot metrics: %w", err)
		}
	}

	return kongCtx.Run(deps)
}

// closingDownloader is a downloader holding resources until closed.
type closingDownloader interface {
	crawlfront.Downloader
	Close() error
}

// newDownloader returns the headless browser renderer when --render is
// given, and the HTTP downloader otherwise.
func newDownloader(c *CrawlCmd, settings crawlfront.Settings) (closingDownloader, error) {
	if c.Render {
		return rod.NewRenderer(
			rod.WithTimeout(c.Timeout),
			rod.WithDomainConcurrency(settings.ConcurrentRequestsPerDomain),
		)
	}
	return crawlhttp.NewDownloader(
		crawlhttp.WithSettings(settings),
		crawlhttp.WithTimeout(c.Timeout),
	), nil
}

func defaultDBPath() string {
	if path := os.Getenv("CRAWLFRONT_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "crawlfront.db"
	}
	dir := filepath.Join(home, ".crawlfront")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "frontier.db")
}
