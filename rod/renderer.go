// Package rod renders pages in headless Chrome so spiders see the DOM after
// JavaScript has run.
package rod

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/crawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultMaxPages is the number of pages rendered before the browser is
// recycled.
const DefaultMaxPages = 75

// DefaultTimeout bounds the rendering of one page.
const DefaultTimeout = 30 * time.Second

// statusScript reads the HTTP status of the main document from the
// Navigation Timing API. Zero when the browser does not expose it.
const statusScript = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	return nav && nav.responseStatus ? nav.responseStatus : 0;
}`

// Ensure Renderer implements crawlfront.Downloader at compile time.
var _ crawlfront.Downloader = (*Renderer)(nil)

// Renderer downloads GET requests by loading them in a headless browser
// tab and returning the rendered HTML. Each domain gets a slot bounding
// the number of tabs open against it.
//
// Renderer is safe for concurrent use.
type Renderer struct {
	timeout   time.Duration
	maxPages  int
	perDomain int
	userAgent string

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	rendered int
	slots    map[string]*slot
	closed   bool
}

type slot struct {
	sem    chan struct{}
	active int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTimeout sets the time allowed to load and render one page.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		r.timeout = d
	}
}

// WithMaxPages sets the number of pages rendered before the browser is
// recycled.
func WithMaxPages(n int) Option {
	return func(r *Renderer) {
		r.maxPages = n
	}
}

// WithDomainConcurrency sets the number of tabs open per domain.
func WithDomainConcurrency(n int) Option {
	return func(r *Renderer) {
		r.perDomain = n
	}
}

// WithUserAgent overrides the browser's User-Agent for requests without one.
func WithUserAgent(ua string) Option {
	return func(r *Renderer) {
		r.userAgent = ua
	}
}

// NewRenderer launches a headless browser and returns a Renderer using it.
// Close must be called to shut the browser down.
//
// Returns an error if Chrome cannot be found, downloaded or launched.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		timeout:   DefaultTimeout,
		maxPages:  DefaultMaxPages,
		perDomain: 2,
		slots:     make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.launch(); err != nil {
		return nil, err
	}
	return r, nil
}

// KeyType reports that slots are keyed by domain.
func (r *Renderer) KeyType() crawlfront.KeyType {
	return crawlfront.KeyTypeDomain
}

// Slots returns a snapshot of the domains with tabs open or waiting.
func (r *Renderer) Slots() []crawlfront.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]crawlfront.Slot, 0, len(r.slots))
	for key, s := range r.slots {
		out = append(out, crawlfront.Slot{Key: key, Concurrency: cap(s.sem), Active: s.active})
	}
	slices.SortFunc(out, func(a, b crawlfront.Slot) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// Download renders req and returns the page HTML as the response body.
// The response URL is the one the tab ended on after redirects.
func (r *Renderer) Download(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Method != "" && req.Method != http.MethodGet {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "cannot render <%s %s>: only GET requests can be rendered", req.Method, req.URL)
	}

	key := crawl.HostKey(req.URL)
	s := r.acquire(key)
	defer r.release(key, s)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	browser, err := r.current()
	if err != nil {
		return nil, err
	}
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := r.prepare(page, req); err != nil {
		return nil, err
	}
	if err := page.Navigate(req.URL); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}
	html, err := page.HTML()
	if err != nil {
		return nil, err
	}
	r.markRendered()

	finalURL := req.URL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}
	status := http.StatusOK
	if res, err := page.Eval(statusScript); err == nil {
		if n := res.Value.Int(); n > 0 {
			status = n
		}
	}

	return &crawlfront.Response{
		URL:     finalURL,
		Status:  status,
		Headers: crawlfront.Headers{{Name: "Content-Type", Values: []string{"text/html; charset=utf-8"}}},
		Body:    []byte(html),
		Request: req,
	}, nil
}

// prepare applies the request's headers and cookies to the tab.
func (r *Renderer) prepare(page *rod.Page, req *crawlfront.Request) error {
	ua := req.Headers.Get("User-Agent")
	if ua == "" {
		ua = r.userAgent
	}
	if ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}

	var extra []string
	for _, h := range req.Headers {
		if http.CanonicalHeaderKey(h.Name) == "User-Agent" {
			continue
		}
		for _, v := range h.Values {
			extra = append(extra, h.Name, v)
		}
	}
	if len(extra) > 0 {
		if _, err := page.SetExtraHeaders(extra); err != nil {
			return fmt.Errorf("set headers: %w", err)
		}
	}

	if len(req.Cookies) > 0 {
		params := make([]*proto.NetworkCookieParam, len(req.Cookies))
		for i, c := range req.Cookies {
			params[i] = &proto.NetworkCookieParam{Name: c.Name, Value: c.Value, URL: req.URL}
		}
		if err := page.SetCookies(params); err != nil {
			return fmt.Errorf("set cookies: %w", err)
		}
	}
	return nil
}

func (r *Renderer) acquire(key string) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, max(r.perDomain, 1))}
		r.slots[key] = s
	}
	s.active++
	return s
}

func (r *Renderer) release(key string, s *slot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.active--
	if s.active == 0 {
		delete(r.slots, key)
	}
}

// current returns the browser, recycling it first once maxPages pages have
// been rendered. If a fresh browser cannot be launched the old one is kept.
func (r *Renderer) current() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "renderer is closed")
	}
	if r.maxPages > 0 && r.rendered >= r.maxPages {
		old, oldLauncher := r.browser, r.launcher
		if err := r.launchLocked(); err == nil {
			// Tabs still rendering on the old browser fail and are retried.
			_ = old.Close()
			oldLauncher.Kill()
			r.rendered = 0
		}
	}
	return r.browser, nil
}

func (r *Renderer) markRendered() {
	r.mu.Lock()
	r.rendered++
	r.mu.Unlock()
}

func (r *Renderer) launch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.launchLocked()
}

// launchLocked starts a browser with flags that keep background tabs from
// being throttled. Must be called with mu held.
func (r *Renderer) launchLocked() error {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	r.browser = browser
	r.launcher = l
	return nil
}

// Close shuts the browser down. Close is safe to call multiple times.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	err := r.browser.Close()
	r.launcher.Kill()
	return err
}

// LauncherPID returns the process ID of the browser process.
func (r *Renderer) LauncherPID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.launcher.PID()
}
