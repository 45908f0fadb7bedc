// Package http provides the crawl transport: a net/http downloader that
// keeps per-destination slot accounting, and sitemap-based seed discovery.
package http

import (
	"bytes"
	"cmp"
	"context"
	"io"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/crawl"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the default timeout for HTTP requests.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent when a request has no User-Agent header.
const DefaultUserAgent = "crawlfront/1.0"

// Ensure Downloader implements crawlfront.Downloader at compile time.
var _ crawlfront.Downloader = (*Downloader)(nil)

// Downloader fetches requests over HTTP. Requests to the same destination
// share a slot that bounds their concurrency and spaces them by the
// download delay. A destination is a domain, or an IP address when per-IP
// concurrency is configured.
type Downloader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	perDomain int
	perIP     int
	delay     time.Duration
	resolver  *net.Resolver

	mu    sync.Mutex
	slots map[string]*slot
}

// slot tracks one destination. active counts requests waiting for the slot
// as well as those transferring.
type slot struct {
	sem     chan struct{}
	limiter *rate.Limiter
	active  int
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(dl *Downloader) {
		dl.timeout = d
	}
}

// WithClient sets the HTTP client. Its timeout is left unchanged.
func WithClient(c *http.Client) Option {
	return func(dl *Downloader) {
		dl.client = c
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(dl *Downloader) {
		dl.userAgent = ua
	}
}

// WithDomainConcurrency sets the number of concurrent requests per domain.
func WithDomainConcurrency(n int) Option {
	return func(dl *Downloader) {
		dl.perDomain = n
	}
}

// WithIPConcurrency sets the number of concurrent requests per IP address.
// A positive value keys slots by address instead of domain.
func WithIPConcurrency(n int) Option {
	return func(dl *Downloader) {
		dl.perIP = n
	}
}

// WithDelay sets the minimum delay between requests to one destination.
func WithDelay(d time.Duration) Option {
	return func(dl *Downloader) {
		dl.delay = d
	}
}

// WithResolver sets the resolver used to find the address of a host in
// per-IP mode.
func WithResolver(r *net.Resolver) Option {
	return func(dl *Downloader) {
		dl.resolver = r
	}
}

// WithSettings applies the transport options of s.
func WithSettings(s crawlfront.Settings) Option {
	return func(dl *Downloader) {
		dl.perDomain = s.ConcurrentRequestsPerDomain
		dl.perIP = s.ConcurrentRequestsPerIP
		dl.delay = s.DownloadDelay
	}
}

// NewDownloader creates a new Downloader.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		perDomain: 8,
		resolver:  net.DefaultResolver,
		slots:     make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.client == nil {
		d.client = &http.Client{
			Timeout: d.timeout,
		}
	}

	return d
}

// KeyType reports whether slots are keyed by IP address or by domain.
func (d *Downloader) KeyType() crawlfront.KeyType {
	if d.perIP > 0 {
		return crawlfront.KeyTypeIP
	}
	return crawlfront.KeyTypeDomain
}

func (d *Downloader) concurrency() int {
	if d.perIP > 0 {
		return d.perIP
	}
	return max(d.perDomain, 1)
}

// Slots returns a snapshot of the known destination slots, sorted by key.
func (d *Downloader) Slots() []crawlfront.Slot {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]crawlfront.Slot, 0, len(d.slots))
	for key, s := range d.slots {
		out = append(out, crawlfront.Slot{
			Key:         key,
			Concurrency: cap(s.sem),
			Active:      s.active,
		})
	}
	slices.SortFunc(out, func(a, b crawlfront.Slot) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// Download fetches req. Every status is returned as a response; only
// transport failures are errors.
func (d *Downloader) Download(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error) {
	key := d.slotKey(ctx, req.URL)
	s := d.acquire(key)
	defer d.release(key, s)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	hreq, err := d.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	hresp, err := d.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	body, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, err
	}

	finalURL := req.URL
	if hresp.Request != nil && hresp.Request.URL != nil {
		finalURL = hresp.Request.URL.String()
	}
	return &crawlfront.Response{
		URL:     finalURL,
		Status:  hresp.StatusCode,
		Headers: fromHTTPHeader(hresp.Header),
		Body:    body,
		Request: req,
	}, nil
}

func (d *Downloader) newRequest(ctx context.Context, req *crawlfront.Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "invalid request <%s %s>: %v", method, req.URL, err)
	}
	for _, h := range req.Headers {
		for _, v := range h.Values {
			hreq.Header.Add(h.Name, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" && d.userAgent != "" {
		hreq.Header.Set("User-Agent", d.userAgent)
	}
	for _, c := range req.Cookies {
		hreq.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return hreq, nil
}

// slotKey returns the destination of rawURL. In per-IP mode a host name is
// resolved to its first address; the host itself is used when resolution
// fails.
func (d *Downloader) slotKey(ctx context.Context, rawURL string) string {
	host := crawl.HostKey(rawURL)
	if d.perIP <= 0 || host == "" || net.ParseIP(host) != nil {
		return host
	}
	addrs, err := d.resolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		return host
	}
	return addrs[0].IP.String()
}

func (d *Downloader) acquire(key string) *slot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, d.concurrency())}
		if d.delay > 0 {
			s.limiter = rate.NewLimiter(rate.Every(d.delay), 1)
		}
		d.slots[key] = s
	}
	s.active++
	return s
}

// release drops the slot once nothing uses it and it holds no delay state.
func (d *Downloader) release(key string, s *slot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s.active--
	if s.active == 0 && s.limiter == nil {
		delete(d.slots, key)
	}
}

// Close releases idle connections.
func (d *Downloader) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func fromHTTPHeader(h http.Header) crawlfront.Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make(crawlfront.Headers, 0, len(names))
	for _, name := range names {
		out = append(out, crawlfront.Header{Name: name, Values: slices.Clone(h[name])})
	}
	return out
}
