package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/crawlfront"
)

// SitemapEntry is one <url> element of a sitemap.
type SitemapEntry struct {
	URL     string
	LastMod string

	// Priority is the declared priority in [0, 1], or -1 when absent.
	Priority float64
}

// Ensure SitemapService implements crawlfront.SeedSource at compile time.
var _ crawlfront.SeedSource = (*SitemapService)(nil)

// SitemapService discovers crawl seeds from website sitemaps.
type SitemapService struct {
	client *http.Client
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SitemapService{client: client}
}

// Seeds returns one GET request per sitemap entry of the site at baseURL
// that matches include (all entries when include is nil). The sitemap
// priority is scaled to a request priority in [0, 100].
func (s *SitemapService) Seeds(ctx context.Context, baseURL string, include *regexp.Regexp) ([]*crawlfront.Request, error) {
	entries, err := s.Entries(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	reqs := make([]*crawlfront.Request, 0, len(entries))
	for _, e := range entries {
		if include != nil && !include.MatchString(e.URL) {
			continue
		}
		req := crawlfront.NewRequest(e.URL)
		if e.Priority >= 0 {
			req.Priority = int(math.Round(e.Priority * 100))
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Entries finds all entries of a site's sitemaps, deduplicated by URL.
// Sitemaps are located through robots.txt, falling back to /sitemap.xml.
// Returns an empty slice (not nil) if no sitemaps are found.
//
// When baseURL has a non-root path (e.g., https://example.com/docs/),
// only entries with paths under that prefix are returned.
func (s *SitemapService) Entries(ctx context.Context, baseURL string) ([]SitemapEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "invalid base URL %q: %v", baseURL, err)
	}
	pathPrefix := base.Path
	if pathPrefix == "/" {
		pathPrefix = ""
	}
	root := *base
	root.Path = ""
	root.RawQuery = ""

	sitemapURLs, err := s.findSitemapURLs(ctx, &root)
	if err != nil {
		return nil, err
	}

	out := []SitemapEntry{}
	seenSitemaps := make(map[string]bool)
	seenURLs := make(map[string]bool)
	for _, sitemapURL := range sitemapURLs {
		entries, err := s.processSitemap(ctx, sitemapURL, seenSitemaps)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if seenURLs[e.URL] {
				continue
			}
			seenURLs[e.URL] = true
			if pathPrefix != "" && !underPath(e.URL, pathPrefix) {
				continue
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// underPath reports whether the path of rawURL lies under prefix, on a path
// segment boundary: /docs matches /docs/ and /docs/intro but not
// /documentation.
func underPath(rawURL, prefix string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(u.Path, prefix) || u.Path+"/" == prefix
}

func (s *SitemapService) findSitemapURLs(ctx context.Context, root *url.URL) ([]string, error) {
	robotsURL := root.ResolveReference(&url.URL{Path: "/robots.txt"})
	sitemaps, err := s.sitemapsFromRobots(ctx, robotsURL.String())
	if err == nil && len(sitemaps) > 0 {
		return sitemaps, nil
	}

	sitemapURL := root.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()
	ok, err := s.exists(ctx, sitemapURL)
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil || !ok:
		return nil, nil
	}
	return []string{sitemapURL}, nil
}

// sitemapsFromRobots extracts Sitemap: directives from robots.txt.
func (s *SitemapService) sitemapsFromRobots(ctx context.Context, robotsURL string) ([]string, error) {
	body, err := s.get(ctx, robotsURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var sitemaps []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		name, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "sitemap") {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			sitemaps = append(sitemaps, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading robots.txt: %w", err)
	}
	return sitemaps, nil
}

// processSitemap fetches and parses a sitemap, following sitemap indexes.
func (s *SitemapService) processSitemap(ctx context.Context, sitemapURL string, seen map[string]bool) ([]SitemapEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	body, err := s.get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("parsing sitemap XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty sitemap XML at %s", sitemapURL)
	}

	if root.Tag != "sitemapindex" {
		return urlSet(root), nil
	}
	var out []SitemapEntry
	for _, sm := range root.SelectElements("sitemap") {
		loc := childText(sm, "loc")
		if loc == "" {
			continue
		}
		entries, err := s.processSitemap(ctx, loc, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func urlSet(root *etree.Element) []SitemapEntry {
	var out []SitemapEntry
	for _, el := range root.SelectElements("url") {
		loc := childText(el, "loc")
		if loc == "" {
			continue
		}
		e := SitemapEntry{URL: loc, LastMod: childText(el, "lastmod"), Priority: -1}
		if p, err := strconv.ParseFloat(childText(el, "priority"), 64); err == nil && p >= 0 && p <= 1 {
			e.Priority = p
		}
		out = append(out, e)
	}
	return out
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func (s *SitemapService) get(ctx context.Context, targetURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, targetURL)
	}
	return resp.Body, nil
}

func (s *SitemapService) exists(ctx context.Context, targetURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, targetURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
