// Package goquery extracts follow-up links from HTML pages using goquery.
package goquery

import (
	"bytes"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/crawlfront"
)

// SelectorConfig defines a CSS selector for anchors with the request
// priority given to the links it matches.
type SelectorConfig struct {
	Selector string
	Priority int
	Source   string
}

// DefaultSelectors ranks links by page region: tables of contents first,
// then navigation, content and footers. Every other same-host anchor is
// picked up by the fallback at priority 0.
var DefaultSelectors = []SelectorConfig{
	{Selector: `.toc a[href], .table-of-contents a[href], .sidebar a[href], aside a[href]`, Priority: 30, Source: "toc"},
	{Selector: `nav a[href], [role="navigation"] a[href], .navbar a[href], .menu a[href]`, Priority: 20, Source: "nav"},
	{Selector: `main a[href], article a[href], .content a[href]`, Priority: 10, Source: "content"},
	{Selector: `footer a[href], .footer a[href]`, Priority: 1, Source: "footer"},
}

// Link is an extracted link.
type Link struct {
	URL      string
	Text     string
	Priority int
	Source   string
}

// LinkExtractor finds links on a page. Links are resolved against the page
// URL (or its <base href>), stripped of fragments and deduplicated; a link
// matched by several selectors keeps the highest priority.
type LinkExtractor struct {
	// Selectors are applied in order. Nil means DefaultSelectors.
	Selectors []SelectorConfig

	// AllowOtherHosts keeps links to hosts other than the page's.
	AllowOtherHosts bool

	// Allow, when set, keeps only links whose URL matches.
	Allow *regexp.Regexp

	// Deny drops links whose URL matches.
	Deny *regexp.Regexp
}

// Extract returns the links of an HTML response in document order.
func (e *LinkExtractor) Extract(resp *crawlfront.Response) ([]Link, error) {
	base, err := url.Parse(resp.URL)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "invalid page URL: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "failed to parse HTML of %s: %v", resp.URL, err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	selectors := e.Selectors
	if selectors == nil {
		selectors = DefaultSelectors
	}
	fallback := SelectorConfig{Selector: "a[href]", Source: "fallback"}

	seen := make(map[string]int)
	var links []Link
	for _, config := range append(slices.Clip(selectors), fallback) {
		doc.Find(config.Selector).Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			resolved := e.resolve(base, href)
			if resolved == "" {
				return
			}
			link := Link{
				URL:      resolved,
				Text:     strings.Join(strings.Fields(sel.Text()), " "),
				Priority: config.Priority,
				Source:   config.Source,
			}
			if idx, ok := seen[resolved]; ok {
				if link.Priority > links[idx].Priority {
					links[idx] = link
				}
				return
			}
			seen[resolved] = len(links)
			links = append(links, link)
		})
	}
	return links, nil
}

// Requests extracts the links of resp as follow-up GET requests carrying
// the link priority.
func (e *LinkExtractor) Requests(resp *crawlfront.Response) ([]*crawlfront.Request, error) {
	links, err := e.Extract(resp)
	if err != nil {
		return nil, err
	}
	reqs := make([]*crawlfront.Request, len(links))
	for i, l := range links {
		req := crawlfront.NewRequest(l.URL)
		req.Priority = l.Priority
		reqs[i] = req
	}
	return reqs, nil
}

// resolve returns the absolute URL of href, or "" when the link is skipped:
// non-HTTP schemes, links back to the page itself, other hosts unless
// allowed, and URLs failing the allow and deny patterns.
func (e *LinkExtractor) resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if !e.AllowOtherHosts && !strings.EqualFold(u.Host, base.Host) {
		return ""
	}

	self := *base
	self.Fragment = ""
	resolved := u.String()
	if resolved == self.String() {
		return ""
	}
	if e.Allow != nil && !e.Allow.MatchString(resolved) {
		return ""
	}
	if e.Deny != nil && e.Deny.MatchString(resolved) {
		return ""
	}
	return resolved
}

// Title returns the whitespace-collapsed <title> of an HTML response, or ""
// when it has none.
func Title(resp *crawlfront.Response) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
