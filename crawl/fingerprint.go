package crawl

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/crawlfront"
	"github.com/google/uuid"
	"golang.org/x/net/idna"
)

// Fingerprint computes the dedup identity of a request. Requests that bypass
// duplicate filtering get a random suffix on the URL first, so repeated
// fetches of the same URL never share a fingerprint.
func Fingerprint(req *crawlfront.Request) crawlfront.Fingerprint {
	rawURL := req.URL
	if req.DontFilter {
		rawURL += uuid.NewString()
	}
	return computeFingerprint(req.Method, rawURL, req.Body)
}

// FrontierFingerprint computes the dedup identity of a frontier request.
func FrontierFingerprint(req *crawlfront.FrontierRequest) crawlfront.Fingerprint {
	body := req.Meta.Body
	if body == nil {
		body = req.Body
	}
	return computeFingerprint(req.Method, req.URL, body)
}

func computeFingerprint(method, rawURL string, body []byte) crawlfront.Fingerprint {
	if method == "" {
		method = "GET"
	}
	d := xxhash.New()
	_, _ = d.WriteString(strings.ToUpper(method))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(canonicalizeURL(rawURL))
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(body)
	return crawlfront.Fingerprint(fmt.Sprintf("%016x", d.Sum64()))
}

// canonicalizeURL lowercases scheme and host, strips default ports and the
// fragment, and sorts query parameters. Unparseable URLs are used as is.
func canonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPort(u.Scheme) {
		host = net.JoinHostPort(host, port)
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}

// HostKey returns the destination key of a URL when slots are keyed by
// domain: its lowercased ASCII hostname. Returns "" for unparseable URLs.
func HostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

// DestinationKey returns the slot key of a URL for the given key type. In IP
// mode only literal addresses have a key; names resolve inside the transport.
func DestinationKey(rawURL string, keyType crawlfront.KeyType) string {
	host := HostKey(rawURL)
	if keyType == crawlfront.KeyTypeIP && net.ParseIP(host) == nil {
		return ""
	}
	return host
}

// SlotFor returns the frontier slot a request belongs to. With a slot count
// the host is spread over prefix/0..prefix/N-1; with only a prefix all
// requests share it; otherwise the host is the slot.
func SlotFor(req *crawlfront.FrontierRequest) string {
	prefix, n := req.Meta.SlotPrefix, req.Meta.NumberOfSlots
	switch {
	case prefix != "" && n > 0:
		return prefix + "/" + strconv.FormatUint(xxhash.Sum64String(HostKey(req.URL))%uint64(n), 10)
	case prefix != "":
		return prefix
	default:
		return HostKey(req.URL)
	}
}
