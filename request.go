package crawlfront

import (
	"maps"
	"slices"
	"strings"
)

// Reserved native metadata keys. The scheduler writes the slot keys on
// frontier-bound links; the converter lifts them into FrontierMeta.
const (
	MetaFrontierStore  = "cf_store"
	MetaFingerprint    = "frontier_fingerprint"
	MetaSlotPrefix     = "frontier_slot_prefix"
	MetaNumberOfSlots  = "frontier_number_of_slots"
	MetaQueueData      = "qdata"
	MetaFrontierOrigin = "origin_is_frontier"
)

// Header is a single header field. Name keeps the casing it was set with.
type Header struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Headers is an ordered header list with case-insensitive names.
type Headers []Header

// Get returns the first value for name, or "" if absent.
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) && len(f.Values) > 0 {
			return f.Values[0]
		}
	}
	return ""
}

// Values returns all values for name.
func (h Headers) Values(name string) []string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Values
		}
	}
	return nil
}

// Set replaces the values for name, keeping its original position.
func (h *Headers) Set(name, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Name, name) {
			(*h)[i].Values = []string{value}
			return
		}
	}
	*h = append(*h, Header{Name: name, Values: []string{value}})
}

// Add appends value to the values for name.
func (h *Headers) Add(name, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Name, name) {
			(*h)[i].Values = append((*h)[i].Values, value)
			return
		}
	}
	*h = append(*h, Header{Name: name, Values: []string{value}})
}

// Del removes name.
func (h *Headers) Del(name string) {
	*h = slices.DeleteFunc(*h, func(f Header) bool {
		return strings.EqualFold(f.Name, name)
	})
}

// Clone returns a deep copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	for i, f := range h {
		out[i] = Header{Name: f.Name, Values: slices.Clone(f.Values)}
	}
	return out
}

// Cookie is a single name/value pair.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Cookies is the engine's cookie list. The same name may appear twice;
// flattening keeps the last one.
type Cookies []Cookie

// Map flattens the list into a name to value mapping.
func (c Cookies) Map() map[string]string {
	if len(c) == 0 {
		return map[string]string{}
	}
	m := make(map[string]string, len(c))
	for _, cookie := range c {
		m[cookie.Name] = cookie.Value
	}
	return m
}

// CookiesFromMap builds a cookie list sorted by name.
func CookiesFromMap(m map[string]string) Cookies {
	if len(m) == 0 {
		return nil
	}
	out := make(Cookies, 0, len(m))
	for _, name := range slices.Sorted(maps.Keys(m)) {
		out = append(out, Cookie{Name: name, Value: m[name]})
	}
	return out
}

// Request is the crawl engine's request.
type Request struct {
	URL      string
	Method   string
	Headers  Headers
	Cookies  Cookies
	Body     []byte
	Priority int

	// Callback handles the response. The zero value means the spider's
	// default callback.
	Callback Callback

	// Errback handles download and HTTP failures. The zero value means none.
	Errback Callback

	// Meta is arbitrary per-request metadata owned by the request.
	Meta map[string]any

	// DontFilter bypasses duplicate filtering.
	DontFilter bool

	// Origin is the frontier request this request was built from, if any.
	Origin *FrontierRequest
}

// NewRequest returns a GET request for url.
func NewRequest(url string) *Request {
	return &Request{URL: url, Method: "GET"}
}

// Copy returns a copy of r that shares no mutable state with it.
func (r *Request) Copy() *Request {
	c := *r
	c.Headers = r.Headers.Clone()
	c.Cookies = slices.Clone(r.Cookies)
	c.Body = slices.Clone(r.Body)
	c.Meta = maps.Clone(r.Meta)
	return &c
}

// SetMeta sets a metadata key, allocating the map if needed.
func (r *Request) SetMeta(key string, value any) {
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	r.Meta[key] = value
}

// FrontierStore reports whether the request carries the explicit
// send-to-frontier marker.
func (r *Request) FrontierStore() bool {
	v, _ := r.Meta[MetaFrontierStore].(bool)
	return v
}

// Response is the crawl engine's response.
type Response struct {
	URL     string
	Status  int
	Headers Headers
	Body    []byte
	Request *Request
}

// Meta returns the metadata of the request that produced the response.
func (r *Response) Meta() map[string]any {
	if r.Request == nil {
		return nil
	}
	return r.Request.Meta
}

// Failure describes a request that could not be handled by its callback:
// a download error or an HTTP error status.
type Failure struct {
	Request  *Request
	Response *Response // nil for download errors
	Err      error
}

// Output is one element yielded by a callback: a follow-up request or a
// scraped item. Exactly one field is set.
type Output struct {
	Request *Request
	Item    any
}

// RequestOutput wraps a request as callback output.
func RequestOutput(r *Request) Output {
	return Output{Request: r}
}

// ItemOutput wraps an item as callback output.
func ItemOutput(item any) Output {
	return Output{Item: item}
}
