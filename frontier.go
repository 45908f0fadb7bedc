package crawlfront

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Reserved frontier metadata keys. Their names are shared with frontier
// backends and must not change.
const (
	KeyCallback         = "scrapy_callback"
	KeyErrback          = "scrapy_errback"
	KeyMeta             = "scrapy_meta"
	KeyBody             = "scrapy_body"
	KeySpiderState      = "spider_state"
	KeyOriginIsFrontier = "origin_is_frontier"
	KeyFingerprint      = "frontier_fingerprint"
	KeySlotPrefix       = "frontier_slot_prefix"
	KeyNumberOfSlots    = "frontier_number_of_slots"
)

// Fingerprint identifies a request for frontier deduplication.
type Fingerprint string

// KeyType is how destination slots are keyed.
type KeyType string

// Destination slot key types.
const (
	KeyTypeDomain KeyType = "domain"
	KeyTypeIP     KeyType = "ip"
)

// FrontierMeta is the typed metadata a frontier request carries. It holds
// everything needed to rebuild the engine request it was converted from.
// It is serialized with the reserved key names only at the backend boundary.
type FrontierMeta struct {
	Callback         string
	Errback          string
	Meta             map[string]any
	Body             []byte
	SpiderState      []StateVar
	OriginIsFrontier bool
	Fingerprint      Fingerprint
	SlotPrefix       string
	NumberOfSlots    int

	// Extra holds keys owned by the frontier backend, passed through as is.
	Extra map[string]any
}

// Clone returns a copy sharing no maps or slices with m.
func (m FrontierMeta) Clone() FrontierMeta {
	c := m
	c.Meta = maps.Clone(m.Meta)
	c.Body = slices.Clone(m.Body)
	c.SpiderState = slices.Clone(m.SpiderState)
	c.Extra = maps.Clone(m.Extra)
	return c
}

// MarshalJSON encodes the metadata as an object keyed by the reserved names.
func (m FrontierMeta) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(m.Extra)+9)
	for k, v := range m.Extra {
		obj[k] = v
	}
	obj[KeyOriginIsFrontier] = m.OriginIsFrontier
	obj[KeyFingerprint] = m.Fingerprint
	if m.Callback != "" {
		obj[KeyCallback] = m.Callback
	}
	if m.Errback != "" {
		obj[KeyErrback] = m.Errback
	}
	if m.Meta != nil {
		obj[KeyMeta] = m.Meta
	}
	if m.Body != nil {
		obj[KeyBody] = m.Body
	}
	if m.SpiderState != nil {
		obj[KeySpiderState] = m.SpiderState
	}
	if m.SlotPrefix != "" {
		obj[KeySlotPrefix] = m.SlotPrefix
	}
	if m.NumberOfSlots != 0 {
		obj[KeyNumberOfSlots] = m.NumberOfSlots
	}
	return json.Marshal(obj)
}

// UnmarshalJSON decodes an object keyed by the reserved names. Unknown keys
// land in Extra.
func (m *FrontierMeta) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = FrontierMeta{}
	fields := map[string]any{
		KeyCallback:         &m.Callback,
		KeyErrback:          &m.Errback,
		KeyMeta:             &m.Meta,
		KeyBody:             &m.Body,
		KeySpiderState:      &m.SpiderState,
		KeyOriginIsFrontier: &m.OriginIsFrontier,
		KeyFingerprint:      &m.Fingerprint,
		KeySlotPrefix:       &m.SlotPrefix,
		KeyNumberOfSlots:    &m.NumberOfSlots,
	}
	for key, value := range raw {
		if dst, ok := fields[key]; ok {
			if err := json.Unmarshal(value, dst); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[key] = v
	}
	return nil
}

// FrontierRequest is the frontier's request.
type FrontierRequest struct {
	URL      string            `json:"url"`
	Method   string            `json:"method"`
	Headers  Headers           `json:"headers,omitempty"`
	Cookies  map[string]string `json:"cookies,omitempty"`
	Body     []byte            `json:"body,omitempty"`
	Priority int               `json:"priority,omitempty"`
	Meta     FrontierMeta      `json:"meta"`
}

// Copy returns a copy of r that shares no mutable state with it.
func (r *FrontierRequest) Copy() *FrontierRequest {
	c := *r
	c.Headers = r.Headers.Clone()
	c.Cookies = maps.Clone(r.Cookies)
	c.Body = slices.Clone(r.Body)
	c.Meta = r.Meta.Clone()
	return &c
}

// FrontierResponse is the frontier's response.
type FrontierResponse struct {
	URL        string           `json:"url"`
	StatusCode int              `json:"status_code"`
	Headers    Headers          `json:"headers,omitempty"`
	Body       []byte           `json:"body,omitempty"`
	Request    *FrontierRequest `json:"request"`
}

// Frontier is the external crawl frontier. It owns deduplication, storage
// and ordering of frontier requests.
type Frontier interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// AddSeeds registers seed requests.
	AddSeeds(ctx context.Context, seeds []*FrontierRequest) error

	// GetNextRequests returns up to maxCount requests to crawl next,
	// avoiding destinations listed in overusedKeys.
	GetNextRequests(ctx context.Context, maxCount int, keyType KeyType, overusedKeys []string) ([]*FrontierRequest, error)

	// PageCrawled reports a crawled page.
	PageCrawled(ctx context.Context, resp *FrontierResponse) error

	// LinksExtracted reports links found on the page of req.
	LinksExtracted(ctx context.Context, req *FrontierRequest, links []*FrontierRequest) error

	// RequestError reports a failed request with a symbolic error kind.
	RequestError(ctx context.Context, req *FrontierRequest, errKind string) error

	// Finished reports whether the frontier has nothing more to give.
	// Once true it never reverts.
	Finished() bool

	// AutoStart reports whether the frontier starts itself.
	AutoStart() bool
}

// MakeRequest builds a frontier request from a fingerprint and queue data.
// The URL comes from qdata["url"] (defaulting to fp), request fields from
// qdata["request"], and any remaining keys are kept in the native metadata
// under MetaQueueData.
func MakeRequest(fp string, qdata map[string]any) (*FrontierRequest, error) {
	qdata = maps.Clone(qdata)
	url := fp
	if v, ok := qdata["url"].(string); ok && v != "" {
		url = v
	}
	delete(qdata, "url")

	req := &FrontierRequest{URL: url, Method: "GET"}
	if kwargs, ok := qdata["request"]; ok {
		buf, err := json.Marshal(kwargs)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid request data for %s: %v", fp, err)
		}
		if err := json.Unmarshal(buf, req); err != nil {
			return nil, Errorf(EINVALID, "invalid request data for %s: %v", fp, err)
		}
		if req.URL == "" {
			req.URL = url
		}
		if req.Method == "" {
			req.Method = "GET"
		}
	}
	delete(qdata, "request")

	if len(qdata) > 0 {
		if req.Meta.Meta == nil {
			req.Meta.Meta = make(map[string]any)
		}
		req.Meta.Meta[MetaQueueData] = qdata
	}
	return req, nil
}
