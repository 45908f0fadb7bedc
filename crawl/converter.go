package crawl

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/fwojciec/crawlfront"
)

// RequestConverter translates between engine requests and frontier requests
// for one crawl session. Conversion is lossless for the fields the engine
// needs to rebuild a request, including callbacks and crawl state.
type RequestConverter struct {
	session *crawlfront.Session
	logger  *slog.Logger
}

// NewRequestConverter returns a converter bound to session. State conflicts
// found while replaying frontier requests are logged to logger.
func NewRequestConverter(session *crawlfront.Session, logger *slog.Logger) *RequestConverter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RequestConverter{session: session, logger: logger}
}

// ToFrontier converts an engine request. Returns EBINDING if its callback or
// errback is not a handler of the session's spider.
func (c *RequestConverter) ToFrontier(req *crawlfront.Request) (*crawlfront.FrontierRequest, error) {
	callback, err := c.session.CallbackName(req.Callback)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EBINDING, "request <%s %s>: %s", req.Method, req.URL, crawlfront.ErrorMessage(err))
	}
	errback, err := c.session.ErrbackName(req.Errback)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EBINDING, "request <%s %s>: %s", req.Method, req.URL, crawlfront.ErrorMessage(err))
	}

	fp := fingerprintFromMeta(req.Meta)
	if fp == "" {
		fp = Fingerprint(req)
	}

	return &crawlfront.FrontierRequest{
		URL:      req.URL,
		Method:   req.Method,
		Headers:  req.Headers.Clone(),
		Cookies:  req.Cookies.Map(),
		Body:     slices.Clone(req.Body),
		Priority: req.Priority,
		Meta: crawlfront.FrontierMeta{
			Callback:         callback,
			Errback:          errback,
			Meta:             maps.Clone(req.Meta),
			Body:             slices.Clone(req.Body),
			SpiderState:      c.session.State.Snapshot(),
			OriginIsFrontier: true,
			Fingerprint:      fp,
			SlotPrefix:       stringFromMeta(req.Meta, crawlfront.MetaSlotPrefix),
			NumberOfSlots:    intFromMeta(req.Meta, crawlfront.MetaNumberOfSlots),
		},
	}, nil
}

// FromFrontier rebuilds an engine request. The result always bypasses
// duplicate filtering since the frontier already deduplicated it. Crawl
// state carried by the request is replayed into the session; a slot that
// already holds a different value keeps it and the conflict is logged.
func (c *RequestConverter) FromFrontier(fr *crawlfront.FrontierRequest) (*crawlfront.Request, error) {
	callback, err := c.session.ResolveCallback(fr.Meta.Callback)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EBINDING, "frontier request <%s>: %s", fr.URL, crawlfront.ErrorMessage(err))
	}
	errback, err := c.session.ResolveErrback(fr.Meta.Errback)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EBINDING, "frontier request <%s>: %s", fr.URL, crawlfront.ErrorMessage(err))
	}

	body := fr.Meta.Body
	if body == nil {
		body = fr.Body
	}

	c.replayState(fr)

	return &crawlfront.Request{
		URL:        fr.URL,
		Method:     fr.Method,
		Headers:    fr.Headers.Clone(),
		Cookies:    crawlfront.CookiesFromMap(fr.Cookies),
		Body:       slices.Clone(body),
		Priority:   fr.Priority,
		Callback:   callback,
		Errback:    errback,
		Meta:       maps.Clone(fr.Meta.Meta),
		DontFilter: true,
		Origin:     fr,
	}, nil
}

func (c *RequestConverter) replayState(fr *crawlfront.FrontierRequest) {
	for _, v := range fr.Meta.SpiderState {
		switch c.session.State.Replay(v.Name, v.Value) {
		case crawlfront.ReplayConflict:
			current, _ := c.session.State.Get(v.Name)
			c.logger.Error("crawl state conflict, keeping current value",
				"attr", v.Name,
				"old", current,
				"new", v.Value,
				"url", fr.URL,
			)
		case crawlfront.ReplayUnknown:
			c.logger.Warn("ignoring undeclared crawl state attribute",
				"attr", v.Name,
				"url", fr.URL,
			)
		}
	}
}

// ResponseConverter translates between engine responses and frontier
// responses.
type ResponseConverter struct {
	requests *RequestConverter
}

// NewResponseConverter returns a converter using requests for the embedded
// request.
func NewResponseConverter(requests *RequestConverter) *ResponseConverter {
	return &ResponseConverter{requests: requests}
}

// ToFrontier converts an engine response. When the response's request came
// from the frontier the original frontier request is reused with its native
// metadata refreshed, so backend-owned keys survive the round trip.
func (c *ResponseConverter) ToFrontier(resp *crawlfront.Response) (*crawlfront.FrontierResponse, error) {
	if resp.Request == nil {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "response <%d %s> has no request", resp.Status, resp.URL)
	}
	var fr *crawlfront.FrontierRequest
	if resp.Request.Origin != nil {
		fr = resp.Request.Origin.Copy()
		fr.Meta.Meta = maps.Clone(resp.Request.Meta)
	} else {
		var err error
		fr, err = c.requests.ToFrontier(resp.Request)
		if err != nil {
			return nil, err
		}
	}
	return &crawlfront.FrontierResponse{
		URL:        resp.URL,
		StatusCode: resp.Status,
		Headers:    resp.Headers.Clone(),
		Body:       slices.Clone(resp.Body),
		Request:    fr,
	}, nil
}

// FromFrontier rebuilds an engine response.
func (c *ResponseConverter) FromFrontier(fresp *crawlfront.FrontierResponse) (*crawlfront.Response, error) {
	if fresp.Request == nil {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "frontier response <%d %s> has no request", fresp.StatusCode, fresp.URL)
	}
	req, err := c.requests.FromFrontier(fresp.Request)
	if err != nil {
		return nil, err
	}
	return &crawlfront.Response{
		URL:     fresp.URL,
		Status:  fresp.StatusCode,
		Headers: fresp.Headers.Clone(),
		Body:    slices.Clone(fresp.Body),
		Request: req,
	}, nil
}

func fingerprintFromMeta(meta map[string]any) crawlfront.Fingerprint {
	switch v := meta[crawlfront.MetaFingerprint].(type) {
	case crawlfront.Fingerprint:
		return v
	case string:
		return crawlfront.Fingerprint(v)
	default:
		return ""
	}
}

func stringFromMeta(meta map[string]any, key string) string {
	v, _ := meta[key].(string)
	return v
}

// intFromMeta accepts float64 since metadata may have been through JSON.
func intFromMeta(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
