package crawlfront

import "context"

// Default handler names. A request without a callback is handled by
// DefaultCallback; requests pulled from the frontier without an errback get
// DefaultErrback when the spider declares it.
const (
	DefaultCallback = "parse"
	DefaultErrback  = "errback"
)

// Handler processes a response and yields follow-up requests and items.
type Handler func(ctx context.Context, resp *Response) ([]Output, error)

// ErrHandler processes a failed request and yields follow-up requests and items.
type ErrHandler func(ctx context.Context, failure *Failure) ([]Output, error)

// Spider is the crawl logic bound to a crawl session. Its handler table is
// the closed set of callbacks that may travel through the frontier by name.
//
// Implementations must be comparable (typically a pointer) since callback
// ownership is checked by identity.
type Spider interface {
	Name() string
	Handlers() *Handlers
}

// StartRequester is implemented by spiders that provide seed requests.
type StartRequester interface {
	StartRequests(ctx context.Context) ([]*Request, error)
}

// RequestPreprocessor is implemented by spiders that rewrite requests pulled
// from the frontier before they are enqueued. Returning false drops the request.
type RequestPreprocessor interface {
	PreprocessRequest(req *Request) (*Request, bool)
}

// Handlers is a spider's named callback table.
type Handlers struct {
	callbacks map[string]Handler
	errbacks  map[string]ErrHandler
}

// NewHandlers returns an empty handler table.
func NewHandlers() *Handlers {
	return &Handlers{
		callbacks: make(map[string]Handler),
		errbacks:  make(map[string]ErrHandler),
	}
}

// Handle registers a response callback under name.
func (h *Handlers) Handle(name string, fn Handler) {
	h.callbacks[name] = fn
}

// HandleError registers an error callback under name.
func (h *Handlers) HandleError(name string, fn ErrHandler) {
	h.errbacks[name] = fn
}

// Callback returns the response callback registered under name.
func (h *Handlers) Callback(name string) (Handler, bool) {
	fn, ok := h.callbacks[name]
	return fn, ok
}

// Errback returns the error callback registered under name.
func (h *Handlers) Errback(name string) (ErrHandler, bool) {
	fn, ok := h.errbacks[name]
	return fn, ok
}

// Callback is a tag naming a handler on a specific spider. The zero value
// means "no callback".
type Callback struct {
	Spider Spider
	Name   string
}

// Method returns the callback tag for spider's handler name.
func Method(spider Spider, name string) Callback {
	return Callback{Spider: spider, Name: name}
}

// IsZero reports whether no callback is set.
func (c Callback) IsZero() bool {
	return c.Spider == nil && c.Name == ""
}

// Session is a crawl session: the active spider and its crawl-scoped state.
type Session struct {
	Spider Spider
	State  *CrawlState
}

// NewSession returns a session for spider with the given state slots.
func NewSession(spider Spider, stateAttrs ...string) *Session {
	return &Session{
		Spider: spider,
		State:  NewCrawlState(stateAttrs...),
	}
}

// Owns reports whether cb is bound to the session's spider.
func (s *Session) Owns(cb Callback) bool {
	return cb.Spider != nil && cb.Spider == s.Spider
}

// CallbackName resolves a response callback to its symbolic name.
// The zero callback resolves to "".
func (s *Session) CallbackName(cb Callback) (string, error) {
	if cb.IsZero() {
		return "", nil
	}
	if !s.Owns(cb) {
		return "", Errorf(EBINDING, "callback %q must be a method of the active session", cb.Name)
	}
	if _, ok := s.Spider.Handlers().Callback(cb.Name); !ok {
		return "", Errorf(EBINDING, "callback %q is not declared by spider %q", cb.Name, s.Spider.Name())
	}
	return cb.Name, nil
}

// ErrbackName resolves an error callback to its symbolic name.
// The zero callback resolves to "".
func (s *Session) ErrbackName(cb Callback) (string, error) {
	if cb.IsZero() {
		return "", nil
	}
	if !s.Owns(cb) {
		return "", Errorf(EBINDING, "errback %q must be a method of the active session", cb.Name)
	}
	if _, ok := s.Spider.Handlers().Errback(cb.Name); !ok {
		return "", Errorf(EBINDING, "errback %q is not declared by spider %q", cb.Name, s.Spider.Name())
	}
	return cb.Name, nil
}

// ResolveCallback binds a symbolic response callback name to the session's
// spider. The empty name resolves to the zero callback.
func (s *Session) ResolveCallback(name string) (Callback, error) {
	if name == "" {
		return Callback{}, nil
	}
	if _, ok := s.Spider.Handlers().Callback(name); !ok {
		return Callback{}, Errorf(EBINDING, "method %q not found in spider %q", name, s.Spider.Name())
	}
	return Method(s.Spider, name), nil
}

// ResolveErrback binds a symbolic error callback name to the session's
// spider. The empty name resolves to the zero callback.
func (s *Session) ResolveErrback(name string) (Callback, error) {
	if name == "" {
		return Callback{}, nil
	}
	if _, ok := s.Spider.Handlers().Errback(name); !ok {
		return Callback{}, Errorf(EBINDING, "method %q not found in spider %q", name, s.Spider.Name())
	}
	return Method(s.Spider, name), nil
}

// RoutingName returns the name used for frontier routing decisions: the
// callback's name, or DefaultCallback when none is set.
func RoutingName(cb Callback) string {
	if cb.Name == "" {
		return DefaultCallback
	}
	return cb.Name
}

// Handler returns the response handler for cb, falling back to the
// spider's DefaultCallback for the zero callback.
func (s *Session) Handler(cb Callback) (Handler, bool) {
	if cb.IsZero() {
		return s.Spider.Handlers().Callback(DefaultCallback)
	}
	if !s.Owns(cb) {
		return nil, false
	}
	return s.Spider.Handlers().Callback(cb.Name)
}

// ErrHandler returns the error handler for cb. The zero callback has none.
func (s *Session) ErrHandler(cb Callback) (ErrHandler, bool) {
	if cb.IsZero() || !s.Owns(cb) {
		return nil, false
	}
	return s.Spider.Handlers().Errback(cb.Name)
}
