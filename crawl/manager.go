package crawl

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fwojciec/crawlfront"
)

// Manager is the engine-facing facade over a frontier. It converts engine
// requests and responses on the way in and out, and is bound to exactly one
// crawl session.
type Manager struct {
	frontier crawlfront.Frontier
	logger   *slog.Logger

	session   *crawlfront.Session
	requests  *RequestConverter
	responses *ResponseConverter
}

// NewManager returns a manager for frontier. Call Bind before use.
func NewManager(frontier crawlfront.Frontier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{frontier: frontier, logger: logger}
}

// Bind attaches the crawl session. Returns EALREADYBOUND on a second call.
func (m *Manager) Bind(session *crawlfront.Session) error {
	if m.session != nil {
		return crawlfront.Errorf(crawlfront.EALREADYBOUND, "manager is already bound to spider %q", m.session.Spider.Name())
	}
	if session == nil || session.Spider == nil {
		return crawlfront.Errorf(crawlfront.EINVALID, "session has no spider")
	}
	m.session = session
	m.requests = NewRequestConverter(session, m.logger)
	m.responses = NewResponseConverter(m.requests)
	return nil
}

// Session returns the bound session, or nil.
func (m *Manager) Session() *crawlfront.Session {
	return m.session
}

// Start starts the frontier.
func (m *Manager) Start(ctx context.Context) error {
	return m.frontier.Start(ctx)
}

// Stop stops the frontier.
func (m *Manager) Stop(ctx context.Context) error {
	return m.frontier.Stop(ctx)
}

// Finished reports whether the frontier has nothing more to give.
func (m *Manager) Finished() bool {
	return m.frontier.Finished()
}

// AutoStart reports whether the frontier starts itself.
func (m *Manager) AutoStart() bool {
	return m.frontier.AutoStart()
}

// AddSeeds converts and registers seed requests.
func (m *Manager) AddSeeds(ctx context.Context, seeds []*crawlfront.Request) error {
	frs, err := m.toFrontier(seeds)
	if err != nil {
		return err
	}
	if len(frs) == 0 {
		return nil
	}
	return m.frontier.AddSeeds(ctx, frs)
}

// GetNextBatch pulls up to maxCount requests from the frontier, avoiding the
// overused destinations in hints. Frontier failures, panics included, are
// returned as EFRONTIER. Requests that fail to convert are left out of the
// batch and reported together as EBINDING; the rest are still returned.
func (m *Manager) GetNextBatch(ctx context.Context, maxCount int, hints DestinationHints) (reqs []*crawlfront.Request, err error) {
	if err := m.checkBound(); err != nil {
		return nil, err
	}

	frs, err := m.getNextRequests(ctx, maxCount, hints)
	if err != nil {
		return nil, err
	}

	var errs []error
	reqs = make([]*crawlfront.Request, 0, len(frs))
	for _, fr := range frs {
		req, err := m.requests.FromFrontier(fr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, errors.Join(errs...)
}

func (m *Manager) getNextRequests(ctx context.Context, maxCount int, hints DestinationHints) (frs []*crawlfront.FrontierRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			frs, err = nil, crawlfront.Errorf(crawlfront.EFRONTIER, "get next requests: panic: %v", r)
		}
	}()
	frs, err = m.frontier.GetNextRequests(ctx, maxCount, hints.KeyType, hints.Overused)
	if err != nil {
		return nil, crawlfront.Errorf(crawlfront.EFRONTIER, "get next requests: %v", err)
	}
	return frs, nil
}

// PageCrawled reports a crawled page.
func (m *Manager) PageCrawled(ctx context.Context, resp *crawlfront.Response) error {
	if err := m.checkBound(); err != nil {
		return err
	}
	fresp, err := m.responses.ToFrontier(resp)
	if err != nil {
		return err
	}
	return m.frontier.PageCrawled(ctx, fresp)
}

// LinksExtracted reports links found on the page of req.
func (m *Manager) LinksExtracted(ctx context.Context, req *crawlfront.Request, links []*crawlfront.Request) error {
	if err := m.checkBound(); err != nil {
		return err
	}
	parent, err := m.parent(req)
	if err != nil {
		return err
	}
	frs, err := m.toFrontier(links)
	if err != nil {
		return err
	}
	return m.frontier.LinksExtracted(ctx, parent, frs)
}

// RequestError reports a failed request with a symbolic error kind.
func (m *Manager) RequestError(ctx context.Context, req *crawlfront.Request, errKind string) error {
	if err := m.checkBound(); err != nil {
		return err
	}
	fr, err := m.parent(req)
	if err != nil {
		return err
	}
	return m.frontier.RequestError(ctx, fr, errKind)
}

// parent converts req, reusing its frontier request when it has one.
func (m *Manager) parent(req *crawlfront.Request) (*crawlfront.FrontierRequest, error) {
	if req.Origin != nil {
		return req.Origin, nil
	}
	return m.requests.ToFrontier(req)
}

func (m *Manager) toFrontier(reqs []*crawlfront.Request) ([]*crawlfront.FrontierRequest, error) {
	if err := m.checkBound(); err != nil {
		return nil, err
	}
	frs := make([]*crawlfront.FrontierRequest, 0, len(reqs))
	for _, req := range reqs {
		fr, err := m.requests.ToFrontier(req)
		if err != nil {
			return nil, err
		}
		frs = append(frs, fr)
	}
	return frs, nil
}

func (m *Manager) checkBound() error {
	if m.session == nil {
		return crawlfront.Errorf(crawlfront.EINVALID, "manager is not bound to a session")
	}
	return nil
}

