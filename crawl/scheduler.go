package crawl

import (
	"context"
	"log/slog"
	"slices"

	"github.com/fwojciec/crawlfront"
)

// Stats keys written by the scheduler.
const (
	StatLinksExtracted   = "frontier/links_extracted_count"
	StatReturnedRequests = "frontier/returned_requests_count"
	StatDroppedRequests  = "frontier/dropped_requests_count"
	StatRequestErrors    = "frontier/request_errors_count"
)

// CycleState is the outcome of one scheduling cycle.
type CycleState int

const (
	// CycleIdle means the local queue still had work; the frontier was not asked.
	CycleIdle CycleState = iota
	// CycleRefilled means at least one frontier request was enqueued.
	CycleRefilled
	// CycleEmpty means the frontier returned nothing or could not be queried.
	CycleEmpty
	// CycleFinished means the frontier is finished; it will not be asked again.
	CycleFinished
)

func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "idle"
	case CycleRefilled:
		return "refilled"
	case CycleEmpty:
		return "empty"
	case CycleFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// RefillResult describes one pull from the frontier.
type RefillResult struct {
	State    CycleState
	Returned int
	Enqueued int
	Dropped  int

	// Err is the frontier or conversion failure, if any. A refill never
	// fails the crawl; requests converted before the failure are enqueued.
	Err error
}

// Scheduler decides, per request, whether it is scheduled locally or sent to
// the frontier, reports crawl results to the frontier, and refills the local
// queue from the frontier when it runs dry.
type Scheduler struct {
	Manager  *Manager
	Queue    crawlfront.LocalQueue
	Slots    crawlfront.SlotSource
	Stats    crawlfront.Stats
	Logger   *slog.Logger
	Settings crawlfront.Settings

	session   *crawlfront.Session
	callbacks []string
	prefixes  map[string]slotPrefix
	finished  bool
}

type slotPrefix struct {
	prefix string
	slots  int
}

// Open binds the session, seeds the frontier with the spider's start
// requests when configured to, and starts the frontier unless it starts
// itself.
func (s *Scheduler) Open(ctx context.Context, session *crawlfront.Session) error {
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	if err := s.Settings.Validate(); err != nil {
		return err
	}
	if err := s.Manager.Bind(session); err != nil {
		return err
	}
	s.session = session
	s.callbacks = slices.Clone(s.Settings.RequestCallbacksToFrontier)
	s.prefixes = make(map[string]slotPrefix, len(s.Settings.CallbackSlotPrefixMap))
	for callback, value := range s.Settings.CallbackSlotPrefixMap {
		prefix, n, err := crawlfront.ParseSlotPrefix(value)
		if err != nil {
			return err
		}
		s.prefixes[callback] = slotPrefix{prefix: prefix, slots: n}
	}

	if s.Settings.StartRequestsToFrontier {
		if starter, ok := session.Spider.(crawlfront.StartRequester); ok {
			seeds, err := starter.StartRequests(ctx)
			if err != nil {
				return err
			}
			if err := s.Manager.AddSeeds(ctx, seeds); err != nil {
				return err
			}
			s.Logger.Info("seeded frontier", "spider", session.Spider.Name(), "count", len(seeds))
		}
	}

	s.Logger.Info("starting frontier", "spider", session.Spider.Name())
	if !s.Manager.AutoStart() {
		return s.Manager.Start(ctx)
	}
	return nil
}

// Close stops the frontier.
func (s *Scheduler) Close(ctx context.Context, reason string) error {
	s.Logger.Info("finishing frontier", "reason", reason)
	return s.Manager.Stop(ctx)
}

// ProcessStartRequests returns the start requests to schedule locally.
// All of them are dropped when they went to the frontier as seeds, unless
// the crawl consumes from a shared frontier and local start requests are
// enabled.
func (s *Scheduler) ProcessStartRequests(reqs []*crawlfront.Request) []*crawlfront.Request {
	if !s.Settings.StartRequestsToFrontier {
		return reqs
	}
	if s.Settings.ConsumerFrontier != "" && s.Settings.EnableConsumerStartRequests {
		return reqs
	}
	return nil
}

// IsFrontierRequest reports whether req is routed to the frontier: it
// carries the explicit marker or its callback is listed in
// REQUEST_CALLBACKS_TO_FRONTIER. A request without a callback is routed as
// DefaultCallback. Returns EINVALID if a frontier-bound request has a
// callback that is not a handler of the session's spider. Local requests
// are never checked.
func (s *Scheduler) IsFrontierRequest(req *crawlfront.Request) (bool, error) {
	bound := req.FrontierStore() || slices.Contains(s.callbacks, crawlfront.RoutingName(req.Callback))
	if bound && !req.Callback.IsZero() && !s.session.Owns(req.Callback) {
		return false, crawlfront.Errorf(crawlfront.EINVALID, "callback %q of <%s> must be a method of the spider", req.Callback.Name, req.URL)
	}
	return bound, nil
}

// ProcessSpiderOutput routes the outputs of a handled page. Frontier-bound
// requests are sent to the frontier as links extracted from req, everything
// else is returned for local scheduling. The page outcome is reported when
// resp is set and its request came from the frontier. Local outputs are
// returned even when reporting to the frontier fails.
func (s *Scheduler) ProcessSpiderOutput(ctx context.Context, req *crawlfront.Request, resp *crawlfront.Response, outputs []crawlfront.Output) ([]crawlfront.Output, error) {
	local := make([]crawlfront.Output, 0, len(outputs))
	var links []*crawlfront.Request
	for _, out := range outputs {
		if out.Request == nil {
			local = append(local, out)
			continue
		}
		ok, err := s.IsFrontierRequest(out.Request)
		if err != nil {
			return nil, err
		}
		if !ok {
			local = append(local, out)
			continue
		}
		s.applySlotPrefix(out.Request)
		links = append(links, out.Request)
	}

	if resp != nil && resp.Request != nil && resp.Request.Origin != nil {
		if err := s.Manager.PageCrawled(ctx, resp); err != nil {
			return local, err
		}
	}
	if len(links) > 0 {
		if err := s.Manager.LinksExtracted(ctx, req, links); err != nil {
			return local, err
		}
		s.inc(StatLinksExtracted, len(links))
	}
	return local, nil
}

func (s *Scheduler) applySlotPrefix(req *crawlfront.Request) {
	p, ok := s.prefixes[crawlfront.RoutingName(req.Callback)]
	if !ok {
		return
	}
	req.SetMeta(crawlfront.MetaSlotPrefix, p.prefix)
	if p.slots > 0 {
		req.SetMeta(crawlfront.MetaNumberOfSlots, p.slots)
	}
}

// ProcessException reports a failed download to the frontier when the
// request came from or was bound to the frontier. Local-only failures are
// not reported.
func (s *Scheduler) ProcessException(ctx context.Context, req *crawlfront.Request, err error) error {
	if req.Origin == nil {
		ok, routeErr := s.IsFrontierRequest(req)
		if routeErr != nil {
			return routeErr
		}
		if !ok {
			return nil
		}
	}
	if reportErr := s.Manager.RequestError(ctx, req, crawlfront.ClassifyError(err)); reportErr != nil {
		return reportErr
	}
	s.inc(StatRequestErrors, 1)
	return nil
}

// Cycle runs one scheduling step: it refills the local queue from the
// frontier when the queue is empty.
func (s *Scheduler) Cycle(ctx context.Context) CycleState {
	if s.Queue.HasPending() {
		return CycleIdle
	}
	return s.Refill(ctx).State
}

// Refill pulls the next batch from the frontier into the local queue.
// Failures are logged and reported in the result; they never stop the crawl.
func (s *Scheduler) Refill(ctx context.Context) RefillResult {
	if s.finished || s.Manager.Finished() {
		s.finished = true
		return RefillResult{State: CycleFinished}
	}

	hints := DestinationHints{KeyType: s.Settings.KeyType()}
	if s.Slots != nil {
		hints = SampleDestinations(s.Slots, s.Settings.OverusedSlotFactor)
	}

	reqs, err := s.Manager.GetNextBatch(ctx, s.Settings.MaxNextRequests, hints)
	res := RefillResult{Returned: len(reqs), Err: err}
	if err != nil {
		s.Logger.Error("frontier refill failed", "error", err, "code", crawlfront.ErrorCode(err))
	}

	for _, req := range reqs {
		s.applyDefaults(req)
		if pre, ok := s.session.Spider.(crawlfront.RequestPreprocessor); ok {
			var keep bool
			req, keep = pre.PreprocessRequest(req)
			if !keep || req == nil {
				res.Dropped++
				continue
			}
		}
		if !s.Queue.Enqueue(req) {
			res.Dropped++
			continue
		}
		res.Enqueued++
	}
	s.inc(StatReturnedRequests, res.Enqueued)
	s.inc(StatDroppedRequests, res.Dropped)

	switch {
	case res.Enqueued > 0:
		res.State = CycleRefilled
	case s.Manager.Finished():
		s.finished = true
		res.State = CycleFinished
	default:
		res.State = CycleEmpty
	}
	s.Logger.Debug("frontier refill",
		"state", res.State.String(),
		"returned", res.Returned,
		"enqueued", res.Enqueued,
		"dropped", res.Dropped,
		"overused", len(hints.Overused),
	)
	return res
}

// applyDefaults gives a frontier request the spider's default errback and
// callback when it lacks them and the spider declares them.
func (s *Scheduler) applyDefaults(req *crawlfront.Request) {
	if req.Errback.IsZero() {
		if eb, err := s.session.ResolveErrback(crawlfront.DefaultErrback); err == nil {
			req.Errback = eb
		}
	}
	if req.Callback.IsZero() {
		if cb, err := s.session.ResolveCallback(crawlfront.DefaultCallback); err == nil {
			req.Callback = cb
		}
	}
}

func (s *Scheduler) inc(key string, n int) {
	if s.Stats == nil || n == 0 {
		return
	}
	s.Stats.Inc(key, n)
}
