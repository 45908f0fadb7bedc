// Package crawl provides frontier-backed crawling orchestration.
// It converts between engine and frontier requests, decides which requests
// go to the frontier, refills the local queue from it, and runs the
// download loop.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/crawlfront"
	"golang.org/x/sync/errgroup"
)

// Engine runs a crawl session: it downloads queued requests concurrently,
// dispatches responses to spider handlers, and lets the scheduler route
// their outputs.
type Engine struct {
	Scheduler   *Scheduler
	Queue       *Queue
	Downloader  crawlfront.Downloader
	Logger      *slog.Logger
	Concurrency int
	RetryDelays []time.Duration

	// RefillDelays are the waits before asking a failing frontier again
	// once nothing else is left to crawl. Nil means DefaultRefillDelays;
	// empty ends the crawl on the first failed refill.
	RefillDelays []time.Duration

	// Items receives scraped items. May be nil.
	Items func(item any)
}

// Result holds the outcome of a crawl.
type Result struct {
	Pages    int
	Failed   int
	Items    int
	Bytes    int
	Enqueued int
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type   ProgressType
	URL    string
	Status int
	Error  error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// HTTPError is the failure handed to errbacks for error status responses.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP status %d", e.Status)
}

// Kind returns the error kind reported to the frontier.
func (e *HTTPError) Kind() string {
	return "HttpError"
}

// DefaultRefillDelays returns the waits between refills of a failing
// frontier: 1s, 2s, 4s.
func DefaultRefillDelays() []time.Duration {
	return RetryDelays(3, time.Second)
}

// download holds the outcome of fetching a single request.
type download struct {
	req  *crawlfront.Request
	resp *crawlfront.Response
	err  error
}

// Run crawls until the local queue is empty, nothing is in flight, and the
// frontier has nothing more to give, or ctx is canceled. The progress
// callback, if provided, receives events as crawling proceeds.
func (e *Engine) Run(ctx context.Context, session *crawlfront.Session, progress ProgressFunc) (*Result, error) {
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = 16
	}
	delays := e.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	refillDelays := e.RefillDelays
	if refillDelays == nil {
		refillDelays = DefaultRefillDelays()
	}
	notify := func(ev ProgressEvent) {
		if progress != nil {
			progress(ev)
		}
	}

	if err := e.Scheduler.Open(ctx, session); err != nil {
		return nil, fmt.Errorf("open scheduler: %w", err)
	}
	reason := "finished"
	defer func() {
		if err := e.Scheduler.Close(context.WithoutCancel(ctx), reason); err != nil {
			e.Logger.Error("close scheduler", "error", err)
		}
	}()

	var result Result
	if starter, ok := session.Spider.(crawlfront.StartRequester); ok {
		reqs, err := starter.StartRequests(ctx)
		if err != nil {
			return nil, fmt.Errorf("start requests: %w", err)
		}
		for _, req := range e.Scheduler.ProcessStartRequests(reqs) {
			if e.Queue.Enqueue(req) {
				result.Enqueued++
			}
		}
	}

	notify(ProgressEvent{Type: ProgressStarted})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	results := make(chan download, concurrency)
	inflight := 0

	// refillErr is the error of the last refill; refillRetries counts the
	// consecutive failed refills waited out with nothing in flight.
	var refillErr error
	refillRetries := 0

	for ctx.Err() == nil {
		for inflight < concurrency {
			if !e.Queue.HasPending() {
				res := e.Scheduler.Refill(ctx)
				refillErr = res.Err
				if res.Err == nil || res.Enqueued > 0 {
					refillRetries = 0
				}
			}
			req, ok := e.Queue.Pop()
			if !ok {
				break
			}
			inflight++
			g.Go(func() error {
				resp, err := DownloadWithRetry(gctx, req, e.Downloader.Download, e.Logger, delays)
				results <- download{req: req, resp: resp, err: err}
				return nil
			})
		}
		if inflight == 0 {
			if refillErr == nil || refillRetries >= len(refillDelays) {
				break
			}
			e.Logger.Warn("frontier unavailable, retrying refill",
				"attempt", refillRetries+1,
				"delay", refillDelays[refillRetries],
				"error", refillErr,
			)
			select {
			case <-time.After(refillDelays[refillRetries]):
			case <-ctx.Done():
			}
			refillRetries++
			continue
		}

		var d download
		select {
		case d = <-results:
		case <-ctx.Done():
			continue
		}
		inflight--

		outputs := e.handle(ctx, session, d, &result, notify)
		for _, out := range outputs {
			switch {
			case out.Request != nil:
				if e.Queue.Enqueue(out.Request) {
					result.Enqueued++
				}
			case out.Item != nil:
				result.Items++
				if e.Items != nil {
					e.Items(out.Item)
				}
			}
		}
	}

	_ = g.Wait()
	if ctx.Err() != nil {
		reason = "canceled"
		return &result, ctx.Err()
	}
	notify(ProgressEvent{Type: ProgressFinished})
	return &result, nil
}

// handle dispatches one download to the spider and returns the outputs to
// schedule locally.
func (e *Engine) handle(ctx context.Context, session *crawlfront.Session, d download, result *Result, notify ProgressFunc) []crawlfront.Output {
	var outputs []crawlfront.Output
	var err error

	switch {
	case d.err != nil:
		result.Failed++
		notify(ProgressEvent{Type: ProgressFailed, URL: d.req.URL, Error: d.err})
		if err := e.Scheduler.ProcessException(ctx, d.req, d.err); err != nil {
			e.Logger.Error("report request error", "url", d.req.URL, "error", err)
		}
		outputs, err = e.callErrback(ctx, session, &crawlfront.Failure{Request: d.req, Err: d.err})

	case d.resp.Status >= 400:
		result.Failed++
		notify(ProgressEvent{Type: ProgressFailed, URL: d.req.URL, Status: d.resp.Status, Error: &HTTPError{Status: d.resp.Status}})
		outputs, err = e.callErrback(ctx, session, &crawlfront.Failure{Request: d.req, Response: d.resp, Err: &HTTPError{Status: d.resp.Status}})

	default:
		result.Pages++
		result.Bytes += len(d.resp.Body)
		notify(ProgressEvent{Type: ProgressCompleted, URL: d.req.URL, Status: d.resp.Status})
		handler, ok := session.Handler(d.req.Callback)
		if !ok {
			e.Logger.Error("no handler for response", "url", d.req.URL, "callback", crawlfront.RoutingName(d.req.Callback))
			break
		}
		outputs, err = handler(ctx, d.resp)
	}
	if err != nil {
		e.Logger.Error("spider handler failed", "url", d.req.URL, "error", err)
		outputs = nil
	}

	local, err := e.Scheduler.ProcessSpiderOutput(ctx, d.req, d.resp, outputs)
	if err != nil {
		e.Logger.Error("process spider output", "url", d.req.URL, "error", err, "code", crawlfront.ErrorCode(err))
	}
	return local
}

func (e *Engine) callErrback(ctx context.Context, session *crawlfront.Session, failure *crawlfront.Failure) ([]crawlfront.Output, error) {
	handler, ok := session.ErrHandler(failure.Request.Errback)
	if !ok {
		e.Logger.Debug("ignoring failed request", "url", failure.Request.URL, "error", failure.Err)
		return nil, nil
	}
	return handler(ctx, failure)
}
