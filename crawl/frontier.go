package crawl

import (
	"container/heap"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/bloom"
)

// Compile-time interface verification.
var _ crawlfront.Frontier = (*MemoryFrontier)(nil)

// MemoryFrontier is an in-memory frontier with a priority queue and Bloom
// filter deduplication by fingerprint. It is safe for concurrent use by
// multiple goroutines.
type MemoryFrontier struct {
	mu    sync.Mutex
	seen  *bloom.Filter
	queue *priorityHeap[*crawlfront.FrontierRequest]
	seq   uint64

	autoStart   bool
	maxRequests int
	options     map[string]any

	started  bool
	finished bool
	returned int
	crawled  int
	errors   map[string]int
}

// MemoryFrontierOption configures a MemoryFrontier.
type MemoryFrontierOption func(*MemoryFrontier)

// WithMaxRequests finishes the frontier after n requests have been handed
// out. Zero means unlimited.
func WithMaxRequests(n int) MemoryFrontierOption {
	return func(f *MemoryFrontier) {
		f.maxRequests = n
	}
}

// WithAutoStart sets whether the frontier starts itself.
func WithAutoStart(auto bool) MemoryFrontierOption {
	return func(f *MemoryFrontier) {
		f.autoStart = auto
	}
}

// WithOptions keeps backend options the crawl settings do not recognize.
func WithOptions(opts map[string]any) MemoryFrontierOption {
	return func(f *MemoryFrontier) {
		f.options = maps.Clone(opts)
	}
}

// NewMemoryFrontier creates a new MemoryFrontier sized for n expected
// requests with the given false positive rate for deduplication.
func NewMemoryFrontier(n uint, fpRate float64, opts ...MemoryFrontierOption) *MemoryFrontier {
	h := &priorityHeap[*crawlfront.FrontierRequest]{}
	heap.Init(h)
	f := &MemoryFrontier{
		seen:      bloom.NewFilter(n, fpRate),
		queue:     h,
		autoStart: true,
		errors:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.started = f.autoStart
	return f
}

// Start starts the frontier.
func (f *MemoryFrontier) Start(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

// Stop stops the frontier. Queued requests are kept.
func (f *MemoryFrontier) Stop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

// AddSeeds queues seeds not seen before.
func (f *MemoryFrontier) AddSeeds(_ context.Context, seeds []*crawlfront.FrontierRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, seed := range seeds {
		f.push(seed)
	}
	return nil
}

// LinksExtracted queues links not seen before.
func (f *MemoryFrontier) LinksExtracted(_ context.Context, _ *crawlfront.FrontierRequest, links []*crawlfront.FrontierRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range links {
		f.push(link)
	}
	return nil
}

// push must be called with f.mu held.
func (f *MemoryFrontier) push(req *crawlfront.FrontierRequest) bool {
	fp := req.Meta.Fingerprint
	if fp == "" {
		fp = FrontierFingerprint(req)
	}
	if f.seen.TestAndAdd(fp) {
		return false
	}
	f.seq++
	heap.Push(f.queue, heapItem[*crawlfront.FrontierRequest]{
		value:    req.Copy(),
		priority: req.Priority,
		seq:      f.seq,
	})
	return true
}

// GetNextRequests pops up to maxCount requests by priority, skipping those
// whose destination is overused. Skipped requests stay queued. A maxCount
// of zero means no cap.
func (f *MemoryFrontier) GetNextRequests(_ context.Context, maxCount int, keyType crawlfront.KeyType, overusedKeys []string) ([]*crawlfront.FrontierRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "frontier is not started")
	}
	if f.finished {
		return nil, nil
	}

	var out []*crawlfront.FrontierRequest
	var skipped []heapItem[*crawlfront.FrontierRequest]
	for f.queue.Len() > 0 && (maxCount <= 0 || len(out) < maxCount) {
		if f.maxRequests > 0 && f.returned >= f.maxRequests {
			break
		}
		item, _ := heap.Pop(f.queue).(heapItem[*crawlfront.FrontierRequest])
		if key := DestinationKey(item.value.URL, keyType); key != "" && slices.Contains(overusedKeys, key) {
			skipped = append(skipped, item)
			continue
		}
		out = append(out, item.value)
		f.returned++
	}
	for _, item := range skipped {
		heap.Push(f.queue, item)
	}
	if f.maxRequests > 0 && f.returned >= f.maxRequests {
		f.finished = true
	}
	return out, nil
}

// PageCrawled records a crawled page.
func (f *MemoryFrontier) PageCrawled(_ context.Context, _ *crawlfront.FrontierResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crawled++
	return nil
}

// RequestError records a failed request by error kind.
func (f *MemoryFrontier) RequestError(_ context.Context, _ *crawlfront.FrontierRequest, errKind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[errKind]++
	return nil
}

// Finished reports whether the request budget is spent.
func (f *MemoryFrontier) Finished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

// AutoStart reports whether the frontier starts itself.
func (f *MemoryFrontier) AutoStart() bool {
	return f.autoStart
}

// Options returns a copy of the backend options the frontier was created
// with.
func (f *MemoryFrontier) Options() map[string]any {
	return maps.Clone(f.options)
}

// Len returns the number of queued requests.
func (f *MemoryFrontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen returns true if a request with fp has been queued.
func (f *MemoryFrontier) Seen(fp crawlfront.Fingerprint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Test(fp)
}

// Crawled returns the number of pages reported as crawled.
func (f *MemoryFrontier) Crawled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.crawled
}

// Errors returns the number of failed requests per error kind.
func (f *MemoryFrontier) Errors() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

type heapItem[T any] struct {
	value    T
	priority int
	seq      uint64
}

// priorityHeap implements heap.Interface. Higher priority items are popped
// first, equal priorities in insertion order.
type priorityHeap[T any] []heapItem[T]

func (h priorityHeap[T]) Len() int { return len(h) }

func (h priorityHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h priorityHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *priorityHeap[T]) Push(x any) {
	item, _ := x.(heapItem[T])
	*h = append(*h, item)
}

func (h *priorityHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
