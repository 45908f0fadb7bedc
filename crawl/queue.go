package crawl

import (
	"container/heap"
	"sync"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/bloom"
)

var _ crawlfront.LocalQueue = (*Queue)(nil)

// Queue is the engine's local request queue. Requests are popped by
// priority, and requests that do not bypass filtering are deduplicated by
// fingerprint. It is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	seen  *bloom.Filter
	queue *priorityHeap[*crawlfront.Request]
	seq   uint64
}

// NewQueue creates a new Queue sized for n expected requests with the given
// false positive rate for deduplication.
func NewQueue(n uint, fpRate float64) *Queue {
	h := &priorityHeap[*crawlfront.Request]{}
	heap.Init(h)
	return &Queue{
		seen:  bloom.NewFilter(n, fpRate),
		queue: h,
	}
}

// Enqueue adds req. Returns false if it was filtered as a duplicate.
func (q *Queue) Enqueue(req *crawlfront.Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !req.DontFilter && q.seen.TestAndAdd(Fingerprint(req)) {
		return false
	}
	q.seq++
	heap.Push(q.queue, heapItem[*crawlfront.Request]{value: req, priority: req.Priority, seq: q.seq})
	return true
}

// Pop returns the next request by priority.
// The bool result is false if the queue is empty.
func (q *Queue) Pop() (*crawlfront.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queue.Len() == 0 {
		return nil, false
	}
	item, _ := heap.Pop(q.queue).(heapItem[*crawlfront.Request])
	return item.value, true
}

// HasPending reports whether any request is waiting.
func (q *Queue) HasPending() bool {
	return q.Len() > 0
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Len()
}
