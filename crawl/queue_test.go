package crawl_test

import (
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/crawl"
	"github.com/stretchr/testify/assert"
)

func TestQueue_Enqueue_filters_duplicates(t *testing.T) {
	t.Parallel()

	q := crawl.NewQueue(1000, 0.01)

	assert.True(t, q.Enqueue(crawlfront.NewRequest("http://example.com/a")))
	assert.False(t, q.Enqueue(crawlfront.NewRequest("http://example.com/a#frag")))
	assert.Equal(t, 1, q.Len())
}

func TestQueue_Enqueue_keeps_requests_that_bypass_filtering(t *testing.T) {
	t.Parallel()

	q := crawl.NewQueue(1000, 0.01)
	a := crawlfront.NewRequest("http://example.com/a")
	b := crawlfront.NewRequest("http://example.com/a")
	b.DontFilter = true

	assert.True(t, q.Enqueue(a))
	assert.True(t, q.Enqueue(b))
	assert.Equal(t, 2, q.Len())
}

func TestQueue_Pop_orders_by_priority_then_insertion(t *testing.T) {
	t.Parallel()

	q := crawl.NewQueue(1000, 0.01)
	low := crawlfront.NewRequest("http://example.com/low")
	first := crawlfront.NewRequest("http://example.com/first")
	first.Priority = 1
	second := crawlfront.NewRequest("http://example.com/second")
	second.Priority = 1
	q.Enqueue(low)
	q.Enqueue(first)
	q.Enqueue(second)

	assert.True(t, q.HasPending())
	for _, want := range []*crawlfront.Request{first, second, low} {
		got, ok := q.Pop()
		assert.True(t, ok)
		assert.Same(t, want, got)
	}

	_, ok := q.Pop()
	assert.False(t, ok, "pop on empty queue should return false")
	assert.False(t, q.HasPending())
}
