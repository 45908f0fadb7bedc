package crawlfront

import (
	"context"
	"regexp"
)

// Slot is the live load of one destination: the transport's concurrency
// limit for it and how many requests are in flight.
type Slot struct {
	Key         string
	Concurrency int
	Active      int
}

// SlotSource exposes the transport's per-destination accounting.
type SlotSource interface {
	// KeyType reports whether slots are keyed by IP address or by domain.
	// It is fixed for the lifetime of the transport.
	KeyType() KeyType

	// Slots returns a snapshot of the known destination slots.
	Slots() []Slot
}

// Downloader performs requests. It reports slot load while doing so.
type Downloader interface {
	SlotSource

	// Download fetches req. HTTP error statuses are returned as responses,
	// not errors.
	Download(ctx context.Context, req *Request) (*Response, error)
}

// LocalQueue is the engine's queue of requests to schedule immediately.
type LocalQueue interface {
	// HasPending reports whether any request is waiting.
	HasPending() bool

	// Enqueue adds req. Returns false if the queue rejected it as a duplicate.
	Enqueue(req *Request) bool
}

// Stats collects crawl counters.
type Stats interface {
	Inc(key string, n int)
}

// SeedSource discovers seed requests for a site. Only URLs matching include
// are returned; a nil include matches everything.
type SeedSource interface {
	Seeds(ctx context.Context, baseURL string, include *regexp.Regexp) ([]*Request, error)
}
