package mock

import (
	"context"

	"github.com/fwojciec/crawlfront"
)

var _ crawlfront.SlotSource = (*SlotSource)(nil)

// SlotSource is a mock implementation of crawlfront.SlotSource.
type SlotSource struct {
	KeyTypeFn func() crawlfront.KeyType
	SlotsFn   func() []crawlfront.Slot
}

func (s *SlotSource) KeyType() crawlfront.KeyType {
	return s.KeyTypeFn()
}

func (s *SlotSource) Slots() []crawlfront.Slot {
	return s.SlotsFn()
}

var _ crawlfront.Downloader = (*Downloader)(nil)

// Downloader is a mock implementation of crawlfront.Downloader.
type Downloader struct {
	KeyTypeFn  func() crawlfront.KeyType
	SlotsFn    func() []crawlfront.Slot
	DownloadFn func(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error)
}

func (d *Downloader) KeyType() crawlfront.KeyType {
	return d.KeyTypeFn()
}

func (d *Downloader) Slots() []crawlfront.Slot {
	return d.SlotsFn()
}

func (d *Downloader) Download(ctx context.Context, req *crawlfront.Request) (*crawlfront.Response, error) {
	return d.DownloadFn(ctx, req)
}

var _ crawlfront.LocalQueue = (*LocalQueue)(nil)

// LocalQueue is a mock implementation of crawlfront.LocalQueue.
type LocalQueue struct {
	HasPendingFn func() bool
	EnqueueFn    func(req *crawlfront.Request) bool
}

func (q *LocalQueue) HasPending() bool {
	return q.HasPendingFn()
}

func (q *LocalQueue) Enqueue(req *crawlfront.Request) bool {
	return q.EnqueueFn(req)
}

var _ crawlfront.Stats = (*Stats)(nil)

// Stats is a mock implementation of crawlfront.Stats.
type Stats struct {
	IncFn func(key string, n int)
}

func (s *Stats) Inc(key string, n int) {
	s.IncFn(key, n)
}
