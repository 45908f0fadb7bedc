package crawl_test

import (
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/crawl"
	"github.com/fwojciec/crawlfront/mock"
	"github.com/stretchr/testify/assert"
)

func slotSource(keyType crawlfront.KeyType, slots ...crawlfront.Slot) *mock.SlotSource {
	return &mock.SlotSource{
		KeyTypeFn: func() crawlfront.KeyType { return keyType },
		SlotsFn:   func() []crawlfront.Slot { return slots },
	}
}

func TestSampleDestinations(t *testing.T) {
	t.Parallel()

	t.Run("flags slots above the factor", func(t *testing.T) {
		t.Parallel()

		src := slotSource(crawlfront.KeyTypeDomain,
			crawlfront.Slot{Key: "example.com", Concurrency: 1, Active: 6},
			crawlfront.Slot{Key: "example2.com", Concurrency: 1, Active: 2},
		)

		hints := crawl.SampleDestinations(src, 5)

		assert.Equal(t, crawlfront.KeyTypeDomain, hints.KeyType)
		assert.Equal(t, []string{"example.com"}, hints.Overused)
	})

	t.Run("a slot exactly at the factor is not overused", func(t *testing.T) {
		t.Parallel()

		src := slotSource(crawlfront.KeyTypeDomain, crawlfront.Slot{Key: "example.com", Concurrency: 2, Active: 10})

		hints := crawl.SampleDestinations(src, 5)

		assert.Empty(t, hints.Overused)
	})

	t.Run("skips slots without concurrency limit", func(t *testing.T) {
		t.Parallel()

		src := slotSource(crawlfront.KeyTypeDomain, crawlfront.Slot{Key: "example.com", Concurrency: 0, Active: 100})

		hints := crawl.SampleDestinations(src, 5)

		assert.Empty(t, hints.Overused)
	})

	t.Run("reports ip key type and sorts keys", func(t *testing.T) {
		t.Parallel()

		src := slotSource(crawlfront.KeyTypeIP,
			crawlfront.Slot{Key: "10.0.0.2", Concurrency: 1, Active: 9},
			crawlfront.Slot{Key: "10.0.0.1", Concurrency: 1, Active: 9},
		)

		hints := crawl.SampleDestinations(src, 5)

		assert.Equal(t, crawlfront.KeyTypeIP, hints.KeyType)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, hints.Overused)
	})

	t.Run("idle transport yields no overused keys", func(t *testing.T) {
		t.Parallel()

		hints := crawl.SampleDestinations(slotSource(crawlfront.KeyTypeDomain), 5)

		assert.Empty(t, hints.Overused)
	})
}
