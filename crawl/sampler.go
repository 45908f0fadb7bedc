package crawl

import (
	"slices"

	"github.com/fwojciec/crawlfront"
)

// DestinationHints tells the frontier which destinations to avoid in the
// next batch.
type DestinationHints struct {
	KeyType  crawlfront.KeyType
	Overused []string
}

// SampleDestinations reads the transport's live slot load. A slot is
// overused when its active count divided by its concurrency exceeds factor.
// Slots without a concurrency limit are never overused. Keys are sorted.
func SampleDestinations(src crawlfront.SlotSource, factor float64) DestinationHints {
	hints := DestinationHints{KeyType: src.KeyType()}
	for _, slot := range src.Slots() {
		if slot.Concurrency <= 0 {
			continue
		}
		if float64(slot.Active)/float64(slot.Concurrency) > factor {
			hints.Overused = append(hints.Overused, slot.Key)
		}
	}
	slices.Sort(hints.Overused)
	return hints
}
