// Package bloom provides request fingerprint deduplication using Bloom filters.
package bloom

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/crawlfront"
)

// Filter remembers fingerprints that have been seen.
// It is not safe for concurrent use; callers serialize access.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a new Bloom filter sized for n expected fingerprints
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Add records a fingerprint.
func (f *Filter) Add(fp crawlfront.Fingerprint) {
	f.f.AddString(string(fp))
}

// Test returns true if the fingerprint might have been recorded.
// False positives are possible; false negatives are not.
func (f *Filter) Test(fp crawlfront.Fingerprint) bool {
	return f.f.TestString(string(fp))
}

// TestAndAdd records fp and reports whether it might have been seen before.
func (f *Filter) TestAndAdd(fp crawlfront.Fingerprint) bool {
	return f.f.TestAndAddString(string(fp))
}

// EstimatedCount returns the approximate number of fingerprints recorded.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}
