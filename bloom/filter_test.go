package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter_AddAndTest(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Test("9f2c6a10d1b4e7aa"))

	f.Add("9f2c6a10d1b4e7aa")

	assert.True(t, f.Test("9f2c6a10d1b4e7aa"))
	assert.False(t, f.Test("03b1f7e2c9d8a654"))
}

func TestFilter_TestAndAdd(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.TestAndAdd("9f2c6a10d1b4e7aa"), "first sighting")
	assert.True(t, f.TestAndAdd("9f2c6a10d1b4e7aa"), "second sighting")
}

func TestFilter_EstimatedCount(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.Equal(t, uint(0), f.EstimatedCount())

	for i := range 3 {
		f.Add(crawlfront.Fingerprint(fmt.Sprintf("fp-%d", i)))
	}

	count := f.EstimatedCount()
	assert.True(t, count >= 2 && count <= 4, "expected count near 3, got %d", count)
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	t.Parallel()

	const (
		numItems   = 10000
		fpRate     = 0.01
		testProbes = 10000
	)

	f := bloom.NewFilter(numItems, fpRate)
	for i := range numItems {
		f.Add(crawlfront.Fingerprint(fmt.Sprintf("added-%d", i)))
	}

	falsePositives := 0
	for i := range testProbes {
		if f.Test(crawlfront.Fingerprint(fmt.Sprintf("notadded-%d", i))) {
			falsePositives++
		}
	}

	// Allow up to 2% to account for statistical variance
	actualRate := float64(falsePositives) / float64(testProbes)
	assert.Less(t, actualRate, 0.02, "false positive rate %f exceeds 2%%", actualRate)
}
