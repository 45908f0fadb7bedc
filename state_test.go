package crawlfront_test

import (
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawlState_Replay(t *testing.T) {
	t.Parallel()

	t.Run("keeps the existing value on conflict", func(t *testing.T) {
		t.Parallel()

		s := crawlfront.NewCrawlState("A")
		require.NoError(t, s.Set("A", "v1"))

		assert.Equal(t, crawlfront.ReplayConflict, s.Replay("A", "v2"))
		v, _ := s.Get("A")
		assert.Equal(t, "v1", v)
	})

	t.Run("equal value is a no-op", func(t *testing.T) {
		t.Parallel()

		s := crawlfront.NewCrawlState("A")
		require.NoError(t, s.Set("A", "v1"))

		assert.Equal(t, crawlfront.ReplayUnchanged, s.Replay("A", "v1"))
	})

	t.Run("sets an unset slot", func(t *testing.T) {
		t.Parallel()

		s := crawlfront.NewCrawlState("A")

		assert.Equal(t, crawlfront.ReplayApplied, s.Replay("A", "v3"))
		v, ok := s.Get("A")
		assert.True(t, ok)
		assert.Equal(t, "v3", v)
	})

	t.Run("numbers compare across serialized types", func(t *testing.T) {
		t.Parallel()

		s := crawlfront.NewCrawlState("page")
		require.NoError(t, s.Set("page", 3))

		assert.Equal(t, crawlfront.ReplayUnchanged, s.Replay("page", float64(3)))
	})

	t.Run("undeclared slot is reported unknown", func(t *testing.T) {
		t.Parallel()

		s := crawlfront.NewCrawlState("A")

		assert.Equal(t, crawlfront.ReplayUnknown, s.Replay("B", 1))
		_, ok := s.Get("B")
		assert.False(t, ok)
	})
}

func TestCrawlState_Snapshot(t *testing.T) {
	t.Parallel()

	s := crawlfront.NewCrawlState("a", "b")
	require.NoError(t, s.Set("b", 2))

	assert.Equal(t, []crawlfront.StateVar{{Name: "a"}, {Name: "b", Value: 2}}, s.Snapshot())
	assert.Nil(t, crawlfront.NewCrawlState().Snapshot())
}

func TestCrawlState_Set(t *testing.T) {
	t.Parallel()

	s := crawlfront.NewCrawlState("a")

	err := s.Set("b", 1)

	require.Error(t, err)
	assert.Equal(t, crawlfront.EINVALID, crawlfront.ErrorCode(err))
}
