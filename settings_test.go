package crawlfront_test

import (
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	s := crawlfront.DefaultSettings()

	require.NoError(t, s.Validate())
	assert.InDelta(t, 5.0, s.OverusedSlotFactor, 1e-9)
	assert.Equal(t, 64, s.MaxNextRequests)
	assert.True(t, s.AutoStart)
	assert.Equal(t, crawlfront.KeyTypeDomain, s.KeyType())
}

func TestSettings_Validate(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive overuse factor", func(t *testing.T) {
		t.Parallel()

		s := crawlfront.DefaultSettings()
		s.OverusedSlotFactor = 0

		assert.Equal(t, crawlfront.EINVALID, crawlfront.ErrorCode(s.Validate()))
	})

	t.Run("rejects malformed slot prefix", func(t *testing.T) {
		t.Parallel()

		s := crawlfront.DefaultSettings()
		s.CallbackSlotPrefixMap = map[string]string{"parse": "myslot/zero"}

		err := s.Validate()

		require.Error(t, err)
		assert.Contains(t, crawlfront.ErrorMessage(err), "CALLBACK_SLOT_PREFIX_MAP[parse]")
	})

	t.Run("per-ip concurrency keys slots by address", func(t *testing.T) {
		t.Parallel()

		s := crawlfront.DefaultSettings()
		s.ConcurrentRequestsPerIP = 2

		require.NoError(t, s.Validate())
		assert.Equal(t, crawlfront.KeyTypeIP, s.KeyType())
	})
}

func TestParseSlotPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		prefix  string
		slots   int
		wantErr bool
	}{
		{value: "myslot", prefix: "myslot"},
		{value: "myslot/5", prefix: "myslot", slots: 5},
		{value: "", wantErr: true},
		{value: "/5", wantErr: true},
		{value: "myslot/0", wantErr: true},
		{value: "myslot/x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			prefix, slots, err := crawlfront.ParseSlotPrefix(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, prefix)
			assert.Equal(t, tt.slots, slots)
		})
	}
}
