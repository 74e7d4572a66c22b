package collision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/hierfit/errs"
)

func TestTrackerTrack(t *testing.T) {
	tracker := NewTracker(4)

	require.NoError(t, tracker.Track("a", 0x1234567890abcdef))
	require.NoError(t, tracker.Track("a[north]", 0xfedcba0987654321))
	require.Equal(t, 2, tracker.Count())
	require.Equal(t, []string{"a", "a[north]"}, tracker.Names())

	name, ok := tracker.Lookup(0xfedcba0987654321)
	require.True(t, ok)
	require.Equal(t, "a[north]", name)

	_, ok = tracker.Lookup(42)
	require.False(t, ok)
}

func TestTrackerErrors(t *testing.T) {
	tracker := NewTracker(0)
	require.NoError(t, tracker.Track("sigma", 7))

	tests := []struct {
		name    string
		column  string
		id      uint64
		wantErr error
	}{
		{"empty name", "", 1, errs.ErrInvalidColumnName},
		{"duplicate", "sigma", 7, errs.ErrDuplicateColumn},
		{"collision", "sd_a", 7, errs.ErrHashCollision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tracker.Track(tt.column, tt.id), tt.wantErr)
			require.Equal(t, 1, tracker.Count())
		})
	}
}

func TestTrackerReset(t *testing.T) {
	tracker := NewTracker(2)
	require.NoError(t, tracker.Track("a", 1))
	require.NoError(t, tracker.Track("b", 2))

	tracker.Reset()
	require.Zero(t, tracker.Count())
	require.Empty(t, tracker.Names())

	require.NoError(t, tracker.Track("b", 1))
}
