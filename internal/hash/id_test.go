package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, ColumnID(tt.data))
		})
	}
}

func TestColumnIDDistinct(t *testing.T) {
	names := []string{"a", "b", "sd_a", "sd_b", "a[north]", "a[south]", "b[north]", "sigma"}
	seen := make(map[uint64]string, len(names))
	for _, n := range names {
		id := ColumnID(n)
		prev, dup := seen[id]
		require.False(t, dup, "collision between %q and %q", n, prev)
		seen[id] = n
	}
}

func TestMix(t *testing.T) {
	require.Equal(t, Mix(42, 0), Mix(42, 0))
	require.NotEqual(t, Mix(42, 0), Mix(42, 1))
	require.NotEqual(t, Mix(42, 1), Mix(43, 0))
	require.NotEqual(t, Mix(1, 2), Mix(2, 1))
}
