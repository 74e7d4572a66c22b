package endian

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckEndiannessConsistency(t *testing.T) {
	first := CheckEndianness()
	for range 100 {
		require.Equal(t, first, CheckEndianness())
	}
	require.Equal(t, first == binary.LittleEndian, IsNativeLittleEndian())
}

func TestEngineFor(t *testing.T) {
	require.Equal(t, GetBigEndianEngine(), EngineFor(true))
	require.Equal(t, GetLittleEndianEngine(), EngineFor(false))
}

func TestEngineFloatRoundTrip(t *testing.T) {
	for _, engine := range []EndianEngine{GetLittleEndianEngine(), GetBigEndianEngine()} {
		values := []float64{0, -1.5, math.Pi, 1e-300, math.MaxFloat64}
		var buf []byte
		for _, v := range values {
			buf = engine.AppendUint64(buf, math.Float64bits(v))
		}
		require.Len(t, buf, 8*len(values))
		for i, v := range values {
			got := math.Float64frombits(engine.Uint64(buf[i*8:]))
			require.Equal(t, v, got)
		}
	}
}
