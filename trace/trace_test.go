package trace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/format"
	"github.com/arloliu/hierfit/model"
	"github.com/arloliu/hierfit/observation"
	"github.com/arloliu/hierfit/posterior"
)

func testTable(t *testing.T) *posterior.Table {
	t.Helper()

	spec, err := model.NewPresetSpec("michailoff", true, false, model.Normal(3, 1), model.StudentT(3, -10, 5))
	require.NoError(t, err)
	spec.Priors = append(spec.Priors,
		model.PriorSpec{Target: "sigma", Prior: model.Exponential(0.5)},
		model.PriorSpec{Target: "sd_a", Prior: model.Normal(0, 0.5)},
	)
	spec.Control.Seed = 12345
	m, err := spec.Compile()
	require.NoError(t, err)

	layout := model.NewLayout(m, []string{"north", "south"})
	var draws []posterior.Draw
	for c := range 2 {
		for i := range 50 {
			f := float64(c*50 + i)
			draws = append(draws, posterior.Draw{
				Chain:      c,
				Iteration:  i,
				Values:     []float64{3 + f/1000, -10 - f/100, 0.3, 0.1 * math.Sin(f), -0.1 * math.Cos(f), 2 + f/500},
				Divergent:  i%17 == 0,
				TreeDepth:  3 + i%4,
				Leapfrogs:  7 + i,
				StepSize:   0.25 + float64(c)/10,
				AcceptStat: 0.8 + f/1e4,
				LogDensity: -120.5 - f,
			})
		}
	}
	table, err := posterior.NewTable(m, layout, draws)
	require.NoError(t, err)

	return table
}

func TestEncodeDecode(t *testing.T) {
	table := testTable(t)

	tests := []struct {
		name string
		opts []EncoderOption
	}{
		{"default", nil},
		{"none", []EncoderOption{WithCompression(format.CompressionNone)}},
		{"s2", []EncoderOption{WithCompression(format.CompressionS2)}},
		{"lz4", []EncoderOption{WithCompression(format.CompressionLZ4)}},
		{"zstd big endian", []EncoderOption{WithCompression(format.CompressionZstd), WithBigEndian()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(table, tt.opts...)
			require.NoError(t, err)

			archive, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, uint32(100), archive.Header.DrawCount)
			require.Equal(t, uint32(len(metaColumns)+6), archive.Header.ColumnCount)
			require.Equal(t, []string{"north", "south"}, archive.Groups)
			require.Equal(t, table.Model().Spec(), archive.Spec)

			decoded, err := archive.Table()
			require.NoError(t, err)
			require.Equal(t, table.Columns(), decoded.Columns())
			require.Equal(t, table.Len(), decoded.Len())
			for i := range table.Len() {
				require.Equal(t, table.Draw(i), decoded.Draw(i))
			}
		})
	}
}

func TestEncodeStats(t *testing.T) {
	table := testTable(t)

	raw, rawStats, err := EncodeWithStats(table, WithCompression(format.CompressionNone))
	require.NoError(t, err)
	require.Equal(t, format.CompressionNone, rawStats.Algorithm)
	require.Equal(t, rawStats.OriginalSize, rawStats.CompressedSize)
	require.Equal(t, int64((len(metaColumns)+6)*100*8), rawStats.OriginalSize)

	packed, stats, err := EncodeWithStats(table, WithCompression(format.CompressionZstd))
	require.NoError(t, err)
	require.Less(t, stats.CompressedSize, stats.OriginalSize)
	require.Less(t, len(packed), len(raw))
}

func TestDecodedTableProjects(t *testing.T) {
	data, err := Encode(testTable(t))
	require.NoError(t, err)
	archive, err := Decode(data)
	require.NoError(t, err)
	table, err := archive.Table()
	require.NoError(t, err)

	p := posterior.NewProjector(table)
	v, err := p.FittedValue(0, observation.Observation{Row: 1, Group: "north", Predictor: 20})
	require.NoError(t, err)
	require.InDelta(t, math.Exp(3+0-10/20.0), v.Value, 1e-12)
	require.False(t, v.PopulationOnly)
}

func TestDecodeErrors(t *testing.T) {
	data, err := Encode(testTable(t), WithCompression(format.CompressionS2))
	require.NoError(t, err)

	corrupt := func(fn func(b []byte) []byte) []byte {
		b := append([]byte(nil), data...)
		return fn(b)
	}

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"short header", data[:10], errs.ErrInvalidHeaderSize},
		{"bad magic", corrupt(func(b []byte) []byte { b[1] ^= 0xFF; return b }), errs.ErrInvalidMagicNumber},
		{"bad version", corrupt(func(b []byte) []byte { b[2] = 9; return b }), errs.ErrInvalidVersion},
		{"bad compression", corrupt(func(b []byte) []byte { b[3] = 0x7; return b }), errs.ErrCompressionMismatch},
		{"flipped payload bit", corrupt(func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }), errs.ErrChecksumMismatch},
		{"truncated", data[:len(data)-5], errs.ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

// reseal recomputes the checksum of a modified archive in place.
func reseal(t *testing.T, b []byte) {
	t.Helper()

	h, err := ParseHeader(b)
	require.NoError(t, err)
	h.Checksum = archiveChecksum(b)
	copy(b, h.Bytes())
}

func TestDecodeTamperedDrawCount(t *testing.T) {
	data, err := Encode(testTable(t), WithCompression(format.CompressionZstd))
	require.NoError(t, err)

	tests := []struct {
		name   string
		count  uint32
		reseal bool
		err    error
	}{
		{"huge count", 0xFFFFFFF0, false, errs.ErrChecksumMismatch},
		{"short count", 60, false, errs.ErrChecksumMismatch},
		{"huge count resealed", 0xFFFFFFF0, true, errs.ErrInvalidPayload},
		{"short count resealed", 60, true, errs.ErrInvalidPayload},
		{"long count resealed", 101, true, errs.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), data...)
			NewFlag().Engine().PutUint32(b[8:12], tt.count)
			if tt.reseal {
				reseal(t, b)
			}

			_, err := Decode(b)
			require.ErrorIs(t, err, tt.err)

			_, err = ReadColumn(b, "a")
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecodeTamperedHeaderFields(t *testing.T) {
	data, err := Encode(testTable(t), WithCompression(format.CompressionNone))
	require.NoError(t, err)

	// any count or offset byte is covered by the checksum
	for _, off := range []int{4, 12, 16, 20, 24} {
		b := append([]byte(nil), data...)
		b[off] ^= 0x01
		_, err := Decode(b)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch, "byte %d", off)
	}
}

func TestDecodeColumnMismatch(t *testing.T) {
	data, err := Encode(testTable(t), WithCompression(format.CompressionNone))
	require.NoError(t, err)

	h, err := ParseHeader(data)
	require.NoError(t, err)

	// rename the first value column's ID and re-seal the checksum
	b := append([]byte(nil), data...)
	off := int(h.IndexOffset) + len(metaColumns)*IndexEntrySize
	b[off] ^= 0xFF
	reseal(t, b)

	_, err = Decode(b)
	require.ErrorIs(t, err, errs.ErrColumnIDMismatch)
}

func TestWithCompressionInvalid(t *testing.T) {
	_, err := Encode(testTable(t), WithCompression(format.CompressionType(0x9)))
	require.Error(t, err)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader()
	h.Flag.WithBigEndian()
	h.Flag.SetCompressionType(format.CompressionLZ4)
	h.ColumnCount = 14
	h.DrawCount = 4000
	h.ModelSize = 210
	h.IndexOffset = HeaderSize + 210
	h.PayloadOffset = h.IndexOffset + 14*IndexEntrySize
	h.PayloadSize = 14 * 4000 * 8
	h.Checksum = 0xDEADBEEF

	parsed, err := ParseHeader(h.Bytes())
	require.NoError(t, err)
	require.Equal(t, *h, parsed)
	require.False(t, parsed.Flag.IsLittleEndian())
	require.Equal(t, format.CompressionLZ4, parsed.Flag.CompressionType())

	h.Flag.WithLittleEndian()
	require.True(t, h.Flag.IsLittleEndian())
}

func TestSectionStrings(t *testing.T) {
	w := &sectionWriter{engine: NewFlag().Engine()}
	w.putStrings([]string{"", "a", "höhe"})
	w.putString(string(make([]byte, maxStringLen+1)))
	require.ErrorIs(t, w.err, errs.ErrTextTooLong)

	r := &sectionReader{data: w.buf, engine: NewFlag().Engine()}
	require.Equal(t, []string{"", "a", "höhe"}, r.readStrings("name"))
	require.NoError(t, r.err)

	r = &sectionReader{data: w.buf[:4], engine: NewFlag().Engine()}
	r.readStrings("name")
	require.ErrorIs(t, r.err, errs.ErrInvalidPayload)
}

func TestReadColumn(t *testing.T) {
	table := testTable(t)
	data, err := Encode(table, WithBigEndian(), WithCompression(format.CompressionS2))
	require.NoError(t, err)

	north, err := ReadColumn(data, "a[north]")
	require.NoError(t, err)
	want, err := table.Column("a[north]")
	require.NoError(t, err)
	require.Equal(t, want, north)

	steps, err := ReadColumn(data, ColumnStepSize)
	require.NoError(t, err)
	require.Len(t, steps, 100)
	require.InDelta(t, 0.25, steps[0], 0)
	require.InDelta(t, 0.35, steps[99], 1e-15)

	_, err = ReadColumn(data, "a[east]")
	require.ErrorIs(t, err, errs.ErrUnknownColumn)

	data[len(data)-1] ^= 0xFF
	_, err = ReadColumn(data, "a")
	require.ErrorIs(t, err, errs.ErrChecksumMismatch)
}

func TestModelSectionDisabledChecks(t *testing.T) {
	m := testTable(t).Model()
	spec := m.Spec()
	spec.Control.MinESS = model.NoESSCheck
	spec.Control.MaxNumericalRetries = model.NoNumericalRetries

	engine := NewFlag().Engine()
	b, err := encodeModel(spec, []string{"north"}, engine)
	require.NoError(t, err)

	got, groups, err := decodeModel(b, engine)
	require.NoError(t, err)
	require.Equal(t, []string{"north"}, groups)
	require.Equal(t, spec.Control, got.Control)
}
