package trace

import (
	"fmt"
	"math"

	"github.com/arloliu/hierfit/compress"
	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/internal/collision"
	"github.com/arloliu/hierfit/internal/hash"
	"github.com/arloliu/hierfit/internal/options"
	"github.com/arloliu/hierfit/internal/pool"
	"github.com/arloliu/hierfit/posterior"
)

// Encode serializes a posterior table into an archive.
//
// Parameters:
//   - t: The table to archive
//   - opts: Optional compression and byte order settings
//
// Returns:
//   - []byte: The archive, owned by the caller
//   - error: Option, size or compression errors, or errs.ErrHashCollision when
//     two column names share an ID
func Encode(t *posterior.Table, opts ...EncoderOption) ([]byte, error) {
	data, _, err := EncodeWithStats(t, opts...)
	return data, err
}

// EncodeWithStats is Encode and additionally reports payload compression
// statistics.
func EncodeWithStats(t *posterior.Table, opts ...EncoderOption) ([]byte, compress.CompressionStats, error) {
	cfg := defaultEncoderConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, compress.CompressionStats{}, err
	}

	header := NewHeader()
	header.Flag.SetCompressionType(cfg.Compression)
	if cfg.BigEndian {
		header.Flag.WithBigEndian()
	}
	engine := header.Flag.Engine()

	modelBytes, err := encodeModel(t.Model().Spec(), t.Groups(), engine)
	if err != nil {
		return nil, compress.CompressionStats{}, err
	}

	columns := t.Columns()
	numCols := len(metaColumns) + len(columns)
	colBytes := t.Len() * 8
	payloadSize := numCols * colBytes
	if uint64(payloadSize) > math.MaxUint32 {
		return nil, compress.CompressionStats{}, fmt.Errorf("%w: payload of %d bytes exceeds the archive limit",
			errs.ErrInvalidPayload, payloadSize)
	}

	payload := pool.GetTraceBuffer()
	defer pool.PutTraceBuffer(payload)
	payload.Grow(payloadSize)

	index := make([]byte, 0, numCols*IndexEntrySize)
	tracker := collision.NewTracker(numCols)
	addColumn := func(name string, kind uint8, value func(d posterior.Draw) float64) error {
		id := hash.ColumnID(name)
		if err := tracker.Track(name, id); err != nil {
			return err
		}
		entry := IndexEntry{ColumnID: id, Kind: kind, Offset: uint32(payload.Len())} //nolint: gosec
		index = entry.AppendTo(index, engine)
		for _, d := range t.All() {
			payload.AppendFloat64(engine, value(d))
		}

		return nil
	}

	for _, name := range metaColumns {
		if err := addColumn(name, KindMeta, metaValue(name)); err != nil {
			return nil, compress.CompressionStats{}, err
		}
	}
	for j, name := range columns {
		if err := addColumn(name, KindValue, func(d posterior.Draw) float64 { return d.Values[j] }); err != nil {
			return nil, compress.CompressionStats{}, err
		}
	}

	codec, err := compress.GetCodec(cfg.Compression)
	if err != nil {
		return nil, compress.CompressionStats{}, err
	}
	compressed, stats, err := compress.CompressWithStats(codec, cfg.Compression, payload.Bytes())
	if err != nil {
		return nil, compress.CompressionStats{}, fmt.Errorf("compress trace payload: %w", err)
	}

	header.ColumnCount = uint32(numCols)                           //nolint: gosec
	header.DrawCount = uint32(t.Len())                             //nolint: gosec
	header.ModelSize = uint32(len(modelBytes))                     //nolint: gosec
	header.IndexOffset = uint32(HeaderSize + len(modelBytes))      //nolint: gosec
	header.PayloadOffset = header.IndexOffset + uint32(len(index)) //nolint: gosec
	header.PayloadSize = uint32(payloadSize)                       //nolint: gosec

	out := make([]byte, 0, int(header.PayloadOffset)+len(compressed))
	out = append(out, make([]byte, HeaderSize)...)
	out = append(out, modelBytes...)
	out = append(out, index...)
	out = append(out, compressed...)

	copy(out, header.Bytes())
	header.Checksum = archiveChecksum(out)
	copy(out, header.Bytes())

	return out, stats, nil
}

// metaValue returns the accessor of a metadata column.
func metaValue(name string) func(d posterior.Draw) float64 {
	switch name {
	case ColumnChain:
		return func(d posterior.Draw) float64 { return float64(d.Chain) }
	case ColumnIteration:
		return func(d posterior.Draw) float64 { return float64(d.Iteration) }
	case ColumnDivergent:
		return func(d posterior.Draw) float64 {
			if d.Divergent {
				return 1
			}
			return 0
		}
	case ColumnTreeDepth:
		return func(d posterior.Draw) float64 { return float64(d.TreeDepth) }
	case ColumnLeapfrogs:
		return func(d posterior.Draw) float64 { return float64(d.Leapfrogs) }
	case ColumnStepSize:
		return func(d posterior.Draw) float64 { return d.StepSize }
	case ColumnAccept:
		return func(d posterior.Draw) float64 { return d.AcceptStat }
	default:
		return func(d posterior.Draw) float64 { return d.LogDensity }
	}
}
