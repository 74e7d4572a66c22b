package trace

import (
	"fmt"
	"math"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/internal/hash"
)

// ReadColumn extracts one column of an archive by name without decoding the
// model section or building a table.
//
// name is a parameter column such as "a", "sd_a", "a[north]" or "sigma", or
// one of the metadata columns (ColumnChain, ColumnStepSize, ...).
//
// Returns:
//   - []float64: One value per draw, in chain-major order
//   - error: Header and checksum errors as for Decode, or errs.ErrUnknownColumn
func ReadColumn(data []byte, name string) ([]float64, error) {
	header, err := verify(data)
	if err != nil {
		return nil, err
	}
	engine := header.Flag.Engine()

	id := hash.ColumnID(name)
	var (
		entry IndexEntry
		found bool
	)
	for i := range int(header.ColumnCount) {
		off := int(header.IndexOffset) + i*IndexEntrySize
		e, err := ParseIndexEntry(data[off:off+IndexEntrySize], engine)
		if err != nil {
			return nil, err
		}
		if e.ColumnID != id {
			continue
		}
		if found {
			return nil, fmt.Errorf("%w: column id 0x%016x appears twice in the index", errs.ErrInvalidPayload, id)
		}
		entry, found = e, true
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownColumn, name)
	}

	payload, err := decompressPayload(data, header)
	if err != nil {
		return nil, err
	}

	n := int(header.DrawCount)
	start := int(entry.Offset)
	if start+n*8 > len(payload) {
		return nil, fmt.Errorf("%w: column %q overruns the payload", errs.ErrInvalidPayload, name)
	}

	out := make([]float64, n)
	for k := range out {
		out[k] = math.Float64frombits(engine.Uint64(payload[start+k*8:]))
	}

	return out, nil
}
