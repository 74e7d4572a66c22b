package trace

import (
	"fmt"

	"github.com/arloliu/hierfit/endian"
	"github.com/arloliu/hierfit/errs"
)

// IndexEntry locates one column in the decompressed payload. It is 16 bytes on
// disk.
type IndexEntry struct {
	// ColumnID is the xxHash64 of the column name. Offset 0-7.
	ColumnID uint64
	// Kind is KindMeta or KindValue. Offset 8.
	Kind uint8
	// Reserved must be zero. Offset 9-11.
	Reserved [3]byte
	// Offset is the absolute byte offset of the column in the payload.
	// Offset 12-15. Every column is DrawCount×8 bytes long.
	Offset uint32
}

// AppendTo appends the serialized entry to b.
func (e IndexEntry) AppendTo(b []byte, engine endian.EndianEngine) []byte {
	b = engine.AppendUint64(b, e.ColumnID)
	b = append(b, e.Kind, e.Reserved[0], e.Reserved[1], e.Reserved[2])

	return engine.AppendUint32(b, e.Offset)
}

// ParseIndexEntry decodes an entry from the first IndexEntrySize bytes of data.
func ParseIndexEntry(data []byte, engine endian.EndianEngine) (IndexEntry, error) {
	if len(data) < IndexEntrySize {
		return IndexEntry{}, fmt.Errorf("%w: index entry needs %d bytes, have %d",
			errs.ErrInvalidPayload, IndexEntrySize, len(data))
	}

	e := IndexEntry{
		ColumnID: engine.Uint64(data[0:8]),
		Kind:     data[8],
		Reserved: [3]byte{data[9], data[10], data[11]},
		Offset:   engine.Uint32(data[12:16]),
	}
	if e.Kind != KindMeta && e.Kind != KindValue {
		return IndexEntry{}, fmt.Errorf("%w: unknown column kind %d", errs.ErrInvalidPayload, e.Kind)
	}

	return e, nil
}
