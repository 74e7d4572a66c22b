package trace

import (
	"github.com/klauspost/crc32"

	"github.com/arloliu/hierfit/errs"
)

// checksumOffset is the position of the checksum field in the header.
const checksumOffset = 28

// Header is the fixed-size header at the start of an archive.
type Header struct {
	// Flag holds options, version and compression. Byte offset 0-3.
	Flag Flag
	// ColumnCount is the number of index entries, metadata columns included.
	// Byte offset 4-7.
	ColumnCount uint32
	// DrawCount is the number of draws, i.e. the length of every column.
	// Byte offset 8-11.
	DrawCount uint32
	// IndexOffset is the byte offset of the index section. Byte offset 12-15.
	IndexOffset uint32
	// PayloadOffset is the byte offset of the compressed payload. Byte offset 16-19.
	PayloadOffset uint32
	// PayloadSize is the decompressed payload size. Byte offset 20-23.
	PayloadSize uint32
	// ModelSize is the byte length of the model section, which starts right
	// after the header. Byte offset 24-27.
	ModelSize uint32
	// Checksum is the CRC32 (IEEE) of header bytes 0-27 followed by every byte
	// after the header. Byte offset 28-31.
	Checksum uint32
}

// NewHeader returns a header with the default flag. Counts and offsets are set
// by the encoder.
func NewHeader() *Header {
	return &Header{Flag: NewFlag()}
}

// Parse decodes the header from exactly HeaderSize bytes.
//
// Returns:
//   - error: errs.ErrInvalidHeaderSize for a wrong length, or a flag validation error
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	// the options word is always little-endian so the byte order can be read
	h.Flag.Options = uint16(data[0]) | uint16(data[1])<<8
	h.Flag.Version = data[2]
	h.Flag.Compression = data[3]

	engine := h.Flag.Engine()
	h.ColumnCount = engine.Uint32(data[4:8])
	h.DrawCount = engine.Uint32(data[8:12])
	h.IndexOffset = engine.Uint32(data[12:16])
	h.PayloadOffset = engine.Uint32(data[16:20])
	h.PayloadSize = engine.Uint32(data[20:24])
	h.ModelSize = engine.Uint32(data[24:28])
	h.Checksum = engine.Uint32(data[28:32])

	return h.Flag.Validate()
}

// Bytes serializes the header.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := h.Flag.Engine()

	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = h.Flag.Version
	b[3] = h.Flag.Compression
	engine.PutUint32(b[4:8], h.ColumnCount)
	engine.PutUint32(b[8:12], h.DrawCount)
	engine.PutUint32(b[12:16], h.IndexOffset)
	engine.PutUint32(b[16:20], h.PayloadOffset)
	engine.PutUint32(b[20:24], h.PayloadSize)
	engine.PutUint32(b[24:28], h.ModelSize)
	engine.PutUint32(b[28:32], h.Checksum)

	return b
}

// ParseHeader parses the header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.ErrInvalidHeaderSize
	}

	var h Header
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}

// archiveChecksum computes the checksum of a complete archive, skipping the
// checksum field itself. data must hold at least HeaderSize bytes.
func archiveChecksum(data []byte) uint32 {
	sum := crc32.ChecksumIEEE(data[:checksumOffset])
	return crc32.Update(sum, crc32.IEEETable, data[HeaderSize:])
}
