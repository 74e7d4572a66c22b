package trace

import (
	"fmt"

	"github.com/arloliu/hierfit/endian"
	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/format"
)

// Flag is the packed first word of the header.
type Flag struct {
	// Options holds the endianness bit (bit 1) and the magic number (bits 4-15).
	// Bits 0, 2 and 3 are reserved and must be zero.
	Options uint16
	// Version is the layout version.
	Version uint8
	// Compression is the payload compression type.
	Compression uint8
}

var validCompressions = map[format.CompressionType]struct{}{
	format.CompressionNone: {},
	format.CompressionZstd: {},
	format.CompressionS2:   {},
	format.CompressionLZ4:  {},
}

// NewFlag returns a little-endian, zstd-compressed flag.
func NewFlag() Flag {
	return Flag{
		Options:     MagicTraceV1Opt,
		Version:     Version,
		Compression: uint8(format.CompressionZstd),
	}
}

// IsLittleEndian reports whether numbers are little-endian.
func (f Flag) IsLittleEndian() bool {
	return f.Options&EndiannessMask == 0
}

// WithBigEndian switches to big-endian numbers.
func (f *Flag) WithBigEndian() {
	f.Options |= EndiannessMask
}

// WithLittleEndian switches to little-endian numbers.
func (f *Flag) WithLittleEndian() {
	f.Options &^= EndiannessMask
}

// MagicNumber returns bits 4-15 of the options.
func (f Flag) MagicNumber() uint16 {
	return f.Options & MagicNumberMask
}

// CompressionType returns the payload compression.
func (f Flag) CompressionType() format.CompressionType {
	return format.CompressionType(f.Compression)
}

// SetCompressionType sets the payload compression.
func (f *Flag) SetCompressionType(c format.CompressionType) {
	f.Compression = uint8(c)
}

// Validate checks the magic number, version and compression type.
func (f Flag) Validate() error {
	if f.MagicNumber() != MagicTraceV1Opt {
		return fmt.Errorf("%w: 0x%04x", errs.ErrInvalidMagicNumber, f.MagicNumber())
	}
	if f.Version != Version {
		return fmt.Errorf("%w: %d", errs.ErrInvalidVersion, f.Version)
	}
	if _, ok := validCompressions[f.CompressionType()]; !ok {
		return fmt.Errorf("%w: %d", errs.ErrCompressionMismatch, f.Compression)
	}

	return nil
}

// Engine returns the byte order engine selected by the flag.
func (f Flag) Engine() endian.EndianEngine {
	return endian.EngineFor(!f.IsLittleEndian())
}
