package compress

// ZstdCompressor compresses trace payloads with Zstandard.
//
// It gives the best ratio of the built-in codecs and is the default for archives
// written by the CLI.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a Zstd codec.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
