package trace

import (
	"fmt"

	"github.com/arloliu/hierfit/format"
	"github.com/arloliu/hierfit/internal/options"
)

// EncoderConfig holds archive encoding settings.
type EncoderConfig struct {
	// Compression is the payload codec. Defaults to zstd.
	Compression format.CompressionType
	// BigEndian writes numbers big-endian. Defaults to little-endian.
	BigEndian bool
}

// EncoderOption configures Encode.
type EncoderOption = options.Option[*EncoderConfig]

func defaultEncoderConfig() EncoderConfig {
	return EncoderConfig{Compression: format.CompressionZstd}
}

// WithCompression selects the payload codec.
func WithCompression(c format.CompressionType) EncoderOption {
	return options.New(func(cfg *EncoderConfig) error {
		if _, ok := validCompressions[c]; !ok {
			return fmt.Errorf("invalid trace compression: %s", c)
		}
		cfg.Compression = c

		return nil
	})
}

// WithBigEndian writes numbers big-endian.
func WithBigEndian() EncoderOption {
	return options.NoError(func(cfg *EncoderConfig) {
		cfg.BigEndian = true
	})
}
