// Package compress provides the payload codecs of the trace archive.
//
// A trace payload is a sequence of fixed-width float64 columns (one per posterior
// column plus per-draw sampler metadata). Neighbouring draws of a well-mixed chain
// share exponents and leading mantissa bits, so general-purpose block compressors
// still remove a useful share of the bytes:
//
//   - None: payload stored as-is
//   - Zstd: best ratio, for archives kept on disk
//   - S2: balanced speed and ratio
//   - LZ4: fastest decompression
//
// All codecs are stateless values and safe for concurrent use. The zstd codec
// uses pooled klauspost/compress encoders by default; building with the
// cgo_zstd tag switches it to the cgo binding in valyala/gozstd.
//
//	codec, err := compress.CreateCodec(format.CompressionZstd, "trace payload")
//	if err != nil {
//	    return err
//	}
//	packed, err := codec.Compress(payload)
package compress
