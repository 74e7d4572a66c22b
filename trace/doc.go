// Package trace stores posterior draw tables in a compact binary archive.
//
// An archive is self-contained: it carries the model specification, the group
// names seen at fit time and every retained draw with its sampler metadata, so
// a decoded archive can be turned back into a projection-ready
// posterior.Table without the original observations.
//
// # Layout
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Header (32 bytes, fixed)                                │
//	│  - Flag (4 bytes): options/magic, version, compression  │
//	│  - ColumnCount, DrawCount (8 bytes)                     │
//	│  - Index/Payload offsets and payload size (12 bytes)    │
//	│  - Model section size (4 bytes)                         │
//	│  - CRC32 of header bytes 0-27 and all later bytes (4 B) │
//	├─────────────────────────────────────────────────────────┤
//	│ Model section (variable)                                │
//	│  - Mean function, predictor, effects, priors, groups    │
//	│  - Control settings                                     │
//	├─────────────────────────────────────────────────────────┤
//	│ Index (N × 16 bytes)                                    │
//	│  - xxHash64 column ID, kind, offset                     │
//	├─────────────────────────────────────────────────────────┤
//	│ Payload (variable, compressed)                          │
//	│  - One float64 column per metadata field and parameter  │
//	└─────────────────────────────────────────────────────────┘
//
// Strings are uint16 length-prefixed UTF-8. Numbers use the byte order recorded
// in the header flag; little-endian is the default.
//
// # Usage
//
//	data, err := trace.Encode(res.Table, trace.WithCompression(format.CompressionZstd))
//	...
//	archive, err := trace.Decode(data)
//	table, err := archive.Table()
//
// ReadColumn pulls a single column out of an archive by name, which is enough
// for trace plots and ad hoc checks:
//
//	sigma, err := trace.ReadColumn(data, "sigma")
package trace
