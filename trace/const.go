package trace

const (
	// EndiannessMask selects big-endian numbers when set (bit 1).
	EndiannessMask = 0x0002
	// MagicNumberMask covers bits 4-15 of the flag options.
	MagicNumberMask = 0xFFF0
	// MagicTraceV1Opt identifies a posterior trace archive.
	MagicTraceV1Opt = 0xEC10

	// Version is the archive layout version written by this package.
	Version = 1
)

const (
	HeaderSize     = 32 // fixed header size in bytes
	IndexEntrySize = 16 // fixed index entry size in bytes
	ModelOffset    = HeaderSize
	maxStringLen   = 1<<16 - 1
	maxListLen     = 1<<16 - 1
)

// Column kinds stored in index entries.
const (
	KindMeta  uint8 = 1
	KindValue uint8 = 2
)

// Metadata column names. Values of integer and boolean fields are stored as
// float64 like every other column.
const (
	ColumnChain      = "__chain"
	ColumnIteration  = "__iteration"
	ColumnDivergent  = "__divergent"
	ColumnTreeDepth  = "__tree_depth"
	ColumnLeapfrogs  = "__leapfrogs"
	ColumnStepSize   = "__step_size"
	ColumnAccept     = "__accept_stat"
	ColumnLogDensity = "__log_density"
)

var metaColumns = []string{
	ColumnChain, ColumnIteration, ColumnDivergent, ColumnTreeDepth,
	ColumnLeapfrogs, ColumnStepSize, ColumnAccept, ColumnLogDensity,
}
