package trace

import (
	"fmt"
	"math"

	"github.com/arloliu/hierfit/compress"
	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/internal/hash"
	"github.com/arloliu/hierfit/model"
	"github.com/arloliu/hierfit/posterior"
)

// Archive is a decoded trace.
type Archive struct {
	// Header is the parsed archive header.
	Header Header
	// Spec is the archived model specification, control included.
	Spec model.Spec
	// Groups lists the group names seen at fit time.
	Groups []string
	// Draws holds every archived draw in chain-major order.
	Draws []posterior.Draw

	model  *model.Model
	layout *model.Layout
}

// Decode parses and verifies an archive.
//
// The checksum is verified before anything else is decoded. The archived spec is
// recompiled and the column IDs in the index must match the column names its
// layout produces.
//
// Returns:
//   - *Archive: The decoded archive
//   - error: errs.ErrInvalidHeaderSize, errs.ErrInvalidMagicNumber,
//     errs.ErrInvalidVersion, errs.ErrCompressionMismatch, errs.ErrChecksumMismatch,
//     errs.ErrInvalidPayload or errs.ErrColumnIDMismatch
func Decode(data []byte) (*Archive, error) {
	header, err := verify(data)
	if err != nil {
		return nil, err
	}

	engine := header.Flag.Engine()
	spec, groups, err := decodeModel(data[HeaderSize:header.IndexOffset], engine)
	if err != nil {
		return nil, err
	}
	m, err := spec.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: archived model: %w", errs.ErrInvalidPayload, err)
	}
	layout := model.NewLayout(m, groups)

	numCols := len(metaColumns) + layout.Dim()
	if int(header.ColumnCount) != numCols {
		return nil, fmt.Errorf("%w: %d columns in index, model has %d",
			errs.ErrColumnIDMismatch, header.ColumnCount, numCols)
	}

	names := append(append([]string(nil), metaColumns...), layout.Names()...)
	entries := make([]IndexEntry, numCols)
	for i := range entries {
		off := int(header.IndexOffset) + i*IndexEntrySize
		e, err := ParseIndexEntry(data[off:off+IndexEntrySize], engine)
		if err != nil {
			return nil, err
		}
		if want := hash.ColumnID(names[i]); e.ColumnID != want {
			return nil, fmt.Errorf("%w: column %q at index %d: expected 0x%016x, got 0x%016x",
				errs.ErrColumnIDMismatch, names[i], i, want, e.ColumnID)
		}
		entries[i] = e
	}

	payload, err := decompressPayload(data, header)
	if err != nil {
		return nil, err
	}

	n := int(header.DrawCount)
	colBytes := n * 8
	column := func(i int) ([]byte, error) {
		off := int(entries[i].Offset)
		if off+colBytes > len(payload) {
			return nil, fmt.Errorf("%w: column %q overruns the payload", errs.ErrInvalidPayload, names[i])
		}

		return payload[off : off+colBytes], nil
	}

	draws := make([]posterior.Draw, n)
	values := make([]float64, n*layout.Dim())
	for k := range draws {
		draws[k].Values = values[k*layout.Dim() : (k+1)*layout.Dim() : (k+1)*layout.Dim()]
	}

	for i, name := range names {
		col, err := column(i)
		if err != nil {
			return nil, err
		}
		for k := range draws {
			v := math.Float64frombits(engine.Uint64(col[k*8:]))
			d := &draws[k]
			switch {
			case i >= len(metaColumns):
				d.Values[i-len(metaColumns)] = v
			case name == ColumnChain:
				d.Chain = int(v)
			case name == ColumnIteration:
				d.Iteration = int(v)
			case name == ColumnDivergent:
				d.Divergent = v != 0
			case name == ColumnTreeDepth:
				d.TreeDepth = int(v)
			case name == ColumnLeapfrogs:
				d.Leapfrogs = int(v)
			case name == ColumnStepSize:
				d.StepSize = v
			case name == ColumnAccept:
				d.AcceptStat = v
			case name == ColumnLogDensity:
				d.LogDensity = v
			}
		}
	}

	return &Archive{
		Header: header,
		Spec:   m.Spec(),
		Groups: groups,
		Draws:  draws,
		model:  m,
		layout: layout,
	}, nil
}

// Model returns the recompiled archived model.
func (a *Archive) Model() *model.Model { return a.model }

// Table rebuilds the posterior table. The table shares the archive's draw
// values.
func (a *Archive) Table() (*posterior.Table, error) {
	return posterior.NewTable(a.model, a.layout, a.Draws)
}

// verify parses the header of data and checks its checksum, the payload size
// against the column and draw counts, and the section offsets.
func verify(data []byte) (Header, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return Header{}, err
	}
	if sum := archiveChecksum(data); sum != header.Checksum {
		return Header{}, fmt.Errorf("%w: header 0x%08x, computed 0x%08x", errs.ErrChecksumMismatch, header.Checksum, sum)
	}

	// every column holds DrawCount float64 values
	if want := uint64(header.ColumnCount) * uint64(header.DrawCount) * 8; want != uint64(header.PayloadSize) {
		return Header{}, fmt.Errorf("%w: %d columns of %d draws need %d payload bytes, header says %d",
			errs.ErrInvalidPayload, header.ColumnCount, header.DrawCount, want, header.PayloadSize)
	}

	modelEnd := uint64(HeaderSize) + uint64(header.ModelSize)
	indexEnd := uint64(header.IndexOffset) + uint64(header.ColumnCount)*IndexEntrySize
	if uint64(header.IndexOffset) != modelEnd || uint64(header.PayloadOffset) != indexEnd ||
		indexEnd > uint64(len(data)) {
		return Header{}, fmt.Errorf("%w: inconsistent section offsets", errs.ErrInvalidPayload)
	}

	return header, nil
}

func decompressPayload(data []byte, header Header) ([]byte, error) {
	codec, err := compress.GetCodec(header.Flag.CompressionType())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCompressionMismatch, err)
	}
	payload, err := codec.Decompress(data[header.PayloadOffset:])
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %w", errs.ErrInvalidPayload, err)
	}
	if uint64(len(payload)) != uint64(header.PayloadSize) {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d",
			errs.ErrInvalidPayload, len(payload), header.PayloadSize)
	}

	return payload, nil
}
