package posterior

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/model"
)

// Draw is one retained posterior draw with its sampler diagnostics.
type Draw struct {
	// Chain is the chain index.
	Chain int
	// Iteration is the post-warmup iteration index within the chain.
	Iteration int
	// Values holds the constrained parameter values, aligned with Table.Columns.
	Values []float64
	// Divergent flags a trajectory whose energy error exceeded the threshold.
	Divergent bool
	// TreeDepth is the NUTS tree depth of the transition.
	TreeDepth int
	// Leapfrogs is the number of leapfrog steps of the transition.
	Leapfrogs int
	// StepSize is the integrator step size used.
	StepSize float64
	// AcceptStat is the mean Metropolis acceptance over the trajectory.
	AcceptStat float64
	// LogDensity is the unnormalized log posterior density, Jacobians included.
	LogDensity float64
}

// Table is the immutable draw table of a fit.
type Table struct {
	model  *model.Model
	layout *model.Layout
	draws  []Draw
	chains []int
	starts []int
}

// NewTable builds a Table from draws.
//
// Draws are stored in chain-major order: sorted by chain, then iteration. The
// draws slice is copied; Values slices are shared and must not be modified
// afterwards.
//
// Parameters:
//   - m: The compiled model
//   - layout: The parameter layout the draws were sampled in
//   - draws: Retained draws of every chain
//
// Returns:
//   - *Table: The table
//   - error: errs.ErrEmptyTable for no draws, errs.ErrInvalidPayload when a
//     draw's value count does not match the layout
func NewTable(m *model.Model, layout *model.Layout, draws []Draw) (*Table, error) {
	if len(draws) == 0 {
		return nil, errs.ErrEmptyTable
	}
	for i, d := range draws {
		if len(d.Values) != layout.Dim() {
			return nil, fmt.Errorf("%w: draw %d has %d values, layout has %d columns",
				errs.ErrInvalidPayload, i, len(d.Values), layout.Dim())
		}
	}

	sorted := slices.Clone(draws)
	slices.SortStableFunc(sorted, func(a, b Draw) int {
		if c := cmp.Compare(a.Chain, b.Chain); c != 0 {
			return c
		}

		return cmp.Compare(a.Iteration, b.Iteration)
	})

	t := &Table{model: m, layout: layout, draws: sorted}
	for i, d := range sorted {
		if i == 0 || d.Chain != sorted[i-1].Chain {
			t.chains = append(t.chains, d.Chain)
			t.starts = append(t.starts, i)
		}
	}
	t.starts = append(t.starts, len(sorted))

	return t, nil
}

// Model returns the compiled model.
func (t *Table) Model() *model.Model { return t.model }

// Layout returns the parameter layout.
func (t *Table) Layout() *model.Layout { return t.layout }

// Groups returns the group names seen at fit time.
func (t *Table) Groups() []string { return slices.Clone(t.layout.Groups()) }

// Columns returns the column names.
func (t *Table) Columns() []string { return slices.Clone(t.layout.Names()) }

// Len returns the number of draws.
func (t *Table) Len() int { return len(t.draws) }

// Draw returns draw i. The Values slice must not be modified.
func (t *Table) Draw(i int) Draw { return t.draws[i] }

// All iterates the draws in chain-major order.
func (t *Table) All() iter.Seq2[int, Draw] {
	return func(yield func(int, Draw) bool) {
		for i, d := range t.draws {
			if !yield(i, d) {
				return
			}
		}
	}
}

// Chains returns the chain indices present in the table.
func (t *Table) Chains() []int { return slices.Clone(t.chains) }

// NumChains returns the number of chains present.
func (t *Table) NumChains() int { return len(t.chains) }

// Divergences returns the number of divergent draws.
func (t *Table) Divergences() int {
	n := 0
	for _, d := range t.draws {
		if d.Divergent {
			n++
		}
	}

	return n
}

// ColumnAt returns the values of column j across all draws.
func (t *Table) ColumnAt(j int) []float64 {
	out := make([]float64, len(t.draws))
	for i, d := range t.draws {
		out[i] = d.Values[j]
	}

	return out
}

// Column returns the values of a named column across all draws.
func (t *Table) Column(name string) ([]float64, error) {
	j, ok := t.layout.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownColumn, name)
	}

	return t.ColumnAt(j), nil
}

// Mean returns the posterior mean of a named column.
func (t *Table) Mean(name string) (float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return 0, err
	}

	return stat.Mean(col, nil), nil
}

// ChainColumnAt returns column j split by chain, one slice per chain in
// Chains order.
func (t *Table) ChainColumnAt(j int) [][]float64 {
	out := make([][]float64, len(t.chains))
	for c := range t.chains {
		draws := t.draws[t.starts[c]:t.starts[c+1]]
		col := make([]float64, len(draws))
		for i, d := range draws {
			col[i] = d.Values[j]
		}
		out[c] = col
	}

	return out
}

// ChainColumn returns a named column split by chain.
func (t *Table) ChainColumn(name string) ([][]float64, error) {
	j, ok := t.layout.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownColumn, name)
	}

	return t.ChainColumnAt(j), nil
}
