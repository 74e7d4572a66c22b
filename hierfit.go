// Package hierfit fits hierarchical nonlinear regression models to grouped
// measurements and summarizes their posterior predictions.
//
// A model is a mean function such as "exp(a + b/x)" whose parameters each have a
// population value and, optionally, a per-group random effect. The posterior is
// sampled with the No-U-Turn Sampler; draws can be projected onto new
// observations and reduced to quantile bands.
//
// # Core Features
//
//   - Mean functions in Go expression syntax with analytic gradients
//   - Normal, Student-t and exponential priors; half priors on scale parameters
//   - Non-centered group effects and windowed metric adaptation
//   - Split R-hat and multi-chain effective sample size diagnostics
//   - Reproducible parallel chains: one PCG stream per chain
//   - Compressed, checksummed trace archives (zstd, S2, LZ4)
//
// # Basic Usage
//
//	spec, _ := model.NewPresetSpec("michailoff", true, false,
//	    model.Normal(3, 1), model.Normal(-10, 5))
//
//	res, err := hierfit.Fit(ctx, observations, spec)
//	if err != nil {
//	    return err
//	}
//	if err := res.Diagnostics.Err(); err != nil {
//	    log.Printf("check convergence: %v", err)
//	}
//
//	values, _ := hierfit.Project(res.Table, newRows, posterior.ModeFitted)
//	bands, _ := hierfit.Bands(values, hierfit.ByRow)
//
// # Package Structure
//
// This package wraps the engine packages for the common path. Use them directly
// for finer control: observation (validated data), model (specs and priors),
// sampler (NUTS), posterior (draw tables and projection), summary (bands),
// regression (pooled least-squares fits) and trace (archives).
package hierfit

import (
	"context"
	"fmt"
	"io"

	"github.com/arloliu/hierfit/model"
	"github.com/arloliu/hierfit/observation"
	"github.com/arloliu/hierfit/posterior"
	"github.com/arloliu/hierfit/regression"
	"github.com/arloliu/hierfit/sampler"
	"github.com/arloliu/hierfit/summary"
	"github.com/arloliu/hierfit/trace"
)

// Grouping selects the key projected values are summarized by.
type Grouping uint8

const (
	// ByRow yields one band per observation row.
	ByRow Grouping = iota
	// ByGroup yields one band per group.
	ByGroup
)

// Fit validates obs and samples the posterior of spec.
//
// Parameters:
//   - ctx: Cancels sampling
//   - obs: Observations in source order; zero rows are numbered from 1
//   - spec: The model specification
//   - opts: Sampler options (logger, parallelism, initialization)
//
// Returns:
//   - *sampler.Result: Draws and diagnostics. See sampler.FitModel for the
//     partial result returned on cancellation.
//   - error: Observation, specification, data or sampling errors
//
// Example:
//
//	res, err := hierfit.Fit(ctx, obs, spec, sampler.WithParallelism(2))
func Fit(ctx context.Context, obs []observation.Observation, spec *model.Spec, opts ...sampler.Option) (*sampler.Result, error) {
	set, err := observation.NewSet(obs)
	if err != nil {
		return nil, err
	}

	return sampler.Fit(ctx, set, spec, opts...)
}

// Project evaluates the posterior of table at rows.
//
// Parameters:
//   - table: A fitted or decoded posterior table
//   - rows: Observations to project; Response is ignored
//   - mode: posterior.ModeFitted or posterior.ModePredicted
//   - opts: posterior.WithMaxDraws, posterior.WithSeed
//
// Returns:
//   - []posterior.ProjectedValue: Values ordered by row, then draw
//   - error: Invalid rows or options
func Project(table *posterior.Table, rows []observation.Observation, mode posterior.Mode, opts ...posterior.ProjectOption) ([]posterior.ProjectedValue, error) {
	return posterior.NewProjector(table).Project(rows, mode, opts...)
}

// Bands reduces projected values to quantile bands.
//
// Returns:
//   - []summary.Band: One band per key, in first-appearance order
//   - error: errs.ErrInsufficientDraws or errs.ErrInvalidInterval
func Bands(values []posterior.ProjectedValue, by Grouping, opts ...summary.Option) ([]summary.Band, error) {
	switch by {
	case ByRow:
		return summary.ByRow(values, opts...)
	case ByGroup:
		return summary.ByGroup(values, opts...)
	default:
		return nil, fmt.Errorf("unknown grouping %d", by)
	}
}

// ComparePresets fits every mean function preset to all observations, ignoring
// groups, and ranks them by R².
func ComparePresets(obs []observation.Observation, opts ...regression.FitOption) (*regression.Result, error) {
	set, err := observation.NewSet(obs)
	if err != nil {
		return nil, err
	}
	x, y := set.Columns()

	return regression.ComparePresets(x, y, opts...)
}

// SaveTrace writes table to w as a trace archive.
func SaveTrace(w io.Writer, table *posterior.Table, opts ...trace.EncoderOption) error {
	data, err := trace.Encode(table, opts...)
	if err != nil {
		return err
	}
	_, err = w.Write(data)

	return err
}

// LoadTrace reads a trace archive from r and rebuilds its posterior table.
func LoadTrace(r io.Reader) (*posterior.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	archive, err := trace.Decode(data)
	if err != nil {
		return nil, err
	}

	return archive.Table()
}
