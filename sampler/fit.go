package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/internal/options"
	"github.com/arloliu/hierfit/model"
	"github.com/arloliu/hierfit/observation"
	"github.com/arloliu/hierfit/posterior"
	"github.com/arloliu/hierfit/regression"
)

// Result is the outcome of a fit.
type Result struct {
	// Table holds the retained draws of every completed chain.
	Table *posterior.Table
	// Diagnostics summarizes convergence and sampler health.
	Diagnostics Diagnostics
	// Init is the pooled least-squares fit used for starting values, or nil
	// when pooled initialization was disabled or failed.
	Init *regression.Model
}

// Fit compiles spec and samples its posterior given set.
//
// See FitModel for the sampling contract.
func Fit(ctx context.Context, set observation.Set, spec *model.Spec, opts ...Option) (*Result, error) {
	m, err := spec.Compile()
	if err != nil {
		return nil, err
	}

	return FitModel(ctx, set, m, opts...)
}

// FitModel samples the posterior of a compiled model given set.
//
// All chains of m.Control() run concurrently, bounded by WithParallelism. The
// draws depend only on the data, the model and Control.Seed.
//
// Parameters:
//   - ctx: Cancels sampling; checked before every iteration of every chain
//   - set: The observations
//   - m: The compiled model
//   - opts: Optional sampler settings
//
// Returns:
//   - *Result: Draws of every completed chain with diagnostics. Returned even
//     when the chains did not converge; see Diagnostics.Err.
//   - error: errs.ErrInsufficientData from preflight checks; an error wrapping
//     errs.ErrSamplingCancelled on cancellation, together with a Result of the
//     chains that had completed (nil if none had); the joined chain errors when
//     every chain failed.
func FitModel(ctx context.Context, set observation.Set, m *model.Model, opts ...Option) (*Result, error) {
	cfg := defaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if err := preflight(set, m); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: 0 of %d chains completed: %w", errs.ErrSamplingCancelled, m.Control().Chains, err)
	}

	c := m.Control()
	logger := cfg.Logger
	pr := newProblem(m, set)
	starter := &initializer{pr: pr, radius: cfg.InitRadius}

	var pooled *regression.Model
	if cfg.PooledInit {
		x, y := set.Columns()
		fit, err := regression.FitPooled(m, x, y)
		if err != nil {
			logger.Debug("pooled init unavailable, using prior locations", zap.Error(err))
		} else {
			pooled = fit
			starter.pooled = fit
		}
	}

	logger.Info("sampling started",
		zap.String("mean_function", m.Expression().String()),
		zap.Int("observations", set.Len()),
		zap.Int("groups", set.NumGroups()),
		zap.Int("columns", pr.layout.Dim()),
		zap.Int("chains", c.Chains),
		zap.Int("iterations", c.Iterations),
		zap.Int("warmup", c.Warmup),
		zap.Uint64("seed", c.Seed))
	start := time.Now()

	runner := &chainRunner{pr: pr, init: starter, cfg: &cfg, logger: logger}
	results := make([]chainResult, c.Chains)

	var g errgroup.Group
	g.SetLimit(cfg.Parallelism)
	for i := range c.Chains {
		g.Go(func() error {
			results[i] = runner.run(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	var (
		draws     []posterior.Draw
		failures  []error
		cancelled error
		done      int
		stepSizes []float64
		depthHits int
	)
	for _, r := range results {
		switch {
		case r.err == nil:
			done++
			draws = append(draws, r.draws...)
			stepSizes = append(stepSizes, r.stepSize)
			depthHits += r.maxDepthHits
		case errors.Is(r.err, context.Canceled) || errors.Is(r.err, context.DeadlineExceeded):
			cancelled = r.err
		default:
			failures = append(failures, r.err)
		}
	}

	if cancelled != nil {
		err := fmt.Errorf("%w: %d of %d chains completed: %w", errs.ErrSamplingCancelled, done, c.Chains, cancelled)
		logger.Warn("sampling cancelled", zap.Int("completed", done), zap.Int("chains", c.Chains))
		if done == 0 {
			return nil, err
		}
		res, buildErr := buildResult(m, pr, draws, stepSizes, depthHits, failures, pooled)
		if buildErr != nil {
			return nil, errors.Join(err, buildErr)
		}

		return res, err
	}

	if done == 0 {
		logger.Error("every chain failed", zap.Errors("errors", failures))
		return nil, errors.Join(failures...)
	}

	res, err := buildResult(m, pr, draws, stepSizes, depthHits, failures, pooled)
	if err != nil {
		return nil, err
	}

	d := &res.Diagnostics
	fields := []zap.Field{
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chains", d.Chains),
		zap.Int("divergences", d.Divergences),
		zap.Int("max_tree_depth_hits", d.MaxTreeDepthHits),
		zap.Int("chain_failures", len(d.ChainFailures)),
		zap.Bool("converged", d.Converged),
	}
	if d.Converged {
		logger.Info("sampling finished", fields...)
	} else {
		logger.Warn("sampling finished without convergence", append(fields, zap.Error(d.Err()))...)
	}
	if d.Divergences > 0 {
		logger.Warn("divergent transitions after warmup",
			zap.Int("count", d.Divergences), zap.Error(errs.ErrDivergentTransition))
	}

	return res, nil
}

func buildResult(
	m *model.Model,
	pr *problem,
	draws []posterior.Draw,
	stepSizes []float64,
	depthHits int,
	failures []error,
	pooled *regression.Model,
) (*Result, error) {
	table, err := posterior.NewTable(m, pr.layout, draws)
	if err != nil {
		return nil, err
	}

	c := m.Control()
	d := diagnose(table, c.RHatThreshold, c.MinESS)
	d.StepSizes = stepSizes
	d.MaxTreeDepthHits = depthHits
	d.ChainFailures = failures

	return &Result{Table: table, Diagnostics: d, Init: pooled}, nil
}

// preflight rejects data that cannot identify the model.
func preflight(set observation.Set, m *model.Model) error {
	if set.NumGroups() == 0 {
		return &errs.InsufficientDataError{Reason: "no groups"}
	}
	if !m.HasGroupEffects() {
		return nil
	}

	required := m.Control().MinGroupResponses
	groups := set.Groups()
	for g, name := range groups {
		if n := set.DistinctResponses(g); n < required {
			return &errs.InsufficientDataError{Group: name, Distinct: n, Required: required}
		}
	}

	return nil
}
