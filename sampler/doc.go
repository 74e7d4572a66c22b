// Package sampler fits hierarchical nonlinear regression models with the
// No-U-Turn Sampler.
//
// # Parameterization
//
// Each mean-function parameter p has a population component β_p. Grouped
// parameters add a group effect u_{p,g} ~ Normal(0, τ_p) in every group, so
// the parameter used for observations of group g is β_p + u_{p,g}. Responses
// are y ~ Normal(f(x; θ_g), σ).
//
// The sampler works on an unconstrained vector: β_p as is, log τ_p, the
// standardized effects z_{p,g} with u_{p,g} = τ_p·z_{p,g}, and log σ.
// Log-Jacobian terms of the log transforms are included in the target, and
// draws are transformed back before they are stored.
//
// # Algorithm
//
// Transitions follow the efficient No-U-Turn Sampler of Hoffman & Gelman
// (2014) with a diagonal metric. Warmup tunes the step size by dual averaging
// toward Control.TargetAccept and estimates the metric from regularized
// variances over doubling adaptation windows between an initial and a
// terminal fast-adaptation buffer (75, 25 doubling, 50 iterations).
//
// Chains run concurrently, each with its own PCG stream derived from
// Control.Seed + chain. Results do not depend on scheduling: the same seed,
// data and control produce identical draws for any parallelism.
//
// # Failures
//
// Structural problems abort before sampling: errs.ErrModelSpec for an invalid
// spec and errs.ErrInsufficientData when a group cannot identify its effects.
// Divergent transitions are flagged per draw. A transition that hits a
// non-finite density without moving is retried with a halved step size up to
// Control.MaxNumericalRetries times; after that the chain is aborted with
// errs.ErrSamplerNumerical and listed in Diagnostics.ChainFailures. Fit fails
// only when every chain fails. Convergence problems never fail a fit: check
// Diagnostics.Converged or Diagnostics.Err.
//
// Example:
//
//	res, err := sampler.Fit(ctx, set, spec, sampler.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := res.Diagnostics.Err(); err != nil {
//	    logger.Warn("posterior may be unreliable", zap.Error(err))
//	}
package sampler
