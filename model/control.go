package model

import (
	"github.com/arloliu/hierfit/errs"
)

// Default sampler control values.
const (
	DefaultChains              = 4
	DefaultIterations          = 2000
	DefaultWarmup              = 1000
	DefaultTargetAccept        = 0.8
	DefaultMaxTreeDepth        = 10
	DefaultMinGroupResponses   = 3
	DefaultRHatThreshold       = 1.01
	DefaultMinESS              = 400
	DefaultMaxNumericalRetries = 8
)

// Zero MinESS and MaxNumericalRetries select the defaults. These values turn
// the features off instead.
const (
	// NoESSCheck as MinESS leaves effective sample size out of convergence.
	NoESSCheck = -1
	// NoNumericalRetries as MaxNumericalRetries aborts a chain at the first
	// non-finite transition that does not move.
	NoNumericalRetries = -1
)

// Control holds the sampler settings of a fitting run.
//
// Iterations counts warmup plus retained iterations per chain, so each chain
// contributes Iterations-Warmup draws to the posterior table.
type Control struct {
	// Chains is the number of independent chains.
	Chains int
	// Iterations is the total number of iterations per chain, warmup included.
	Iterations int
	// Warmup is the number of adaptation iterations discarded from inference.
	Warmup int
	// TargetAccept is the dual-averaging target for the mean acceptance statistic.
	TargetAccept float64
	// Seed is the master seed. Chain i draws from a stream derived from Seed+i.
	Seed uint64
	// MaxTreeDepth caps NUTS trajectories at 2^MaxTreeDepth leapfrog steps.
	MaxTreeDepth int
	// MinGroupResponses is the minimum number of distinct responses each group
	// needs when the model has group-level effects.
	MinGroupResponses int
	// RHatThreshold is the largest split R-hat considered converged.
	RHatThreshold float64
	// MinESS is the smallest effective sample size considered converged.
	// NoESSCheck disables the check.
	MinESS float64
	// MaxNumericalRetries bounds step size halvings after a non-finite transition.
	// NoNumericalRetries disables retrying.
	MaxNumericalRetries int
}

// DefaultControl returns the default control settings with seed 0.
func DefaultControl() Control {
	return Control{
		Chains:              DefaultChains,
		Iterations:          DefaultIterations,
		Warmup:              DefaultWarmup,
		TargetAccept:        DefaultTargetAccept,
		MaxTreeDepth:        DefaultMaxTreeDepth,
		MinGroupResponses:   DefaultMinGroupResponses,
		RHatThreshold:       DefaultRHatThreshold,
		MinESS:              DefaultMinESS,
		MaxNumericalRetries: DefaultMaxNumericalRetries,
	}
}

// WithDefaults returns c with zero-valued fields replaced by defaults.
// Warmup is only defaulted together with Iterations, since zero warmup is a
// legitimate request. Use NoESSCheck and NoNumericalRetries to turn those
// features off.
func (c Control) WithDefaults() Control {
	if c.Chains == 0 {
		c.Chains = DefaultChains
	}
	if c.Iterations == 0 {
		c.Iterations = DefaultIterations
		if c.Warmup == 0 {
			c.Warmup = DefaultWarmup
		}
	}
	if c.TargetAccept == 0 {
		c.TargetAccept = DefaultTargetAccept
	}
	if c.MaxTreeDepth == 0 {
		c.MaxTreeDepth = DefaultMaxTreeDepth
	}
	if c.MinGroupResponses == 0 {
		c.MinGroupResponses = DefaultMinGroupResponses
	}
	if c.RHatThreshold == 0 {
		c.RHatThreshold = DefaultRHatThreshold
	}
	if c.MinESS == 0 {
		c.MinESS = DefaultMinESS
	}
	if c.MaxNumericalRetries == 0 {
		c.MaxNumericalRetries = DefaultMaxNumericalRetries
	}

	return c
}

// Draws returns the number of retained draws per chain.
func (c Control) Draws() int {
	return c.Iterations - c.Warmup
}

// Validate checks the control settings.
func (c Control) Validate() error {
	switch {
	case c.Chains < 1:
		return errs.NewModelSpecError("control", "chains must be >= 1, got %d", c.Chains)
	case c.Warmup < 0:
		return errs.NewModelSpecError("control", "warmup must be >= 0, got %d", c.Warmup)
	case c.Iterations < c.Warmup+1:
		return errs.NewModelSpecError("control", "iterations (%d) must be >= warmup (%d) + 1", c.Iterations, c.Warmup)
	case !(c.TargetAccept > 0 && c.TargetAccept < 1):
		return errs.NewModelSpecError("control", "target acceptance must be in (0, 1), got %g", c.TargetAccept)
	case c.MaxTreeDepth < 1 || c.MaxTreeDepth > 30:
		return errs.NewModelSpecError("control", "max tree depth must be in [1, 30], got %d", c.MaxTreeDepth)
	case c.MinGroupResponses < 1:
		return errs.NewModelSpecError("control", "min group responses must be >= 1, got %d", c.MinGroupResponses)
	case c.RHatThreshold <= 1:
		return errs.NewModelSpecError("control", "rhat threshold must be > 1, got %g", c.RHatThreshold)
	case c.MinESS < 0 && c.MinESS != NoESSCheck:
		return errs.NewModelSpecError("control", "min ess must be > 0 or NoESSCheck, got %g", c.MinESS)
	case c.MaxNumericalRetries < 0 && c.MaxNumericalRetries != NoNumericalRetries:
		return errs.NewModelSpecError("control", "max numerical retries must be > 0 or NoNumericalRetries, got %d",
			c.MaxNumericalRetries)
	}

	return nil
}
