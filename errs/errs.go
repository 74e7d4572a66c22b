// Package errs defines the error values returned by hierfit packages.
//
// Every failure is reported through one of the sentinel errors below, either
// directly or wrapped with context via fmt.Errorf("...: %w"). Typed errors carry
// structured detail and unwrap to their sentinel, so callers can always branch
// with errors.Is and inspect detail with errors.As.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Structural errors. These abort before any sampling work starts.
var (
	// ErrModelSpec indicates a malformed model: bad expression, unknown parameter,
	// missing or duplicate prior, invalid control settings.
	ErrModelSpec = errors.New("invalid model specification")
	// ErrInsufficientData indicates the observation set cannot identify the model:
	// no groups, or a group with too few distinct responses for its random effect.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidObservation indicates a non-finite or out-of-domain observation.
	ErrInvalidObservation = errors.New("invalid observation")
)

// Sampler errors.
var (
	// ErrSamplerNumerical indicates a non-finite log density or gradient that could
	// not be recovered by step size reduction.
	ErrSamplerNumerical = errors.New("sampler numerical failure")
	// ErrDivergentTransition marks transitions whose energy error exceeded the
	// divergence threshold. Divergent draws are kept and flagged.
	ErrDivergentTransition = errors.New("divergent transition")
	// ErrSamplerNonConvergence is reported alongside a usable posterior table when
	// R-hat or effective sample size checks fail.
	ErrSamplerNonConvergence = errors.New("sampler did not converge")
	// ErrSamplingCancelled is returned when the fit context is cancelled. The
	// accompanying result carries every chain that completed.
	ErrSamplingCancelled = errors.New("sampling cancelled")
)

// Summary errors.
var (
	// ErrInsufficientDraws indicates too few projected values to summarize a key.
	ErrInsufficientDraws = errors.New("insufficient draws")
	// ErrInvalidInterval indicates an interval width outside (0, 1).
	ErrInvalidInterval = errors.New("invalid interval width")
)

// Trace archive errors.
var (
	ErrInvalidHeaderSize   = errors.New("invalid trace header size")
	ErrInvalidMagicNumber  = errors.New("invalid trace magic number")
	ErrInvalidVersion      = errors.New("unsupported trace version")
	ErrChecksumMismatch    = errors.New("trace checksum mismatch")
	ErrInvalidPayload      = errors.New("invalid trace payload")
	ErrColumnIDMismatch    = errors.New("trace column id does not match column name")
	ErrEmptyTable          = errors.New("posterior table has no draws")
	ErrTextTooLong         = errors.New("text exceeds maximum encodable length")
	ErrUnknownColumn       = errors.New("unknown posterior column")
	ErrCompressionMismatch = errors.New("unsupported trace compression")
	ErrInvalidColumnName   = errors.New("invalid posterior column name")
	ErrDuplicateColumn     = errors.New("duplicate posterior column")
	ErrHashCollision       = errors.New("posterior column id collision")
)

// ModelSpecError describes which part of a model specification is invalid.
type ModelSpecError struct {
	// Field names the offending part, e.g. "mean_function", "priors", "control".
	Field string
	// Reason is a human-readable description.
	Reason string
}

func (e *ModelSpecError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrModelSpec, e.Field, e.Reason)
}

func (e *ModelSpecError) Unwrap() error { return ErrModelSpec }

// NewModelSpecError formats a ModelSpecError.
func NewModelSpecError(field, format string, args ...any) *ModelSpecError {
	return &ModelSpecError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientDataError reports the group that made the data unusable.
type InsufficientDataError struct {
	Group    string
	Distinct int
	Required int
	Reason   string
}

func (e *InsufficientDataError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("%s: %s", ErrInsufficientData, e.Reason)
	}

	return fmt.Sprintf("%s: group %q has %d distinct responses, %d required",
		ErrInsufficientData, e.Group, e.Distinct, e.Required)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// ChainError reports a chain aborted by the sampler.
type ChainError struct {
	Chain     int
	Iteration int
	Err       error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain %d aborted at iteration %d: %v", e.Chain, e.Iteration, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }

// ConvergenceIssue is a single failed convergence check.
type ConvergenceIssue struct {
	Parameter string
	RHat      float64
	ESS       float64
}

// NonConvergenceError lists every parameter that failed a convergence check.
type NonConvergenceError struct {
	Issues        []ConvergenceIssue
	RHatThreshold float64
	MinESS        float64
}

func (e *NonConvergenceError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s(rhat=%.4f ess=%.1f)", is.Parameter, is.RHat, is.ESS))
	}

	return fmt.Sprintf("%s: rhat>%.3g or ess<%.0f for %s",
		ErrSamplerNonConvergence, e.RHatThreshold, e.MinESS, strings.Join(parts, ", "))
}

func (e *NonConvergenceError) Unwrap() error { return ErrSamplerNonConvergence }
