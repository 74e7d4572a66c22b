package regression

import (
	"fmt"

	"github.com/arloliu/hierfit/internal/options"
)

// Default Levenberg-Marquardt settings.
const (
	DefaultMaxIterations = 200
	DefaultTolerance     = 1e-10
	DefaultDamping       = 1e-3
)

// FitConfig holds Levenberg-Marquardt settings.
type FitConfig struct {
	MaxIterations int
	Tolerance     float64
	Damping       float64
}

func defaultFitConfig() FitConfig {
	return FitConfig{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		Damping:       DefaultDamping,
	}
}

// FitOption is a functional option for FitConfig.
type FitOption = options.Option[*FitConfig]

// WithMaxIterations caps the number of iterations.
func WithMaxIterations(n int) FitOption {
	return options.New(func(cfg *FitConfig) error {
		if n < 1 {
			return fmt.Errorf("max iterations must be >= 1, got %d", n)
		}
		cfg.MaxIterations = n

		return nil
	})
}

// WithTolerance sets the relative squared-error change that ends the fit.
func WithTolerance(tol float64) FitOption {
	return options.New(func(cfg *FitConfig) error {
		if !(tol > 0) {
			return fmt.Errorf("tolerance must be > 0, got %g", tol)
		}
		cfg.Tolerance = tol

		return nil
	})
}

// WithDamping sets the initial damping factor.
func WithDamping(lambda float64) FitOption {
	return options.NoError(func(cfg *FitConfig) {
		if lambda > 0 {
			cfg.Damping = lambda
		}
	})
}
