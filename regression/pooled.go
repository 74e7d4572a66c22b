package regression

import (
	"errors"
	"fmt"
	"slices"

	"github.com/arloliu/hierfit/model"
)

// FitPooled fits the mean function of m to all observations, ignoring groups.
//
// A preset mean function starts from its linearized fit; if that fails or the
// refined fit is non-finite, and for every other mean function, the fit starts
// from the prior centers of the population parameters.
//
// Parameters:
//   - m: The compiled model
//   - x, y: Predictor and response columns
//   - opts: Optional FitConfig settings
//
// Returns:
//   - *Model: The pooled fit
//   - error: When no starting vector yields a finite fit
func FitPooled(m *model.Model, x, y []float64, opts ...FitOption) (*Model, error) {
	expr := m.Expression()

	var errList []error
	if preset := presetOf(expr); preset != Custom {
		start, err := Linearize(preset, x, y)
		if err == nil {
			fit, fitErr := Fit(expr, x, y, start, opts...)
			if fitErr == nil {
				return fit, nil
			}
			err = fitErr
		}
		errList = append(errList, fmt.Errorf("linearized start: %w", err))
	}

	start := make([]float64, m.NumParams())
	for i := range start {
		start[i] = m.Param(i).Prior.Center()
	}
	fit, err := Fit(expr, x, y, start, opts...)
	if err != nil {
		errList = append(errList, fmt.Errorf("prior start: %w", err))
		return nil, errors.Join(errList...)
	}

	return fit, nil
}

// ComparePresets fits every preset to (x, y) and ranks the fits by R².
// Presets whose fit fails are left out.
//
// Returns:
//   - *Result: Best fit and all fitted presets, best first
//   - error: When no preset could be fitted
func ComparePresets(x, y []float64, opts ...FitOption) (*Result, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("mismatched data lengths: %d x vs %d y", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, fmt.Errorf("insufficient data points for regression: %d", len(x))
	}

	presets := model.Presets()
	models := make([]*Model, 0, len(presets))
	var errList []error
	for _, p := range presets {
		expr, err := model.CompileExpression(p.Expression(), model.DefaultPredictor, []string{"a", "b"})
		if err != nil {
			return nil, err
		}
		start, err := Linearize(p, x, y)
		if err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", p, err))
			continue
		}
		fit, err := Fit(expr, x, y, start, opts...)
		if err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", p, err))
			continue
		}
		models = append(models, fit)
	}

	if len(models) == 0 {
		return nil, errors.Join(errList...)
	}

	slices.SortStableFunc(models, func(a, b *Model) int {
		if a.RSquared > b.RSquared {
			return -1
		}
		if a.RSquared < b.RSquared {
			return 1
		}

		return 0
	})

	return &Result{
		BestFit:   models[0],
		AllModels: models,
	}, nil
}
