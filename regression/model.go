package regression

import (
	"fmt"

	"github.com/arloliu/hierfit/model"
)

// Custom marks a Model whose mean function is not a preset.
const Custom model.Preset = -1

// Model represents a fitted mean function with its goodness-of-fit metrics.
//
// Fields:
//   - Type: The preset the mean function came from, or Custom
//   - Formula: The mean function source
//   - Names: Parameter names aligned with Coefficients
//   - Coefficients: The fitted parameters
//   - RSquared: Coefficient of determination (higher is better)
//   - RMSE: Root mean square error (lower is better)
//   - Iterations: Levenberg-Marquardt iterations performed
//   - Converged: Whether the relative change in squared error fell below tolerance
type Model struct {
	// Type is the preset of the mean function, or Custom.
	Type model.Preset
	// Formula is the mean function source.
	Formula string
	// Names holds the parameter names.
	Names []string
	// Coefficients contains the fitted parameters.
	Coefficients []float64
	// RSquared is the coefficient of determination.
	RSquared float64
	// RMSE is the root mean square error.
	RMSE float64
	// Iterations is the number of iterations performed.
	Iterations int
	// Converged reports whether the fit met its tolerance.
	Converged bool
}

// String returns a string representation of the model.
func (m *Model) String() string {
	typ := "custom"
	if m.Type != Custom {
		typ = m.Type.String()
	}

	return fmt.Sprintf("Model{Type: %s, R²: %.4f, RMSE: %.4f, Formula: %s}",
		typ, m.RSquared, m.RMSE, m.Formula)
}

// Coefficient returns the fitted value of a named parameter.
func (m *Model) Coefficient(name string) (float64, bool) {
	for i, n := range m.Names {
		if n == name {
			return m.Coefficients[i], true
		}
	}

	return 0, false
}

// Result represents the result of a preset comparison.
//
// Fields:
//   - BestFit: The model with the highest R² value
//   - AllModels: All fitted models ranked by R² (best first)
type Result struct {
	// BestFit is the best-fit model (highest R²).
	BestFit *Model
	// AllModels contains all candidate models ranked by R² (best first).
	AllModels []*Model
}

// String returns a string representation of the result.
func (r *Result) String() string {
	if r.BestFit == nil {
		return "Result{BestFit: nil}"
	}

	return fmt.Sprintf("Result{BestFit: %s, TotalModels: %d}",
		r.BestFit, len(r.AllModels))
}
