package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/hierfit/model"
)

// Linearize fits the linearized form of a preset by ordinary least squares and
// returns the coefficients [a, b] on the original parameterization.
//
// Parameters:
//   - preset: The preset mean function
//   - x, y: Predictor and response columns
//
// Returns:
//   - []float64: Coefficients [a, b]
//   - error: When fewer than two points survive the transform or the
//     transformed predictor is constant
func Linearize(preset model.Preset, x, y []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("mismatched data lengths: %d x vs %d y", len(x), len(y))
	}

	tx := make([]float64, 0, len(x))
	ty := make([]float64, 0, len(y))
	add := func(xi, yi float64) {
		if !math.IsNaN(xi) && !math.IsInf(xi, 0) && !math.IsNaN(yi) && !math.IsInf(yi, 0) {
			tx = append(tx, xi)
			ty = append(ty, yi)
		}
	}

	for i := range x {
		xi, yi := x[i], y[i]
		switch preset {
		case model.PresetMichailoff:
			// ln(y) = a + b * (1/x)
			if yi > 0 {
				add(1/xi, math.Log(yi))
			}
		case model.PresetHyperbolic:
			add(1/xi, yi)
		case model.PresetLogarithmic:
			add(math.Log(xi), yi)
		case model.PresetPower:
			// ln(y) = ln(a) + b*ln(x)
			if yi > 0 {
				add(math.Log(xi), math.Log(yi))
			}
		case model.PresetExponential:
			// ln(y) = ln(a) + b*x
			if yi > 0 {
				add(xi, math.Log(yi))
			}
		default:
			return nil, fmt.Errorf("preset %s has no linearized form", preset)
		}
	}

	if len(tx) < 2 {
		return nil, fmt.Errorf("insufficient data points for %s linearization: %d", preset, len(tx))
	}
	if stat.Variance(tx, nil) == 0 {
		return nil, fmt.Errorf("constant transformed predictor for %s linearization", preset)
	}

	alpha, beta := stat.LinearRegression(tx, ty, nil, false)
	if preset == model.PresetPower || preset == model.PresetExponential {
		alpha = math.Exp(alpha)
	}

	return []float64{alpha, beta}, nil
}
