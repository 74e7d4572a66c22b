package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/hierfit/internal/options"
	"github.com/arloliu/hierfit/model"
)

// ErrNonFinite is returned when the starting vector yields a non-finite fit.
var ErrNonFinite = errors.New("regression: non-finite squared error at start")

// Fit minimizes Σ(y - f(x; θ))² over θ with Levenberg-Marquardt iterations,
// starting from start.
//
// Each iteration solves (JᵀJ + λ·diag(JᵀJ)) δ = Jᵀr by Cholesky factorization,
// accepts the step when it lowers the squared error (λ shrinks) and otherwise
// retries with a larger λ.
//
// Parameters:
//   - expr: The compiled mean function
//   - x, y: Predictor and response columns of equal length
//   - start: Starting parameter vector, one entry per expression parameter
//   - opts: Optional FitConfig settings
//
// Returns:
//   - *Model: The fitted model with R² and RMSE on the original scale
//   - error: Length mismatch, too few points, invalid options or ErrNonFinite
func Fit(expr *model.Expression, x, y, start []float64, opts ...FitOption) (*Model, error) {
	cfg := defaultFitConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	p := expr.NumParams()
	switch {
	case len(x) != len(y):
		return nil, fmt.Errorf("mismatched data lengths: %d x vs %d y", len(x), len(y))
	case len(start) != p:
		return nil, fmt.Errorf("start has %d values, expression has %d parameters", len(start), p)
	case len(x) < p:
		return nil, fmt.Errorf("insufficient data points for regression: %d < %d parameters", len(x), p)
	}

	ev := expr.NewEvaluator()
	theta := append([]float64(nil), start...)
	trial := make([]float64, p)
	grad := make([]float64, p)

	sse := sumSquares(ev, x, y, theta)
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return nil, ErrNonFinite
	}

	jtj := mat.NewSymDense(p, nil)
	damped := mat.NewSymDense(p, nil)
	jtr := mat.NewVecDense(p, nil)
	delta := mat.NewVecDense(p, nil)
	var chol mat.Cholesky

	lambda := cfg.Damping
	converged := false
	iter := 0

	for iter < cfg.MaxIterations && !converged {
		iter++

		jtj.Zero()
		jtr.Zero()
		for i := range x {
			f := ev.Gradient(x[i], theta, grad)
			r := y[i] - f
			for j := 0; j < p; j++ {
				jtr.SetVec(j, jtr.AtVec(j)+grad[j]*r)
				for k := j; k < p; k++ {
					jtj.SetSym(j, k, jtj.At(j, k)+grad[j]*grad[k])
				}
			}
		}

		improved := false
		for !improved && lambda < 1e16 {
			damped.CopySym(jtj)
			for j := 0; j < p; j++ {
				d := jtj.At(j, j)
				if d == 0 {
					d = 1
				}
				damped.SetSym(j, j, d*(1+lambda))
			}

			if ok := chol.Factorize(damped); !ok {
				lambda *= 10
				continue
			}
			if err := chol.SolveVecTo(delta, jtr); err != nil {
				lambda *= 10
				continue
			}

			for j := range trial {
				trial[j] = theta[j] + delta.AtVec(j)
			}
			next := sumSquares(ev, x, y, trial)
			if math.IsNaN(next) || math.IsInf(next, 0) || next >= sse {
				lambda *= 10
				continue
			}

			improved = true
			converged = sse-next <= cfg.Tolerance*(sse+cfg.Tolerance)
			copy(theta, trial)
			sse = next
			lambda = math.Max(lambda/10, 1e-12)
		}

		// no step lowers the error: θ is a local minimum to working precision
		if !improved {
			converged = true
		}
	}

	predicted := make([]float64, len(x))
	for i := range x {
		predicted[i] = ev.Value(x[i], theta)
	}

	return &Model{
		Type:         presetOf(expr),
		Formula:      expr.String(),
		Names:        expr.Params(),
		Coefficients: theta,
		RSquared:     calculateRSquared(y, predicted),
		RMSE:         calculateRMSE(y, predicted),
		Iterations:   iter,
		Converged:    converged,
	}, nil
}

func sumSquares(ev *model.Evaluator, x, y, theta []float64) float64 {
	var sse float64
	for i := range x {
		r := y[i] - ev.Value(x[i], theta)
		sse += r * r
	}

	return sse
}

// presetOf identifies preset mean functions over parameters a and b.
func presetOf(expr *model.Expression) model.Preset {
	params := expr.Params()
	if len(params) != 2 || params[0] != "a" || params[1] != "b" || expr.Predictor() != model.DefaultPredictor {
		return Custom
	}
	for _, p := range model.Presets() {
		if p.Expression() == expr.String() {
			return p
		}
	}

	return Custom
}
