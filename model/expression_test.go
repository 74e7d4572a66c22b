package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileExpressionEval(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		x     float64
		theta []float64
		want  float64
	}{
		{"michailoff", "exp(a + b/x)", 20, []float64{3.5, -10}, math.Exp(3.5 - 0.5)},
		{"hyperbolic", "a + b/x", 4, []float64{1, 8}, 3},
		{"logarithmic", "a + b*log(x)", math.E, []float64{2, 3}, 5},
		{"power", "a * pow(x, b)", 9, []float64{2, 0.5}, 6},
		{"unary minus", "-a + (b)", 1, []float64{2, 5}, 3},
		{"unary plus", "+a * 2.5", 1, []float64{2, 0}, 5},
		{"sqrt", "sqrt(a*x) - b", 4, []float64{4, 1}, 3},
		{"precedence", "a + b * x - 1", 2, []float64{1, 3}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := CompileExpression(tt.src, "x", []string{"a", "b"})
			require.NoError(t, err)
			require.InDelta(t, tt.want, expr.Eval(tt.x, tt.theta), 1e-12)

			ev := expr.NewEvaluator()
			require.InDelta(t, tt.want, ev.Value(tt.x, tt.theta), 1e-12)

			grad := make([]float64, 2)
			require.InDelta(t, tt.want, ev.Gradient(tt.x, tt.theta, grad), 1e-12)
		})
	}
}

func TestEvaluatorGradientMatchesFiniteDifferences(t *testing.T) {
	sources := []string{
		"exp(a + b/x)",
		"a + b/x",
		"a + b*log(x)",
		"a * pow(x, b)",
		"a * exp(b*x)",
		"pow(a, 2) / (1 + b*b*x)",
		"sqrt(a*a + x) * -b",
	}
	theta := []float64{1.3, -0.7}
	const h = 1e-6

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			expr, err := CompileExpression(src, "x", []string{"a", "b"})
			require.NoError(t, err)
			ev := expr.NewEvaluator()

			for _, x := range []float64{0.5, 3, 17} {
				grad := make([]float64, 2)
				ev.Gradient(x, theta, grad)

				for k := range theta {
					up := append([]float64(nil), theta...)
					dn := append([]float64(nil), theta...)
					up[k] += h
					dn[k] -= h
					fd := (expr.Eval(x, up) - expr.Eval(x, dn)) / (2 * h)
					require.InDelta(t, fd, grad[k], 1e-5*math.Max(1, math.Abs(fd)), "d/d%d at x=%g", k, x)
				}
			}
		})
	}
}

func TestCompileExpressionUses(t *testing.T) {
	expr, err := CompileExpression("a * x", "x", []string{"a", "b"})
	require.NoError(t, err)
	require.True(t, expr.Uses(0))
	require.False(t, expr.Uses(1))
	require.Equal(t, 2, expr.NumParams())
	require.Equal(t, "a * x", expr.String())
	require.Equal(t, "x", expr.Predictor())
}

func TestCompileExpressionErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"syntax", "exp(a + ", "parse"},
		{"unknown identifier", "a + c/x", `unknown identifier "c"`},
		{"unknown function", "sin(a*x)", `unknown function "sin"`},
		{"arity", "pow(a)", "expects 2 argument"},
		{"xor", "a * x^b", "use pow"},
		{"modulo", "a % x", "unsupported operator"},
		{"string literal", `a + "x"`, "unsupported literal"},
		{"method call", "math.Exp(a)", "unsupported call"},
		{"index", "a[0]", "unsupported expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileExpression(tt.src, "x", []string{"a", "b"})
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestEvalDeepExpression(t *testing.T) {
	// deeper than the fixed Eval stack
	src := "a"
	for range 20 {
		src = "(b * (x + 1) + " + src + ")"
	}
	expr, err := CompileExpression(src, "x", []string{"a", "b"})
	require.NoError(t, err)
	require.InDelta(t, 1+20*2*2, expr.Eval(1, []float64{1, 2}), 1e-12)
}

func BenchmarkEvaluatorGradient(b *testing.B) {
	expr, err := CompileExpression("exp(a + b/x)", "x", []string{"a", "b"})
	require.NoError(b, err)
	ev := expr.NewEvaluator()
	theta := []float64{3.5, -10}
	grad := make([]float64, 2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ev.Gradient(float64(10+i%40), theta, grad)
	}
}
