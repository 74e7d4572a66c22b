// Package regression fits a mean function to pooled (predictor, response) data
// by nonlinear least squares.
//
// The fit ignores grouping entirely. Its purpose is to provide sensible
// starting values for the hierarchical sampler and a quick, sampling-free first
// look at a data set, not to replace the Bayesian fit.
//
// # Usage Patterns
//
// ## Fit a Compiled Expression
//
// Fit refines a starting vector with Levenberg-Marquardt iterations:
//
//	expr, _ := model.CompileExpression("exp(a + b/x)", "x", []string{"a", "b"})
//	fit, err := regression.Fit(expr, diameters, heights, []float64{3, -5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(fit) // Model{Type: custom, R²: 0.9412, RMSE: 2.1034, Formula: exp(a + b/x)}
//
// ## Fit a Model Specification
//
// FitPooled picks a starting vector for a compiled model. Preset mean functions
// start from the closed-form fit of their linearized form; any other mean
// function starts from the prior locations.
//
//	fit, err := regression.FitPooled(m, diameters, heights)
//
// ## Model Comparison
//
// ComparePresets fits every preset and ranks them by R²:
//
//	result, err := regression.ComparePresets(diameters, heights)
//	for _, m := range result.AllModels {
//	    fmt.Printf("%s: R²=%.4f\n", m.Type, m.RSquared)
//	}
//
// # Linearized Forms
//
// The presets admit linear least-squares fits after transforming x or y:
//
//   - michailoff:  ln(y) = a + b * (1/x)
//   - hyperbolic:  y = a + b * (1/x)
//   - logarithmic: y = a + b * ln(x)
//   - power:       ln(y) = ln(a) + b * ln(x)
//   - exponential: ln(y) = ln(a) + b * x
//
// Transforms that take ln(y) skip observations with y = 0. The linearized fit
// minimizes error on the transformed scale, so it is only a starting point; Fit
// then minimizes the squared error on the original scale.
package regression
