// Package observation holds the validated input of a fit: grouped
// (predictor, response) measurements.
//
// A Set is immutable once built and safe for concurrent reads. Groups are
// ordered by first appearance, rows are stable 1-based identifiers that
// projected values carry back to the caller, and each Observation may carry an
// opaque Payload that is passed through unchanged.
//
// Group filtering is a caller decision. FilterMinDistinct implements the usual
// "drop groups with too few distinct responses" rule, but nothing in the fitting
// pipeline applies it implicitly.
//
//	obs := []observation.Observation{
//	    {Group: "plot-1", Predictor: 21.3, Response: 18.2},
//	    {Group: "plot-1", Predictor: 34.0, Response: 24.9},
//	    {Group: "plot-2", Predictor: 12.8, Response: 11.1},
//	}
//	set, err := observation.NewSet(observation.FilterMinDistinct(obs, 3))
package observation
