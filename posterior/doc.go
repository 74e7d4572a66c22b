// Package posterior holds the output of a fit and maps it onto observations.
//
// A Table is the ordered, chain-major sequence of retained draws with the
// compiled model and parameter layout that produced them. Tables are immutable
// and safe for unlimited concurrent readers.
//
// A Projector evaluates a Table against observation rows:
//
//   - FittedValue evaluates the mean function with the draw's population
//     parameters plus the observation group's effects. Rows from groups absent
//     at fit time use population values only and are flagged PopulationOnly.
//   - PredictedValue adds one Gaussian residual draw with the draw's sigma.
//   - Project does either for many rows, optionally on a reproducible uniform
//     subsample of draws.
//
// Example:
//
//	proj := posterior.NewProjector(table)
//	values, err := proj.Project(rows, posterior.ModePredicted,
//	    posterior.WithMaxDraws(50),
//	    posterior.WithSeed(7),
//	)
package posterior
