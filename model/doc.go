// Package model describes hierarchical nonlinear regression models.
//
// A Spec names a mean function in Go expression syntax, the parameters it uses,
// which of them vary by group, their priors and the sampler control settings:
//
//	spec := &model.Spec{
//	    MeanFunction: "exp(a + b/x)",
//	    Parameters: []model.Effect{
//	        {Name: "a", Group: true},
//	        {Name: "b"},
//	    },
//	    Priors: []model.PriorSpec{
//	        {Target: "a", Prior: model.Normal(3, 1)},
//	        {Target: "b", Prior: model.Normal(-10, 5)},
//	        {Target: "sd_a", Prior: model.Normal(0, 0.5)},
//	        {Target: "sigma", Prior: model.StudentT(3, 0, 5)},
//	    },
//	    Control: model.DefaultControl(),
//	}
//	m, err := spec.Compile()
//
// Compile validates the spec and returns a Model, whose compiled Expression
// evaluates the mean function and its gradient. A Layout maps a Model fitted to a
// set of groups onto named posterior columns: "a", "b", "sd_a", "a[north]",
// "sigma", and so on.
package model
