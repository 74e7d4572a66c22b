package model

import (
	"slices"
	"strings"

	"github.com/arloliu/hierfit/errs"
)

// DefaultPredictor is the predictor identifier used when Spec.Predictor is empty.
const DefaultPredictor = "x"

// Prior targets that are not mean-function parameters.
const (
	SigmaTarget    = "sigma"
	sdTargetPrefix = "sd_"
)

// SDTarget returns the prior target name of the group standard deviation of param.
func SDTarget(param string) string {
	return sdTargetPrefix + param
}

// Residual is the residual distribution family.
type Residual uint8

const (
	// ResidualGaussian is y ~ Normal(mean, sigma). It is the only supported family.
	ResidualGaussian Residual = iota
)

// Effect declares a mean-function parameter. Every parameter has a population
// intercept; Group adds a per-group random effect drawn from N(0, sd_<Name>).
type Effect struct {
	Name  string
	Group bool
}

// PriorSpec assigns a prior to a target: a parameter name, "sigma" or "sd_<param>".
type PriorSpec struct {
	Target string
	Prior  Prior
}

// Spec is the declarative description of a hierarchical nonlinear model.
type Spec struct {
	// MeanFunction is the mean expression, e.g. "exp(a + b/x)".
	MeanFunction string
	// Predictor is the identifier of the covariate in MeanFunction.
	Predictor string
	// Parameters lists the parameters in MeanFunction and their group structure.
	Parameters []Effect
	// Priors lists exactly one prior per parameter. sigma and sd_* default to
	// DefaultScalePrior when absent.
	Priors []PriorSpec
	// Residual is the residual family.
	Residual Residual
	// Control holds sampler settings. Zero fields take defaults.
	Control Control
}

// Parameter is a validated mean-function parameter.
type Parameter struct {
	Name string
	// Prior is the prior on the population-level component.
	Prior Prior
	// Group reports whether the parameter has group-level effects.
	Group bool
	// GroupPrior is the prior on the group standard deviation; zero if !Group.
	GroupPrior Prior
}

// Model is a validated, compiled Spec.
type Model struct {
	spec       Spec
	expr       *Expression
	params     []Parameter
	index      map[string]int
	sigmaPrior Prior
	control    Control
}

// Compile validates s and compiles its mean function.
//
// It checks that every identifier in the mean function is the predictor or a
// declared parameter, that every declared parameter is used, that each target has
// exactly one prior, that group-level priors only refer to grouped parameters,
// that the residual family is Gaussian and that the control settings are valid.
// Every failure is an *errs.ModelSpecError.
func (s *Spec) Compile() (*Model, error) {
	predictor := s.Predictor
	if predictor == "" {
		predictor = DefaultPredictor
	}

	if s.Residual != ResidualGaussian {
		return nil, errs.NewModelSpecError("residual_family", "only gaussian residuals are supported")
	}
	if strings.TrimSpace(s.MeanFunction) == "" {
		return nil, errs.NewModelSpecError("mean_function", "empty expression")
	}
	if len(s.Parameters) == 0 {
		return nil, errs.NewModelSpecError("parameter_structure", "no parameters declared")
	}

	names := make([]string, len(s.Parameters))
	index := make(map[string]int, len(s.Parameters))
	for i, eff := range s.Parameters {
		switch {
		case !isIdentifier(eff.Name):
			return nil, errs.NewModelSpecError("parameter_structure", "invalid parameter name %q", eff.Name)
		case eff.Name == predictor:
			return nil, errs.NewModelSpecError("parameter_structure", "parameter %q shadows the predictor", eff.Name)
		case eff.Name == SigmaTarget || strings.HasPrefix(eff.Name, sdTargetPrefix):
			return nil, errs.NewModelSpecError("parameter_structure", "parameter name %q is reserved", eff.Name)
		}
		if _, dup := index[eff.Name]; dup {
			return nil, errs.NewModelSpecError("parameter_structure", "duplicate parameter %q", eff.Name)
		}
		index[eff.Name] = i
		names[i] = eff.Name
	}

	expr, err := CompileExpression(s.MeanFunction, predictor, names)
	if err != nil {
		return nil, errs.NewModelSpecError("mean_function", "%v", err)
	}
	for i, name := range names {
		if !expr.Uses(i) {
			return nil, errs.NewModelSpecError("parameter_structure", "parameter %q does not appear in the mean function", name)
		}
	}

	params := make([]Parameter, len(s.Parameters))
	for i, eff := range s.Parameters {
		params[i] = Parameter{Name: eff.Name, Group: eff.Group}
	}

	seen := make(map[string]bool, len(s.Priors))
	sigmaPrior := DefaultScalePrior()
	for _, ps := range s.Priors {
		if seen[ps.Target] {
			return nil, errs.NewModelSpecError("priors", "duplicate prior for %q", ps.Target)
		}
		seen[ps.Target] = true

		switch {
		case ps.Target == SigmaTarget:
			if err := ps.Prior.Validate(true); err != nil {
				return nil, errs.NewModelSpecError("priors", "%s: %v", ps.Target, err)
			}
			sigmaPrior = ps.Prior
		case strings.HasPrefix(ps.Target, sdTargetPrefix):
			name := strings.TrimPrefix(ps.Target, sdTargetPrefix)
			i, ok := index[name]
			if !ok {
				return nil, errs.NewModelSpecError("priors", "prior %q refers to unknown parameter %q", ps.Target, name)
			}
			if !params[i].Group {
				return nil, errs.NewModelSpecError("priors", "prior %q given but %q has no group-level effect", ps.Target, name)
			}
			if err := ps.Prior.Validate(true); err != nil {
				return nil, errs.NewModelSpecError("priors", "%s: %v", ps.Target, err)
			}
			params[i].GroupPrior = ps.Prior
		default:
			i, ok := index[ps.Target]
			if !ok {
				return nil, errs.NewModelSpecError("priors", "prior for unknown parameter %q", ps.Target)
			}
			if err := ps.Prior.Validate(false); err != nil {
				return nil, errs.NewModelSpecError("priors", "%s: %v", ps.Target, err)
			}
			params[i].Prior = ps.Prior
		}
	}

	for i := range params {
		if !seen[params[i].Name] {
			return nil, errs.NewModelSpecError("priors", "missing prior for parameter %q", params[i].Name)
		}
		if params[i].Group && !seen[SDTarget(params[i].Name)] {
			params[i].GroupPrior = DefaultScalePrior()
		}
	}

	control := s.Control.WithDefaults()
	if err := control.Validate(); err != nil {
		return nil, err
	}

	spec := *s
	spec.Predictor = predictor
	spec.Parameters = slices.Clone(s.Parameters)
	spec.Priors = slices.Clone(s.Priors)
	spec.Control = control

	return &Model{
		spec:       spec,
		expr:       expr,
		params:     params,
		index:      index,
		sigmaPrior: sigmaPrior,
		control:    control,
	}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		digit := r >= '0' && r <= '9'
		if !letter && (i == 0 || !digit) {
			return false
		}
	}

	return true
}

// Spec returns a copy of the validated spec with defaults applied.
func (m *Model) Spec() Spec {
	s := m.spec
	s.Parameters = slices.Clone(m.spec.Parameters)
	s.Priors = slices.Clone(m.spec.Priors)

	return s
}

// Expression returns the compiled mean function.
func (m *Model) Expression() *Expression { return m.expr }

// Parameters returns the validated parameters in declaration order.
func (m *Model) Parameters() []Parameter { return slices.Clone(m.params) }

// NumParams returns the number of mean-function parameters.
func (m *Model) NumParams() int { return len(m.params) }

// Param returns parameter i.
func (m *Model) Param(i int) Parameter { return m.params[i] }

// ParamIndex returns the position of a parameter by name.
func (m *Model) ParamIndex(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

// SigmaPrior returns the residual standard deviation prior.
func (m *Model) SigmaPrior() Prior { return m.sigmaPrior }

// Control returns the validated control settings.
func (m *Model) Control() Control { return m.control }

// HasGroupEffects reports whether any parameter varies by group.
func (m *Model) HasGroupEffects() bool {
	for _, p := range m.params {
		if p.Group {
			return true
		}
	}

	return false
}

// WithControl returns a copy of m using control c, validated.
func (m *Model) WithControl(c Control) (*Model, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cp := *m
	cp.control = c
	cp.spec.Control = c

	return &cp, nil
}
