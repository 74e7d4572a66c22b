package model

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Family identifies a prior distribution family.
type Family uint8

const (
	// FamilyNormal is normal(location, scale).
	FamilyNormal Family = iota + 1
	// FamilyStudentT is student_t(df, location, scale).
	FamilyStudentT
	// FamilyExponential is exponential(rate). Positive-support targets only.
	FamilyExponential
)

var familyNames = map[Family]string{
	FamilyNormal:      "normal",
	FamilyStudentT:    "student_t",
	FamilyExponential: "exponential",
}

// String returns the family name used in prior strings.
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}

	return "unknown"
}

// Prior is a univariate prior distribution.
//
// On positive-support targets (sigma and group standard deviations) normal and
// student_t priors act as half-distributions: the sampler works on the log scale
// and the constant normalization of the truncation is irrelevant.
type Prior struct {
	Family   Family
	Location float64
	Scale    float64
	DF       float64
	Rate     float64
}

// Normal returns a normal(location, scale) prior.
func Normal(location, scale float64) Prior {
	return Prior{Family: FamilyNormal, Location: location, Scale: scale}
}

// StudentT returns a student_t(df, location, scale) prior.
func StudentT(df, location, scale float64) Prior {
	return Prior{Family: FamilyStudentT, DF: df, Location: location, Scale: scale}
}

// Exponential returns an exponential(rate) prior.
func Exponential(rate float64) Prior {
	return Prior{Family: FamilyExponential, Rate: rate}
}

// DefaultScalePrior is used for sigma and sd_* targets without an explicit prior.
func DefaultScalePrior() Prior {
	return StudentT(3, 0, 2.5)
}

// Validate checks the distribution arguments. positive marks a target whose
// support is (0, inf).
func (p Prior) Validate(positive bool) error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	switch p.Family {
	case FamilyNormal:
		if !finite(p.Location) || !finite(p.Scale) || p.Scale <= 0 {
			return fmt.Errorf("normal prior needs finite location and scale > 0, got %s", p)
		}
	case FamilyStudentT:
		if !finite(p.Location) || !finite(p.Scale) || p.Scale <= 0 || !finite(p.DF) || p.DF <= 0 {
			return fmt.Errorf("student_t prior needs df > 0, finite location and scale > 0, got %s", p)
		}
	case FamilyExponential:
		if !positive {
			return fmt.Errorf("exponential prior is only valid for positive parameters")
		}
		if !finite(p.Rate) || p.Rate <= 0 {
			return fmt.Errorf("exponential prior needs rate > 0, got %s", p)
		}
	default:
		return fmt.Errorf("unknown prior family %d", p.Family)
	}

	return nil
}

// LogDensity returns the log density at x and its derivative with respect to x.
func (p Prior) LogDensity(x float64) (float64, float64) {
	switch p.Family {
	case FamilyNormal:
		d := distuv.Normal{Mu: p.Location, Sigma: p.Scale}
		return d.LogProb(x), -(x - p.Location) / (p.Scale * p.Scale)
	case FamilyStudentT:
		d := distuv.StudentsT{Mu: p.Location, Sigma: p.Scale, Nu: p.DF}
		r := x - p.Location
		return d.LogProb(x), -(p.DF + 1) * r / (p.DF*p.Scale*p.Scale + r*r)
	case FamilyExponential:
		d := distuv.Exponential{Rate: p.Rate}
		return d.LogProb(x), -p.Rate
	default:
		return math.Inf(-1), 0
	}
}

// Center returns a typical value of the prior, used as a fallback initial value.
func (p Prior) Center() float64 {
	if p.Family == FamilyExponential {
		return 1 / p.Rate
	}

	return p.Location
}

// String formats the prior in the syntax accepted by ParsePrior.
func (p Prior) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	switch p.Family {
	case FamilyNormal:
		return fmt.Sprintf("normal(%s, %s)", f(p.Location), f(p.Scale))
	case FamilyStudentT:
		return fmt.Sprintf("student_t(%s, %s, %s)", f(p.DF), f(p.Location), f(p.Scale))
	case FamilyExponential:
		return fmt.Sprintf("exponential(%s)", f(p.Rate))
	default:
		return "unknown()"
	}
}

// ParsePrior parses "normal(3, 1)", "student_t(3, 0, 2.5)" or "exponential(1)".
func ParsePrior(s string) (Prior, error) {
	node, err := parser.ParseExpr(strings.TrimSpace(s))
	if err != nil {
		return Prior{}, fmt.Errorf("parse prior %q: %w", s, err)
	}
	call, ok := node.(*ast.CallExpr)
	if !ok {
		return Prior{}, fmt.Errorf("prior %q is not a distribution call", s)
	}
	ident, ok := call.Fun.(*ast.Ident)
	if !ok {
		return Prior{}, fmt.Errorf("prior %q has no family name", s)
	}

	args := make([]float64, len(call.Args))
	for i, arg := range call.Args {
		v, err := literal(arg)
		if err != nil {
			return Prior{}, fmt.Errorf("prior %q argument %d: %w", s, i+1, err)
		}
		args[i] = v
	}

	want := map[string]int{"normal": 2, "student_t": 3, "exponential": 1}
	n, known := want[ident.Name]
	if !known {
		return Prior{}, fmt.Errorf("unknown prior family %q", ident.Name)
	}
	if len(args) != n {
		return Prior{}, fmt.Errorf("%s prior expects %d argument(s), got %d", ident.Name, n, len(args))
	}

	switch ident.Name {
	case "normal":
		return Normal(args[0], args[1]), nil
	case "student_t":
		return StudentT(args[0], args[1], args[2]), nil
	default:
		return Exponential(args[0]), nil
	}
}

func literal(node ast.Expr) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return 0, fmt.Errorf("not a number: %s", n.Value)
		}
		return strconv.ParseFloat(n.Value, 64)
	case *ast.UnaryExpr:
		v, err := literal(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.SUB:
			return -v, nil
		case token.ADD:
			return v, nil
		}
	case *ast.ParenExpr:
		return literal(n.X)
	}

	return 0, fmt.Errorf("not a numeric literal")
}
