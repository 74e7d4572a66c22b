package model

import (
	"fmt"
	"slices"
	"strings"
)

// Preset names a built-in mean function.
type Preset int

const (
	// PresetMichailoff is the height-diameter curve: y = exp(a + b / x)
	PresetMichailoff Preset = iota
	// PresetHyperbolic is y = a + b / x
	PresetHyperbolic
	// PresetLogarithmic is y = a + b * ln(x)
	PresetLogarithmic
	// PresetPower is y = a * x^b
	PresetPower
	// PresetExponential is y = a * e^(b * x)
	PresetExponential
)

var presetNames = map[Preset]string{
	PresetMichailoff:  "michailoff",
	PresetHyperbolic:  "hyperbolic",
	PresetLogarithmic: "logarithmic",
	PresetPower:       "power",
	PresetExponential: "exponential",
}

var presetExpressions = map[Preset]string{
	PresetMichailoff:  "exp(a + b/x)",
	PresetHyperbolic:  "a + b/x",
	PresetLogarithmic: "a + b*log(x)",
	PresetPower:       "a * pow(x, b)",
	PresetExponential: "a * exp(b*x)",
}

// Presets returns every preset in declaration order.
func Presets() []Preset {
	return []Preset{PresetMichailoff, PresetHyperbolic, PresetLogarithmic, PresetPower, PresetExponential}
}

// String returns the preset name.
func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}

	return "unknown"
}

// Expression returns the mean function of the preset over parameters a, b and
// predictor x.
func (p Preset) Expression() string {
	return presetExpressions[p]
}

// PresetFromString returns the Preset for a case-insensitive name.
// Returns Preset(-1) for unknown names.
func PresetFromString(name string) Preset {
	for p, n := range presetNames {
		if n == strings.ToLower(name) {
			return p
		}
	}

	return Preset(-1)
}

// NewPresetSpec builds a Spec for a named preset with parameters a and b.
// groupA and groupB select which parameters get group-level effects.
func NewPresetSpec(name string, groupA, groupB bool, priorA, priorB Prior) (*Spec, error) {
	preset := PresetFromString(name)
	if preset == Preset(-1) {
		var supported []string
		for _, n := range presetNames {
			supported = append(supported, n)
		}
		slices.Sort(supported)

		return nil, fmt.Errorf("unknown preset: %s. Supported presets: %s", name, strings.Join(supported, ", "))
	}

	return &Spec{
		MeanFunction: preset.Expression(),
		Predictor:    DefaultPredictor,
		Parameters: []Effect{
			{Name: "a", Group: groupA},
			{Name: "b", Group: groupB},
		},
		Priors: []PriorSpec{
			{Target: "a", Prior: priorA},
			{Target: "b", Prior: priorB},
		},
		Control: DefaultControl(),
	}, nil
}
