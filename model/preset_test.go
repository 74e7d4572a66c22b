package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresetFromString(t *testing.T) {
	require.Equal(t, PresetMichailoff, PresetFromString("Michailoff"))
	require.Equal(t, PresetPower, PresetFromString("power"))
	require.Equal(t, Preset(-1), PresetFromString("cubic"))
	require.Equal(t, "unknown", Preset(-1).String())
}

func TestPresetsCompile(t *testing.T) {
	for p, name := range presetNames {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, name, p.String())
			s, err := NewPresetSpec(name, true, false, Normal(0, 1), Normal(0, 1))
			require.NoError(t, err)
			_, err = s.Compile()
			require.NoError(t, err)
		})
	}
}

func TestNewPresetSpecUnknown(t *testing.T) {
	_, err := NewPresetSpec("cubic", false, false, Normal(0, 1), Normal(0, 1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exponential, hyperbolic, logarithmic, michailoff, power")
}

func TestPresetsOrder(t *testing.T) {
	require.Equal(t, []Preset{PresetMichailoff, PresetHyperbolic, PresetLogarithmic, PresetPower, PresetExponential}, Presets())
}
