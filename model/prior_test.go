package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorLogDensity(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		lp, d := Normal(1, 2).LogDensity(3)
		want := -0.5*math.Log(2*math.Pi) - math.Log(2) - 0.5
		require.InDelta(t, want, lp, 1e-12)
		require.InDelta(t, -0.5, d, 1e-12)
	})

	t.Run("exponential", func(t *testing.T) {
		lp, d := Exponential(2).LogDensity(0.5)
		require.InDelta(t, math.Log(2)-1, lp, 1e-12)
		require.Equal(t, -2.0, d)
	})

	t.Run("student_t derivative", func(t *testing.T) {
		p := StudentT(3, 0.5, 2.5)
		const h = 1e-6
		for _, x := range []float64{-4, 0, 0.5, 2, 9} {
			_, d := p.LogDensity(x)
			up, _ := p.LogDensity(x + h)
			dn, _ := p.LogDensity(x - h)
			require.InDelta(t, (up-dn)/(2*h), d, 1e-6)
		}
	})

	t.Run("unknown family", func(t *testing.T) {
		lp, _ := Prior{}.LogDensity(1)
		require.True(t, math.IsInf(lp, -1))
	})
}

func TestPriorValidate(t *testing.T) {
	require.NoError(t, Normal(0, 1).Validate(false))
	require.NoError(t, StudentT(3, 0, 2.5).Validate(true))
	require.NoError(t, Exponential(1).Validate(true))

	require.Error(t, Normal(0, 0).Validate(false))
	require.Error(t, Normal(math.NaN(), 1).Validate(false))
	require.Error(t, StudentT(0, 0, 1).Validate(false))
	require.Error(t, Exponential(1).Validate(false))
	require.Error(t, Exponential(-1).Validate(true))
	require.Error(t, Prior{}.Validate(false))
}

func TestParsePriorRoundTrip(t *testing.T) {
	priors := []Prior{
		Normal(3, 1),
		Normal(-10, 5.5),
		StudentT(3, 0, 2.5),
		Exponential(0.25),
	}
	for _, p := range priors {
		t.Run(p.String(), func(t *testing.T) {
			got, err := ParsePrior(p.String())
			require.NoError(t, err)
			require.Equal(t, p, got)
		})
	}
}

func TestParsePriorErrors(t *testing.T) {
	for _, s := range []string{
		"normal(0)",
		"cauchy(0, 1)",
		"normal(a, 1)",
		"normal",
		"normal(0, 1",
		"pkg.normal(0, 1)",
	} {
		_, err := ParsePrior(s)
		require.Error(t, err, s)
	}
}

func TestPriorCenter(t *testing.T) {
	require.Equal(t, 3.0, Normal(3, 1).Center())
	require.Equal(t, 4.0, Exponential(0.25).Center())
	require.Equal(t, "student_t", FamilyStudentT.String())
	require.Equal(t, "unknown", Family(0).String())
}
