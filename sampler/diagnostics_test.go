package sampler

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/model"
)

func iidChains(seed uint64, m, n int) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	chains := make([][]float64, m)
	for c := range chains {
		chains[c] = make([]float64, n)
		for i := range chains[c] {
			chains[c][i] = rng.NormFloat64()
		}
	}

	return chains
}

func ar1Chains(seed uint64, m, n int, phi float64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	chains := make([][]float64, m)
	for c := range chains {
		x := rng.NormFloat64() / math.Sqrt(1-phi*phi)
		chains[c] = make([]float64, n)
		for i := range chains[c] {
			x = phi*x + rng.NormFloat64()
			chains[c][i] = x
		}
	}

	return chains
}

func TestSplitRHat(t *testing.T) {
	t.Run("independent chains", func(t *testing.T) {
		r := SplitRHat(iidChains(1, 4, 1000))
		require.InDelta(t, 1.0, r, 0.01)
	})

	t.Run("shifted chain", func(t *testing.T) {
		chains := iidChains(2, 4, 1000)
		for i := range chains[0] {
			chains[0][i] += 3
		}
		require.Greater(t, SplitRHat(chains), 1.1)
	})

	t.Run("trending single chain", func(t *testing.T) {
		chains := iidChains(3, 1, 1000)
		for i := range chains[0] {
			chains[0][i] += float64(i) / 100
		}
		require.Greater(t, SplitRHat(chains), 1.1)
	})

	t.Run("odd length drops middle draw", func(t *testing.T) {
		base := iidChains(4, 2, 100)
		odd := [][]float64{
			append(append(append([]float64{}, base[0][:50]...), 1e6), base[0][50:]...),
			append(append(append([]float64{}, base[1][:50]...), -1e6), base[1][50:]...),
		}
		require.InDelta(t, SplitRHat(base), SplitRHat(odd), 1e-12)
	})

	t.Run("undefined", func(t *testing.T) {
		require.True(t, math.IsNaN(SplitRHat(nil)))
		require.True(t, math.IsNaN(SplitRHat([][]float64{{1, 2, 3}})))
		require.True(t, math.IsNaN(SplitRHat([][]float64{{2, 2, 2, 2}, {2, 2, 2, 2}})))
	})
}

func TestEffectiveSampleSize(t *testing.T) {
	t.Run("independent draws", func(t *testing.T) {
		ess := EffectiveSampleSize(iidChains(5, 4, 1000))
		require.Greater(t, ess, 3000.0)
		require.Less(t, ess, 5000.0)
	})

	t.Run("autocorrelated draws", func(t *testing.T) {
		// N(1-phi)/(1+phi) is about 210
		ess := EffectiveSampleSize(ar1Chains(6, 4, 1000, 0.9))
		require.Greater(t, ess, 120.0)
		require.Less(t, ess, 400.0)
	})

	t.Run("capped", func(t *testing.T) {
		// alternating chains are perfectly antithetic
		chains := make([][]float64, 2)
		for c := range chains {
			chains[c] = make([]float64, 100)
			for i := range chains[c] {
				chains[c][i] = float64(1 - 2*(i%2))
			}
		}
		n := 200.0
		require.LessOrEqual(t, EffectiveSampleSize(chains), n*math.Log10(n)+1e-9)
	})

	t.Run("undefined", func(t *testing.T) {
		require.True(t, math.IsNaN(EffectiveSampleSize([][]float64{{1, 2, 3}})))
		require.True(t, math.IsNaN(EffectiveSampleSize([][]float64{{5, 5, 5, 5, 5}})))
	})
}

func TestDiagnosticsErr(t *testing.T) {
	d := Diagnostics{
		Parameters: []ParameterSummary{
			{Name: "a", SD: 1, RHat: 1.001, ESS: 900},
			{Name: "b", SD: 1, RHat: 1.2, ESS: 900},
			{Name: "sigma", SD: 1, RHat: 1.0, ESS: 50},
			{Name: "c", SD: 0, RHat: math.NaN(), ESS: math.NaN()},
		},
		RHatThreshold: 1.01,
		MinESS:        400,
	}
	require.NoError(t, (&Diagnostics{Converged: true}).Err())

	err := d.Err()
	require.ErrorIs(t, err, errs.ErrSamplerNonConvergence)

	var nc *errs.NonConvergenceError
	require.True(t, errors.As(err, &nc))
	require.Len(t, nc.Issues, 2)
	require.Equal(t, "b", nc.Issues[0].Parameter)
	require.Equal(t, "sigma", nc.Issues[1].Parameter)

	p, ok := d.Parameter("sigma")
	require.True(t, ok)
	require.Equal(t, 50.0, p.ESS)
	_, ok = d.Parameter("missing")
	require.False(t, ok)
}

func TestDiagnosticsWithoutESSCheck(t *testing.T) {
	d := Diagnostics{
		Parameters: []ParameterSummary{
			{Name: "a", SD: 1, RHat: 1.002, ESS: 12},
			{Name: "b", SD: 1, RHat: 1.004, ESS: math.NaN()},
			{Name: "sigma", SD: 1, RHat: 1.3, ESS: 900},
		},
		RHatThreshold: 1.01,
		MinESS:        model.NoESSCheck,
	}

	var nc *errs.NonConvergenceError
	require.True(t, errors.As(d.Err(), &nc))
	require.Len(t, nc.Issues, 1)
	require.Equal(t, "sigma", nc.Issues[0].Parameter)
}
