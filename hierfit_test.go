package hierfit

import (
	"bytes"
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/format"
	"github.com/arloliu/hierfit/model"
	"github.com/arloliu/hierfit/observation"
	"github.com/arloliu/hierfit/posterior"
	"github.com/arloliu/hierfit/sampler"
	"github.com/arloliu/hierfit/summary"
	"github.com/arloliu/hierfit/trace"
)

// standObservations simulates tree heights exp(a_g + b/d) + noise.
func standObservations(seed uint64, perGroup int) []observation.Observation {
	rng := rand.New(rand.NewPCG(seed, 3))
	offsets := map[string]float64{"spruce": -0.1, "pine": 0.1}
	var obs []observation.Observation
	for _, g := range []string{"spruce", "pine"} {
		for range perGroup {
			d := 5 + 45*rng.Float64()
			h := math.Exp(3.3+offsets[g]-9/d) + 0.5*rng.NormFloat64()
			obs = append(obs, observation.Observation{
				Group:     g,
				Predictor: d,
				Response:  math.Max(h, 0),
				Payload:   map[string]string{"plot": g + "-1"},
			})
		}
	}

	return obs
}

func testSpec() *model.Spec {
	spec, _ := model.NewPresetSpec("michailoff", true, false, model.Normal(3, 1), model.Normal(-10, 5))
	spec.Priors = append(spec.Priors, model.PriorSpec{Target: "sd_a", Prior: model.Normal(0, 0.5)})
	spec.Control = model.Control{Chains: 2, Iterations: 400, Warmup: 200, Seed: 5}

	return spec
}

func TestFitProjectBands(t *testing.T) {
	obs := standObservations(1, 40)

	res, err := Fit(context.Background(), obs, testSpec(), sampler.WithParallelism(2))
	require.NoError(t, err)
	require.Equal(t, 400, res.Table.Len())

	rows := []observation.Observation{
		{Row: 1, Group: "spruce", Predictor: 20},
		{Row: 2, Group: "pine", Predictor: 20},
		{Row: 3, Group: "larch", Predictor: 20},
	}

	fitted, err := Project(res.Table, rows, posterior.ModeFitted, posterior.WithMaxDraws(100))
	require.NoError(t, err)
	require.Len(t, fitted, 300)
	for _, v := range fitted {
		require.Equal(t, v.Row == 3, v.PopulationOnly)
	}

	bands, err := Bands(fitted, ByRow)
	require.NoError(t, err)
	require.Len(t, bands, 3)
	// the pine offset is positive, so its band sits above spruce
	require.Greater(t, bands[1].Median, bands[0].Median)
	for _, b := range bands {
		require.Equal(t, 100, b.N)
		require.LessOrEqual(t, b.Lower, b.Median)
		require.LessOrEqual(t, b.Median, b.Upper)
	}

	predicted, err := Project(res.Table, rows[:1], posterior.ModePredicted, posterior.WithSeed(9))
	require.NoError(t, err)
	wide, err := Bands(predicted, ByGroup, summary.WithWidth(0.9))
	require.NoError(t, err)
	require.Len(t, wide, 1)
	require.Equal(t, "spruce", wide[0].Key)
	require.Greater(t, wide[0].Upper-wide[0].Lower, bands[0].Upper-bands[0].Lower)

	_, err = Bands(fitted, Grouping(7))
	require.Error(t, err)
}

func TestTraceRoundTrip(t *testing.T) {
	res, err := Fit(context.Background(), standObservations(2, 25), testSpec())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, SaveTrace(&buf, res.Table, trace.WithCompression(format.CompressionLZ4)))

	table, err := LoadTrace(&buf)
	require.NoError(t, err)
	require.Equal(t, res.Table.Len(), table.Len())
	require.Equal(t, res.Table.Columns(), table.Columns())

	row := []observation.Observation{{Row: 1, Group: "pine", Predictor: 12}}
	before, err := Project(res.Table, row, posterior.ModeFitted)
	require.NoError(t, err)
	after, err := Project(table, row, posterior.ModeFitted)
	require.NoError(t, err)
	require.Equal(t, before, after)

	_, err = LoadTrace(bytes.NewReader([]byte("not a trace")))
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
}

func TestComparePresets(t *testing.T) {
	res, err := ComparePresets(standObservations(3, 60))
	require.NoError(t, err)
	require.NotEmpty(t, res.AllModels)
	require.Greater(t, res.BestFit.RSquared, 0.8)
}

func TestFitInvalidInput(t *testing.T) {
	_, err := Fit(context.Background(), nil, testSpec())
	require.ErrorIs(t, err, errs.ErrInsufficientData)

	_, err = Fit(context.Background(), []observation.Observation{{Group: "g", Predictor: -1, Response: 1}}, testSpec())
	require.ErrorIs(t, err, errs.ErrInvalidObservation)
}
