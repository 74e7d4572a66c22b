package observation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/hierfit/errs"
)

func sampleObservations() []Observation {
	return []Observation{
		{Group: "oak", Predictor: 10, Response: 8},
		{Group: "pine", Predictor: 12, Response: 11, Payload: "tree-17"},
		{Group: "oak", Predictor: 20, Response: 14},
		{Group: "birch", Predictor: 7, Response: 6},
		{Group: "oak", Predictor: 30, Response: 14},
	}
}

func TestNewSet(t *testing.T) {
	set, err := NewSet(sampleObservations())
	require.NoError(t, err)

	require.Equal(t, 5, set.Len())
	require.Equal(t, []string{"oak", "pine", "birch"}, set.Groups())
	require.Equal(t, 3, set.NumGroups())

	for i, o := range set.All() {
		require.Equal(t, i+1, o.Row)
	}

	g, ok := set.GroupIndex("oak")
	require.True(t, ok)
	require.Equal(t, 0, g)
	require.Equal(t, 3, set.GroupSize(g))
	require.Equal(t, 2, set.DistinctResponses(g))
	require.Equal(t, 1, set.GroupOf(1))
	require.Equal(t, 2, set.GroupOf(3))

	var preds []float64
	for o := range set.Group(g) {
		preds = append(preds, o.Predictor)
	}
	require.Equal(t, []float64{10, 20, 30}, preds)

	o, ok := set.ByRow(2)
	require.True(t, ok)
	require.Equal(t, "tree-17", o.Payload)
	_, ok = set.ByRow(99)
	require.False(t, ok)

	x, y := set.Columns()
	require.Equal(t, []float64{10, 12, 20, 7, 30}, x)
	require.Equal(t, []float64{8, 11, 14, 6, 14}, y)
}

func TestNewSetIsolatesInput(t *testing.T) {
	obs := sampleObservations()
	set, err := NewSet(obs)
	require.NoError(t, err)

	obs[0].Response = 1000
	require.Equal(t, 8.0, set.At(0).Response)
	require.Equal(t, 0, obs[1].Row, "input rows are not assigned in place")

	groups := set.Groups()
	groups[0] = "changed"
	require.Equal(t, "oak", set.Groups()[0])
}

func TestNewSetKeepsExplicitRows(t *testing.T) {
	set, err := NewSet([]Observation{
		{Row: 40, Group: "a", Predictor: 1, Response: 1},
		{Row: 7, Group: "a", Predictor: 2, Response: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 40, set.At(0).Row)
	require.Equal(t, 7, set.At(1).Row)
}

func TestNewSetErrors(t *testing.T) {
	tests := []struct {
		name string
		obs  []Observation
		want error
	}{
		{"empty", nil, errs.ErrInsufficientData},
		{"zero predictor", []Observation{{Group: "a", Predictor: 0, Response: 1}}, errs.ErrInvalidObservation},
		{"nan predictor", []Observation{{Group: "a", Predictor: math.NaN(), Response: 1}}, errs.ErrInvalidObservation},
		{"negative response", []Observation{{Group: "a", Predictor: 1, Response: -1}}, errs.ErrInvalidObservation},
		{"infinite response", []Observation{{Group: "a", Predictor: 1, Response: math.Inf(1)}}, errs.ErrInvalidObservation},
		{"empty group", []Observation{{Predictor: 1, Response: 1}}, errs.ErrInvalidObservation},
		{"negative row", []Observation{{Row: -3, Group: "a", Predictor: 1, Response: 1}}, errs.ErrInvalidObservation},
		{
			"duplicate row",
			[]Observation{
				{Row: 2, Group: "a", Predictor: 1, Response: 1},
				{Group: "a", Predictor: 1, Response: 2},
			},
			errs.ErrInvalidObservation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.obs)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFilterMinDistinct(t *testing.T) {
	obs := NumberRows(sampleObservations())
	kept := FilterMinDistinct(obs, 2)
	require.Len(t, kept, 3)
	for _, o := range kept {
		require.Equal(t, "oak", o.Group)
	}
	require.Equal(t, []int{1, 3, 5}, []int{kept[0].Row, kept[1].Row, kept[2].Row})

	require.Len(t, FilterMinDistinct(obs, 1), 5)
	require.Empty(t, FilterMinDistinct(obs, 3))

	_, err := NewSet(FilterMinDistinct(obs, 3))
	require.ErrorIs(t, err, errs.ErrInsufficientData)
}
