package sampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowSchedule(t *testing.T) {
	tests := []struct {
		name   string
		warmup int
		start  int
		stop   int
		ends   []int
	}{
		{"default warmup", 1000, 75, 950, []int{99, 149, 249, 449, 949}},
		{"short warmup", 100, 15, 90, []int{89}},
		{"exact fit", 150, 75, 100, []int{99}},
		{"too short", 19, 0, 0, nil},
		{"no warmup", 0, 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWindowSchedule(tt.warmup)
			require.Equal(t, tt.start, w.start)
			require.Equal(t, tt.stop, w.stop)
			require.Equal(t, tt.ends, w.ends)
			for _, e := range tt.ends {
				require.True(t, w.isEnd(e))
				require.True(t, w.inWindow(e))
			}
		})
	}
}

func TestWindowScheduleCoversWindows(t *testing.T) {
	for warmup := minMetricWarmup; warmup <= 3000; warmup += 37 {
		w := newWindowSchedule(warmup)
		require.NotEmpty(t, w.ends, "warmup %d", warmup)
		require.Equal(t, w.stop-1, w.ends[len(w.ends)-1], "warmup %d", warmup)
		require.False(t, w.inWindow(w.start-1))
		require.False(t, w.inWindow(w.stop))
		for i := 1; i < len(w.ends); i++ {
			require.Greater(t, w.ends[i], w.ends[i-1])
		}
	}
}

func TestStepAdapterConverges(t *testing.T) {
	// acceptance falls with the step size; the fixed point of 0.8 is -log(0.8)
	accept := func(eps float64) float64 { return math.Exp(-eps) }
	want := -math.Log(0.8)

	s := newStepAdapter(0.8)
	eps := 1.0
	s.restart(eps)
	for range 2000 {
		eps = s.update(accept(eps))
	}

	require.InDelta(t, want, s.final(), 0.1*want)
}

func TestStepAdapterRestart(t *testing.T) {
	s := newStepAdapter(0.8)
	s.restart(0.5)
	s.update(0.2)
	s.update(0.3)
	s.restart(0.1)

	require.Zero(t, s.counter)
	require.Zero(t, s.hBar)
	require.InDelta(t, math.Log(1.0), s.mu, 1e-12)

	// a perfect first update moves to exp(mu)
	require.InDelta(t, 1.0, s.update(0.8), 1e-12)
}

func TestStepAdapterNaN(t *testing.T) {
	s := newStepAdapter(0.8)
	s.restart(1)
	eps := s.update(math.NaN())
	require.False(t, math.IsNaN(eps))
	require.Less(t, eps, 10.0)
}

func TestMetricEstimator(t *testing.T) {
	m := newMetricEstimator(2)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		m.add([]float64{v, 7})
	}

	inv := []float64{1, 1}
	m.estimate(inv)
	require.InDelta(t, 0.5*2.5+0.5e-3, inv[0], 1e-12)
	require.InDelta(t, 0.5e-3, inv[1], 1e-12)
	require.Empty(t, m.samples)

	// a window with a single draw leaves the metric unchanged
	m.add([]float64{3, 3})
	m.estimate(inv)
	require.InDelta(t, 0.5*2.5+0.5e-3, inv[0], 1e-12)
}
