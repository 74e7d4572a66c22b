package sampler

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Dual averaging constants.
const (
	daGamma = 0.05
	daT0    = 10.0
	daKappa = 0.75
)

// Adaptation window layout for warmup.
const (
	initBuffer = 75
	termBuffer = 50
	baseWindow = 25
	// minMetricWarmup is the shortest warmup that adapts the metric.
	minMetricWarmup = 20
)

// stepAdapter tunes the step size by Nesterov dual averaging.
type stepAdapter struct {
	delta     float64
	mu        float64
	hBar      float64
	logEpsBar float64
	counter   int
}

func newStepAdapter(delta float64) *stepAdapter {
	return &stepAdapter{delta: delta}
}

// restart shrinks toward 10·eps from a fresh state.
func (s *stepAdapter) restart(eps float64) {
	s.mu = math.Log(10 * eps)
	s.hBar = 0
	s.logEpsBar = 0
	s.counter = 0
}

// update records an acceptance statistic and returns the next step size.
func (s *stepAdapter) update(accept float64) float64 {
	if math.IsNaN(accept) {
		accept = 0
	}
	s.counter++
	m := float64(s.counter)

	eta := 1 / (m + daT0)
	s.hBar = (1-eta)*s.hBar + eta*(s.delta-accept)

	logEps := s.mu - math.Sqrt(m)/daGamma*s.hBar
	w := math.Pow(m, -daKappa)
	s.logEpsBar = w*logEps + (1-w)*s.logEpsBar

	return math.Exp(logEps)
}

// final returns the averaged step size used after warmup.
func (s *stepAdapter) final() float64 {
	return math.Exp(s.logEpsBar)
}

// windowSchedule lists the warmup iterations that close a metric window.
type windowSchedule struct {
	start int // first iteration of the first window
	stop  int // one past the last windowed iteration
	ends  []int
}

// newWindowSchedule lays out doubling windows between the init and terminal
// buffers. When the default buffers do not fit, they shrink to 15% and 10%
// of warmup. A window that would leave too little room for the next, doubled
// window is stretched to the terminal buffer.
func newWindowSchedule(warmup int) windowSchedule {
	if warmup < minMetricWarmup {
		return windowSchedule{}
	}

	start, term, base := initBuffer, termBuffer, baseWindow
	if start+term+base > warmup {
		start = int(0.15 * float64(warmup))
		term = int(0.1 * float64(warmup))
		base = warmup - start - term
	}

	w := windowSchedule{start: start, stop: warmup - term}
	size := base
	for begin := start; begin < w.stop; {
		end := begin + size
		if end+2*size > w.stop {
			end = w.stop
		}
		w.ends = append(w.ends, end-1)
		begin = end
		size *= 2
	}

	return w
}

func (w windowSchedule) inWindow(i int) bool {
	return i >= w.start && i < w.stop
}

func (w windowSchedule) isEnd(i int) bool {
	for _, e := range w.ends {
		if e == i {
			return true
		}
	}

	return false
}

// metricEstimator collects unconstrained draws of one adaptation window.
type metricEstimator struct {
	dim     int
	samples [][]float64
	col     []float64
}

func newMetricEstimator(dim int) *metricEstimator {
	return &metricEstimator{dim: dim}
}

func (m *metricEstimator) add(q []float64) {
	m.samples = append(m.samples, append([]float64(nil), q...))
}

// estimate writes the regularized variances of the window to invMetric and
// clears the window. Variances shrink toward 1e-3 with weight 5/(n+5).
func (m *metricEstimator) estimate(invMetric []float64) {
	n := len(m.samples)
	if n < 2 {
		m.samples = m.samples[:0]
		return
	}

	if cap(m.col) < n {
		m.col = make([]float64, n)
	}
	col := m.col[:n]
	nf := float64(n)
	for j := 0; j < m.dim; j++ {
		for i, s := range m.samples {
			col[i] = s[j]
		}
		v := stat.Variance(col, nil)
		invMetric[j] = (nf/(nf+5))*v + 1e-3*(5/(nf+5))
	}
	m.samples = m.samples[:0]
}
