// Package metrics records Prometheus metrics of sampling runs.
//
// A Recorder owns its registry, so one process can keep independent sets of
// metrics per run. Batch runs export with WriteTextfile for the node exporter
// textfile collector.
package metrics

import (
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arloliu/hierfit/sampler"
)

// Recorder collects sampler metrics.
type Recorder struct {
	registry *prometheus.Registry

	iterations  *prometheus.CounterVec
	stepSize    *prometheus.GaugeVec
	divergences prometheus.Gauge
	depthHits   prometheus.Gauge
	chainFails  prometheus.Gauge
	maxRHat     prometheus.Gauge
	minESS      prometheus.Gauge
	converged   prometheus.Gauge
	duration    prometheus.Histogram
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		iterations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hierfit_sampler_iterations_total",
				Help: "Sampler iterations completed, by chain and phase",
			},
			[]string{"chain", "phase"},
		),
		stepSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hierfit_sampler_step_size",
				Help: "Current leapfrog step size, by chain",
			},
			[]string{"chain"},
		),
		divergences: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hierfit_fit_divergences",
			Help: "Divergent post-warmup transitions of the last fit",
		}),
		depthHits: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hierfit_fit_max_tree_depth_hits",
			Help: "Post-warmup transitions of the last fit that hit the maximum tree depth",
		}),
		chainFails: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hierfit_fit_chain_failures",
			Help: "Chains of the last fit that aborted",
		}),
		maxRHat: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hierfit_fit_rhat_max",
			Help: "Largest split R-hat over all columns of the last fit",
		}),
		minESS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hierfit_fit_ess_min",
			Help: "Smallest effective sample size over all columns of the last fit",
		}),
		converged: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hierfit_fit_converged",
			Help: "1 when the last fit passed the convergence checks",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hierfit_fit_duration_seconds",
			Help:    "Wall time of fits",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// Registry returns the registry the metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Progress is a sampler progress callback. Pass it to sampler.WithProgress.
func (r *Recorder) Progress(p sampler.Progress) {
	chain := strconv.Itoa(p.Chain)
	phase := "sampling"
	if p.Warmup {
		phase = "warmup"
	}
	r.iterations.WithLabelValues(chain, phase).Inc()
	r.stepSize.WithLabelValues(chain).Set(p.StepSize)
}

// ObserveFit records the diagnostics and wall time of a finished fit.
func (r *Recorder) ObserveFit(d *sampler.Diagnostics, elapsed time.Duration) {
	r.duration.Observe(elapsed.Seconds())
	if d == nil {
		return
	}

	r.divergences.Set(float64(d.Divergences))
	r.depthHits.Set(float64(d.MaxTreeDepthHits))
	r.chainFails.Set(float64(len(d.ChainFailures)))

	maxRHat, minESS := math.NaN(), math.NaN()
	for _, p := range d.Parameters {
		if !math.IsNaN(p.RHat) && (math.IsNaN(maxRHat) || p.RHat > maxRHat) {
			maxRHat = p.RHat
		}
		if !math.IsNaN(p.ESS) && (math.IsNaN(minESS) || p.ESS < minESS) {
			minESS = p.ESS
		}
	}
	r.maxRHat.Set(maxRHat)
	r.minESS.Set(minESS)

	if d.Converged {
		r.converged.Set(1)
	} else {
		r.converged.Set(0)
	}
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
