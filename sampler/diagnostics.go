package sampler

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/posterior"
)

// ParameterSummary holds the convergence summary of one posterior column.
type ParameterSummary struct {
	Name string
	Mean float64
	SD   float64
	// RHat is the split potential scale reduction factor. NaN when undefined.
	RHat float64
	// ESS is the multi-chain effective sample size of the raw draws, without
	// rank normalization or chain splitting. NaN when undefined.
	ESS float64
}

// Diagnostics summarizes the sampler health of a fit.
type Diagnostics struct {
	// Parameters holds one summary per posterior column, in column order.
	Parameters []ParameterSummary
	// Chains is the number of chains that completed.
	Chains int
	// Divergences counts divergent post-warmup transitions over all chains.
	Divergences int
	// MaxTreeDepthHits counts post-warmup transitions that reached the maximum
	// tree depth.
	MaxTreeDepthHits int
	// StepSizes holds the adapted step size of each completed chain.
	StepSizes []float64
	// ChainFailures lists the errors of chains that aborted.
	ChainFailures []error
	// Converged reports whether every column passed the R-hat and ESS checks.
	Converged bool
	// RHatThreshold and MinESS are the thresholds that were applied.
	RHatThreshold float64
	MinESS        float64
}

// Parameter returns the summary of a named column.
func (d *Diagnostics) Parameter(name string) (ParameterSummary, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}

	return ParameterSummary{}, false
}

// Err returns a *errs.NonConvergenceError listing every column that failed a
// check, or nil when the fit converged.
func (d *Diagnostics) Err() error {
	if d.Converged {
		return nil
	}

	e := &errs.NonConvergenceError{RHatThreshold: d.RHatThreshold, MinESS: d.MinESS}
	for _, p := range d.Parameters {
		if !d.passes(p) {
			e.Issues = append(e.Issues, errs.ConvergenceIssue{Parameter: p.Name, RHat: p.RHat, ESS: p.ESS})
		}
	}

	return e
}

// passes applies the thresholds to one column. Undefined values pass only for
// columns without variation, where no chain can disagree.
func (d *Diagnostics) passes(p ParameterSummary) bool {
	essOK := d.MinESS < 0 || p.ESS >= d.MinESS
	if math.IsNaN(p.RHat) || (math.IsNaN(p.ESS) && d.MinESS >= 0) {
		return p.SD == 0
	}

	return p.RHat <= d.RHatThreshold && essOK
}

// diagnose computes the diagnostics of a table. Single-chain fits still report
// split R-hat, which compares the two halves of the chain.
func diagnose(t *posterior.Table, rhatMax, minESS float64) Diagnostics {
	d := Diagnostics{
		Chains:        t.NumChains(),
		Divergences:   t.Divergences(),
		RHatThreshold: rhatMax,
		MinESS:        minESS,
		Converged:     true,
	}

	names := t.Columns()
	d.Parameters = make([]ParameterSummary, len(names))
	for j, name := range names {
		all := t.ColumnAt(j)
		mean, variance := stat.MeanVariance(all, nil)
		chains := t.ChainColumnAt(j)
		p := ParameterSummary{
			Name: name,
			Mean: mean,
			SD:   math.Sqrt(variance),
			RHat: SplitRHat(chains),
			ESS:  EffectiveSampleSize(chains),
		}
		if len(all) < 2 {
			p.SD = 0
		}
		d.Parameters[j] = p
		if !d.passes(p) {
			d.Converged = false
		}
	}

	return d
}

// SplitRHat computes the split potential scale reduction factor.
//
// Each chain is cut into a first and a second half of floor(n/2) draws; the
// middle draw of an odd-length chain is dropped. With W the mean within-half
// variance and B/n' the variance of the half means,
//
//	R̂ = sqrt(((n'-1)/n' · W + B/n') / W)
//
// Chains are truncated to the shortest one.
//
// Returns NaN when there are fewer than 4 draws per chain or W is zero.
func SplitRHat(chains [][]float64) float64 {
	n := minLen(chains)
	if n < 4 {
		return math.NaN()
	}

	half := n / 2
	means := make([]float64, 0, 2*len(chains))
	var w float64
	for _, c := range chains {
		for _, part := range [][]float64{c[:half], c[n-half : n]} {
			m, v := stat.MeanVariance(part, nil)
			means = append(means, m)
			w += v
		}
	}
	w /= float64(len(means))
	if !(w > 0) {
		return math.NaN()
	}

	nf := float64(half)
	bOverN := stat.Variance(means, nil)
	varPlus := (nf-1)/nf*w + bOverN

	return math.Sqrt(varPlus / w)
}

// EffectiveSampleSize estimates the multi-chain effective sample size.
//
// Autocorrelations are combined across chains against the pooled variance
// estimate and summed in pairs until a pair sum turns negative (Geyer's initial
// positive sequence), with pair sums forced to be non-increasing (initial
// monotone sequence). The estimate is capped at N·log10(N) for N total draws.
//
// Chains are truncated to the shortest one.
//
// Returns NaN when there are fewer than 4 draws per chain or the pooled
// variance is zero.
func EffectiveSampleSize(chains [][]float64) float64 {
	n := minLen(chains)
	m := len(chains)
	if n < 4 {
		return math.NaN()
	}

	ac := newAutocov(chains, n)

	var meanVar float64
	chainMeans := make([]float64, m)
	for i := range chains {
		meanVar += ac.at(i, 0) * float64(n) / float64(n-1)
		chainMeans[i] = ac.means[i]
	}
	meanVar /= float64(m)

	varPlus := meanVar * float64(n-1) / float64(n)
	if m > 1 {
		varPlus += stat.Variance(chainMeans, nil)
	}
	if !(varPlus > 0) || math.IsInf(varPlus, 0) {
		return math.NaN()
	}

	rho := func(t int) float64 {
		var s float64
		for i := range chains {
			s += ac.at(i, t)
		}

		return 1 - (meanVar-s/float64(m))/varPlus
	}

	rhoHat := make([]float64, n)
	rhoEven, rhoOdd := 1.0, rho(1)
	rhoHat[0], rhoHat[1] = rhoEven, rhoOdd

	s := 1
	for s < n-4 && rhoEven+rhoOdd > 0 {
		rhoEven = rho(s + 1)
		rhoOdd = rho(s + 2)
		if rhoEven+rhoOdd >= 0 {
			rhoHat[s+1] = rhoEven
			rhoHat[s+2] = rhoOdd
		}
		s += 2
	}
	maxT := s - 2
	if rhoEven > 0 {
		rhoHat[maxT+1] = rhoEven
	}

	for t := 1; t <= maxT-2; t += 2 {
		if rhoHat[t+1]+rhoHat[t+2] > rhoHat[t-1]+rhoHat[t] {
			rhoHat[t+1] = (rhoHat[t-1] + rhoHat[t]) / 2
			rhoHat[t+2] = rhoHat[t+1]
		}
	}

	total := float64(m * n)
	tau := -1 + 2*floats.Sum(rhoHat[:maxT+1]) + rhoHat[maxT+1]
	ess := total / tau
	if limit := total * math.Log10(total); ess > limit || tau <= 0 {
		ess = limit
	}

	return ess
}

// autocov computes chain autocovariances on demand.
type autocov struct {
	centered [][]float64
	means    []float64
	n        int
}

func newAutocov(chains [][]float64, n int) *autocov {
	ac := &autocov{
		centered: make([][]float64, len(chains)),
		means:    make([]float64, len(chains)),
		n:        n,
	}
	for i, c := range chains {
		x := c[:n]
		mean := stat.Mean(x, nil)
		cx := make([]float64, n)
		copy(cx, x)
		floats.AddConst(-mean, cx)
		ac.centered[i] = cx
		ac.means[i] = mean
	}

	return ac
}

// at returns the biased lag-t autocovariance of chain i.
func (ac *autocov) at(i, t int) float64 {
	c := ac.centered[i]
	return floats.Dot(c[:ac.n-t], c[t:]) / float64(ac.n)
}

func minLen(chains [][]float64) int {
	if len(chains) == 0 {
		return 0
	}
	n := len(chains[0])
	for _, c := range chains[1:] {
		n = min(n, len(c))
	}

	return n
}
