package sampler

import (
	"math"
	"math/rand/v2"

	"github.com/arloliu/hierfit/regression"
)

// maxInitAttempts bounds the search for a finite starting point.
const maxInitAttempts = 100

// initializer draws starting points on the unconstrained scale.
type initializer struct {
	pr     *problem
	radius float64
	pooled *regression.Model
}

// draw fills q with a random starting point. Pooled starts jitter the pooled
// least-squares coefficients; otherwise population parameters are drawn
// uniformly within radius of their prior center.
func (in *initializer) draw(rng *rand.Rand, q []float64, pooled *regression.Model) {
	l := in.pr.layout
	r := in.radius
	unif := func(c, w float64) float64 { return c + w*(2*rng.Float64()-1) }

	logSigma := 0.0
	if c := in.pr.sigma.Center(); c > 0 {
		logSigma = math.Log(c)
	}
	if pooled != nil && pooled.RMSE > 0 {
		logSigma = math.Log(pooled.RMSE)
	}

	for p, param := range in.pr.params {
		if pooled != nil {
			b := pooled.Coefficients[p]
			q[l.Population(p)] = unif(b, 0.1*math.Max(1, math.Abs(b)))
		} else {
			q[l.Population(p)] = unif(param.Prior.Center(), r)
		}
		if !param.Group {
			continue
		}
		if pooled != nil {
			q[l.SD(p)] = unif(-1, 1)
			for g := range l.Groups() {
				q[l.Group(p, g)] = unif(0, 0.5)
			}
			continue
		}
		q[l.SD(p)] = unif(0, r)
		for g := range l.Groups() {
			q[l.Group(p, g)] = unif(0, r)
		}
	}

	if pooled != nil {
		q[l.Sigma()] = unif(logSigma, 0.2)
	} else {
		q[l.Sigma()] = unif(logSigma, r)
	}
}

// initialize searches for a starting point with finite log density and
// gradient. Pooled starts are tried for the first half of the attempts. It
// reports false after maxInitAttempts failures.
func (in *initializer) initialize(t target, rng *rand.Rand, pt *point) bool {
	for attempt := range maxInitAttempts {
		pooled := in.pooled
		if attempt >= maxInitAttempts/2 {
			pooled = nil
		}
		in.draw(rng, pt.q, pooled)
		lp, ok := t.LogDensity(pt.q, pt.grad)
		if ok {
			pt.lp = lp
			return true
		}
	}

	return false
}
