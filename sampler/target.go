package sampler

import (
	"math"

	"github.com/arloliu/hierfit/model"
	"github.com/arloliu/hierfit/observation"
)

// target is an unnormalized log density on an unconstrained space.
type target interface {
	Dim() int
	// LogDensity writes the gradient to grad and reports whether the value
	// and gradient are finite.
	LogDensity(q, grad []float64) (float64, bool)
}

// problem is the read-only data and layout shared by all chains.
type problem struct {
	model  *model.Model
	layout *model.Layout
	params []model.Parameter
	sigma  model.Prior
	xs     [][]float64 // per group
	ys     [][]float64
	n      int
}

func newProblem(m *model.Model, set observation.Set) *problem {
	groups := set.Groups()
	pr := &problem{
		model:  m,
		layout: model.NewLayout(m, groups),
		params: m.Parameters(),
		sigma:  m.SigmaPrior(),
		xs:     make([][]float64, len(groups)),
		ys:     make([][]float64, len(groups)),
		n:      set.Len(),
	}
	for g := range groups {
		for o := range set.Group(g) {
			pr.xs[g] = append(pr.xs[g], o.Predictor)
			pr.ys[g] = append(pr.ys[g], o.Response)
		}
	}

	return pr
}

// constrain maps an unconstrained vector to column values.
func (pr *problem) constrain(q, out []float64) {
	l := pr.layout
	for p, param := range pr.params {
		out[l.Population(p)] = q[l.Population(p)]
		if !param.Group {
			continue
		}
		tau := math.Exp(q[l.SD(p)])
		out[l.SD(p)] = tau
		for g := range l.Groups() {
			out[l.Group(p, g)] = tau * q[l.Group(p, g)]
		}
	}
	out[l.Sigma()] = math.Exp(q[l.Sigma()])
}

// density is the posterior of a problem on the unconstrained scale. It owns
// scratch space and belongs to a single chain.
type density struct {
	*problem
	ev    *model.Evaluator
	theta []float64
	dmu   []float64
	tau   []float64
}

func (pr *problem) newDensity() *density {
	p := len(pr.params)

	return &density{
		problem: pr,
		ev:      pr.model.Expression().NewEvaluator(),
		theta:   make([]float64, p),
		dmu:     make([]float64, p),
		tau:     make([]float64, p),
	}
}

func (d *density) Dim() int { return d.layout.Dim() }

// LogDensity evaluates
//
//	Σ_p log π(β_p) + Σ_{p grouped} [log π_sd(τ_p) + log τ_p - Σ_g z²/2]
//	  + log π_σ(σ) + log σ + Σ_i [-log σ - (y_i - μ_i)²/(2σ²)]
//
// up to an additive constant.
func (d *density) LogDensity(q, grad []float64) (float64, bool) {
	l := d.layout
	clear(grad)

	var lp float64
	for p, param := range d.params {
		b := q[l.Population(p)]
		v, dv := param.Prior.LogDensity(b)
		lp += v
		grad[l.Population(p)] += dv

		if !param.Group {
			continue
		}
		lt := q[l.SD(p)]
		tau := math.Exp(lt)
		d.tau[p] = tau
		v, dv = param.GroupPrior.LogDensity(tau)
		lp += v + lt
		grad[l.SD(p)] += dv*tau + 1
		for g := range d.xs {
			z := q[l.Group(p, g)]
			lp -= 0.5 * z * z
			grad[l.Group(p, g)] -= z
		}
	}

	ls := q[l.Sigma()]
	sigma := math.Exp(ls)
	v, dv := d.sigma.LogDensity(sigma)
	lp += v + ls
	grad[l.Sigma()] += dv*sigma + 1

	inv := 1 / (sigma * sigma)
	var ssr float64
	for g, xs := range d.xs {
		for p, param := range d.params {
			d.theta[p] = q[l.Population(p)]
			if param.Group {
				d.theta[p] += d.tau[p] * q[l.Group(p, g)]
			}
		}

		ys := d.ys[g]
		for i, x := range xs {
			mu := d.ev.Gradient(x, d.theta, d.dmu)
			r := ys[i] - mu
			ssr += r * r
			s := r * inv
			for p, param := range d.params {
				gp := s * d.dmu[p]
				grad[l.Population(p)] += gp
				if param.Group {
					tz := d.tau[p] * q[l.Group(p, g)]
					grad[l.Group(p, g)] += gp * d.tau[p]
					grad[l.SD(p)] += gp * tz
				}
			}
		}
	}

	lp += -float64(d.n)*ls - 0.5*ssr*inv
	grad[l.Sigma()] += -float64(d.n) + ssr*inv

	if !finite(lp) {
		return math.Inf(-1), false
	}
	for _, g := range grad {
		if !finite(g) {
			return math.Inf(-1), false
		}
	}

	return lp, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
