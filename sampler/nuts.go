package sampler

import (
	"math"
	"math/rand/v2"
)

// maxDeltaH is the energy error beyond which a trajectory is divergent.
const maxDeltaH = 1000.0

// point is a phase-space state.
type point struct {
	q, p, grad []float64
	lp         float64
}

func newPoint(dim int) *point {
	buf := make([]float64, 3*dim)

	return &point{q: buf[:dim:dim], p: buf[dim : 2*dim : 2*dim], grad: buf[2*dim:]}
}

// arena hands out points for one trajectory. Points stay valid until reset.
type arena struct {
	dim  int
	pts  []*point
	next int
}

func (a *arena) alloc() *point {
	if a.next == len(a.pts) {
		a.pts = append(a.pts, newPoint(a.dim))
	}
	pt := a.pts[a.next]
	a.next++

	return pt
}

func (a *arena) reset() { a.next = 0 }

// transition summarizes one NUTS iteration.
type transition struct {
	depth      int
	leapfrogs  int
	acceptStat float64
	divergent  bool
	numerical  bool
	moved      bool
	stepSize   float64
}

// subtree is the result of building a balanced binary tree of 2^depth
// leapfrog steps in one direction.
type subtree struct {
	minus, plus *point
	proposal    *point
	n           int
	ok          bool
}

// integrator runs NUTS transitions on a target with a diagonal metric.
type integrator struct {
	target    target
	rng       *rand.Rand
	invMetric []float64
	maxDepth  int
	arena     arena

	// per-transition state
	eps       float64
	joint0    float64
	logU      float64
	alphaSum  float64
	nAlpha    int
	leapfrogs int
	divergent bool
	numerical bool
}

func newIntegrator(t target, rng *rand.Rand, maxDepth int) *integrator {
	inv := make([]float64, t.Dim())
	for i := range inv {
		inv[i] = 1
	}

	return &integrator{
		target:    t,
		rng:       rng,
		invMetric: inv,
		maxDepth:  maxDepth,
		arena:     arena{dim: t.Dim()},
	}
}

func (it *integrator) kinetic(p []float64) float64 {
	var k float64
	for i, v := range p {
		k += v * v * it.invMetric[i]
	}

	return 0.5 * k
}

func (it *integrator) sampleMomentum(p []float64) {
	for i := range p {
		p[i] = it.rng.NormFloat64() / math.Sqrt(it.invMetric[i])
	}
}

// start copies cur into a fresh arena and draws a momentum.
func (it *integrator) start(cur *point) *point {
	it.arena.reset()
	s := it.arena.alloc()
	copy(s.q, cur.q)
	copy(s.grad, cur.grad)
	s.lp = cur.lp
	it.sampleMomentum(s.p)

	return s
}

// leapfrog integrates one step of size v*eps from a.
func (it *integrator) leapfrog(a *point, v float64) *point {
	b := it.arena.alloc()
	h := v * it.eps
	for i := range b.p {
		b.p[i] = a.p[i] + 0.5*h*a.grad[i]
		b.q[i] = a.q[i] + h*it.invMetric[i]*b.p[i]
	}

	lp, ok := it.target.LogDensity(b.q, b.grad)
	if !ok {
		b.lp = math.Inf(-1)
		it.numerical = true

		return b
	}
	b.lp = lp
	for i := range b.p {
		b.p[i] += 0.5 * h * b.grad[i]
	}

	return b
}

func (it *integrator) joint(pt *point) float64 {
	j := pt.lp - it.kinetic(pt.p)
	if math.IsNaN(j) {
		return math.Inf(-1)
	}

	return j
}

// noUTurn reports whether the trajectory between minus and plus is still
// expanding in the metric M⁻¹.
func (it *integrator) noUTurn(minus, plus *point) bool {
	var dm, dp float64
	for i := range minus.q {
		dq := plus.q[i] - minus.q[i]
		dm += dq * it.invMetric[i] * minus.p[i]
		dp += dq * it.invMetric[i] * plus.p[i]
	}

	return dm >= 0 && dp >= 0
}

// transition performs one NUTS iteration from cur with step size eps and
// overwrites cur with the selected state.
func (it *integrator) transition(cur *point, eps float64) transition {
	it.eps = eps
	it.alphaSum, it.nAlpha, it.leapfrogs = 0, 0, 0
	it.divergent, it.numerical = false, false

	s := it.start(cur)
	it.joint0 = it.joint(s)
	// slice variable u ~ Uniform(0, exp(joint0)), in log space
	it.logU = it.joint0 - it.rng.ExpFloat64()

	minus, plus, proposal := s, s, s
	n := 1
	depth := 0
	for depth < it.maxDepth {
		var t subtree
		if it.rng.IntN(2) == 0 {
			t = it.buildTree(minus, -1, depth)
			minus = t.minus
		} else {
			t = it.buildTree(plus, 1, depth)
			plus = t.plus
		}
		depth++

		if !t.ok {
			break
		}
		if t.n > 0 && it.rng.Float64()*float64(n) < float64(t.n) {
			proposal = t.proposal
		}
		n += t.n
		if !it.noUTurn(minus, plus) {
			break
		}
	}

	tr := transition{
		depth:     depth,
		leapfrogs: it.leapfrogs,
		divergent: it.divergent,
		numerical: it.numerical,
		moved:     proposal != s,
		stepSize:  eps,
	}
	if it.nAlpha > 0 {
		tr.acceptStat = it.alphaSum / float64(it.nAlpha)
	}
	if tr.moved {
		copy(cur.q, proposal.q)
		copy(cur.grad, proposal.grad)
		cur.lp = proposal.lp
	}

	return tr
}

func (it *integrator) buildTree(from *point, v float64, depth int) subtree {
	if depth == 0 {
		pt := it.leapfrog(from, v)
		it.leapfrogs++
		joint := it.joint(pt)

		n := 0
		if it.logU <= joint {
			n = 1
		}
		ok := it.logU < maxDeltaH+joint
		if !ok {
			it.divergent = true
		}
		it.alphaSum += math.Min(1, math.Exp(joint-it.joint0))
		it.nAlpha++

		return subtree{minus: pt, plus: pt, proposal: pt, n: n, ok: ok}
	}

	t := it.buildTree(from, v, depth-1)
	if !t.ok {
		return t
	}

	var outer subtree
	if v < 0 {
		outer = it.buildTree(t.minus, v, depth-1)
		t.minus = outer.minus
	} else {
		outer = it.buildTree(t.plus, v, depth-1)
		t.plus = outer.plus
	}

	if outer.n > 0 && it.rng.Float64()*float64(t.n+outer.n) < float64(outer.n) {
		t.proposal = outer.proposal
	}
	t.n += outer.n
	t.ok = outer.ok && it.noUTurn(t.minus, t.plus)

	return t
}

// findStepSize doubles or halves eps until the acceptance probability of a
// single leapfrog step crosses 1/2.
func (it *integrator) findStepSize(cur *point, eps float64) float64 {
	it.numerical = false
	s := it.start(cur)
	joint0 := it.joint(s)

	logRatio := func() float64 {
		it.arena.next = 1
		it.eps = eps
		return it.joint(it.leapfrog(s, 1)) - joint0
	}

	half := math.Log(0.5)
	r := logRatio()
	dir := 1.0
	if !(r > half) {
		dir = -1
	}

	for range 100 {
		if dir > 0 && !(r > half) || dir < 0 && !(r < half) {
			break
		}
		eps *= math.Pow(2, dir)
		if eps < 1e-12 || eps > 1e7 {
			break
		}
		r = logRatio()
	}

	return eps
}
