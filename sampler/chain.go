package sampler

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/internal/hash"
	"github.com/arloliu/hierfit/posterior"
)

// streamTag separates chain streams from other consumers of the seed.
const streamTag = 0x6e757473 // "nuts"

// chainResult is the output of one chain.
type chainResult struct {
	chain         int
	draws         []posterior.Draw
	stepSize      float64
	divergences   int
	maxDepthHits  int
	numericalRuns int
	err           error
}

// chainRNG returns the random stream of a chain. It depends only on the seed
// and the chain index.
func chainRNG(seed uint64, chain int) *rand.Rand {
	s := seed + uint64(chain)
	return rand.New(rand.NewPCG(hash.Mix(s), hash.Mix(s, streamTag)))
}

type chainRunner struct {
	pr     *problem
	init   *initializer
	cfg    *Config
	logger *zap.Logger
}

// run samples one chain. Cancellation is checked before every iteration and
// returns ctx.Err() unwrapped; sampler failures return *errs.ChainError.
func (cr *chainRunner) run(ctx context.Context, chain int) chainResult {
	c := cr.pr.model.Control()
	res := chainResult{chain: chain}
	log := cr.logger.With(zap.Int("chain", chain))

	rng := chainRNG(c.Seed, chain)
	d := cr.pr.newDensity()
	it := newIntegrator(d, rng, c.MaxTreeDepth)
	dim := d.Dim()

	cur := newPoint(dim)
	if !cr.init.initialize(d, rng, cur) {
		res.err = &errs.ChainError{
			Chain: chain,
			Err:   fmt.Errorf("%w: no finite starting point in %d attempts", errs.ErrSamplerNumerical, maxInitAttempts),
		}
		return res
	}

	eps := it.findStepSize(cur, 1)
	adapter := newStepAdapter(c.TargetAccept)
	adapter.restart(eps)
	windows := newWindowSchedule(c.Warmup)
	metric := newMetricEstimator(dim)

	log.Debug("chain started", zap.Float64("step_size", eps), zap.Float64("log_density", cur.lp))

	res.draws = make([]posterior.Draw, 0, c.Draws())
	for i := range c.Iterations {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		tr, retries := cr.step(it, cur, eps, c.MaxNumericalRetries)
		res.numericalRuns += retries
		if tr.numerical && !tr.moved {
			res.err = &errs.ChainError{
				Chain:     chain,
				Iteration: i,
				Err: fmt.Errorf("%w: non-finite density after %d step size reductions",
					errs.ErrSamplerNumerical, retries),
			}
			log.Warn("chain aborted", zap.Int("iteration", i), zap.Error(res.err))

			return res
		}

		warmup := i < c.Warmup
		if warmup {
			eps = adapter.update(tr.acceptStat)
			if windows.inWindow(i) {
				metric.add(cur.q)
			}
			if windows.isEnd(i) {
				metric.estimate(it.invMetric)
				eps = it.findStepSize(cur, eps)
				adapter.restart(eps)
			}
			if i == c.Warmup-1 {
				eps = adapter.final()
				log.Debug("warmup finished", zap.Float64("step_size", eps))
			}
		} else {
			values := make([]float64, dim)
			cr.pr.constrain(cur.q, values)
			res.draws = append(res.draws, posterior.Draw{
				Chain:      chain,
				Iteration:  i - c.Warmup,
				Values:     values,
				Divergent:  tr.divergent,
				TreeDepth:  tr.depth,
				Leapfrogs:  tr.leapfrogs,
				StepSize:   tr.stepSize,
				AcceptStat: tr.acceptStat,
				LogDensity: cur.lp,
			})
			if tr.divergent {
				res.divergences++
			}
			if tr.depth >= c.MaxTreeDepth {
				res.maxDepthHits++
			}
		}

		if cr.cfg.OnProgress != nil {
			cr.cfg.OnProgress(Progress{Chain: chain, Iteration: i, Warmup: warmup, StepSize: tr.stepSize})
		}
	}
	res.stepSize = eps

	log.Debug("chain finished",
		zap.Int("draws", len(res.draws)),
		zap.Int("divergences", res.divergences),
		zap.Int("max_depth_hits", res.maxDepthHits),
		zap.Float64("step_size", eps))

	return res
}

// step runs a transition and, while it hits a non-finite density without
// moving, retries with a halved step size. It returns the last transition and
// the number of retries.
func (cr *chainRunner) step(it *integrator, cur *point, eps float64, maxRetries int) (transition, int) {
	tr := it.transition(cur, eps)
	retries := 0
	for tr.numerical && !tr.moved && retries < maxRetries {
		eps /= 2
		retries++
		tr = it.transition(cur, eps)
	}

	return tr, retries
}
