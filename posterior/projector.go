package posterior

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/internal/hash"
	"github.com/arloliu/hierfit/internal/options"
	"github.com/arloliu/hierfit/internal/pool"
	"github.com/arloliu/hierfit/observation"
)

// Mode selects what Project computes.
type Mode uint8

const (
	// ModeFitted projects the mean function value.
	ModeFitted Mode = iota
	// ModePredicted projects the mean plus one residual draw.
	ModePredicted
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeFitted:
		return "fitted"
	case ModePredicted:
		return "predicted"
	default:
		return "unknown"
	}
}

// ParseMode parses "fitted" or "predicted".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "fitted":
		return ModeFitted, nil
	case "predicted":
		return ModePredicted, nil
	default:
		return 0, fmt.Errorf("unknown projection mode %q", s)
	}
}

// ProjectedValue is one draw's value for one observation row.
type ProjectedValue struct {
	Row    int
	Group  string
	DrawID int
	Value  float64
	// PopulationOnly is set when the row's group was not part of the fit, so
	// no group-level effects were added.
	PopulationOnly bool
}

// Projector evaluates a Table against observation rows. It is safe for
// concurrent use.
type Projector struct {
	table *Table
}

// NewProjector creates a Projector over t.
func NewProjector(t *Table) *Projector {
	return &Projector{table: t}
}

// Table returns the projected table.
func (p *Projector) Table() *Table { return p.table }

// FittedValue evaluates the mean function for obs under draw drawID.
//
// The parameter vector is the draw's population values plus, when obs.Group
// was part of the fit, that group's effects. Unseen groups fall back to the
// population values and the result is flagged PopulationOnly. FittedValue is
// deterministic.
func (p *Projector) FittedValue(drawID int, obs observation.Observation) (ProjectedValue, error) {
	if drawID < 0 || drawID >= p.table.Len() {
		return ProjectedValue{}, fmt.Errorf("draw %d out of range [0, %d)", drawID, p.table.Len())
	}
	if math.IsNaN(obs.Predictor) || math.IsInf(obs.Predictor, 0) || obs.Predictor <= 0 {
		return ProjectedValue{}, fmt.Errorf("%w: row %d: predictor must be finite and > 0, got %g",
			errs.ErrInvalidObservation, obs.Row, obs.Predictor)
	}

	layout := p.table.layout
	g, seen := layout.GroupIndex(obs.Group)
	if !seen {
		g = -1
	}

	theta, release := pool.GetFloat64Slice(p.table.model.NumParams())
	defer release()

	values := p.table.draws[drawID].Values
	layout.ParamValues(values, g, theta)

	return ProjectedValue{
		Row:            obs.Row,
		Group:          obs.Group,
		DrawID:         drawID,
		Value:          p.table.model.Expression().Eval(obs.Predictor, theta),
		PopulationOnly: !seen,
	}, nil
}

// PredictedValue is FittedValue plus one draw from Normal(0, sigma) of the
// draw, taken from rng.
func (p *Projector) PredictedValue(drawID int, obs observation.Observation, rng *rand.Rand) (ProjectedValue, error) {
	pv, err := p.FittedValue(drawID, obs)
	if err != nil {
		return ProjectedValue{}, err
	}

	sigma := p.table.draws[drawID].Values[p.table.layout.Sigma()]
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
	pv.Value += noise.Rand()

	return pv, nil
}

// NoiseSource returns the generator PredictedValue uses inside Project for a
// (seed, draw, row) triple.
func NoiseSource(seed uint64, drawID, row int) *rand.Rand {
	return rand.New(rand.NewPCG(hash.Mix(seed, uint64(drawID), uint64(row)), seed))
}

// SelectDraws returns the sorted draw IDs Project uses for maxDraws and seed.
// maxDraws = 0, or maxDraws >= Len, selects every draw.
func (p *Projector) SelectDraws(maxDraws int, seed uint64) []int {
	n := p.table.Len()
	if maxDraws <= 0 || maxDraws >= n {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = i
		}

		return ids
	}

	rng := rand.New(rand.NewPCG(seed, hash.Mix(seed)))
	ids := rng.Perm(n)[:maxDraws]
	slices.Sort(ids)

	return ids
}

// Project computes fitted or predicted values of every row under the selected
// draws.
//
// Output is ordered by input row, then by draw ID. Predicted values use
// NoiseSource(seed, drawID, row), so results do not depend on the subsample
// or on row order.
//
// Parameters:
//   - rows: Observation rows; groups may be unseen at fit time
//   - mode: ModeFitted or ModePredicted
//   - opts: WithMaxDraws, WithSeed
//
// Returns:
//   - []ProjectedValue: len(rows) * selected draws values
//   - error: Invalid options, mode or predictor values
func (p *Projector) Project(rows []observation.Observation, mode Mode, opts ...ProjectOption) ([]ProjectedValue, error) {
	var cfg ProjectConfig
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if mode != ModeFitted && mode != ModePredicted {
		return nil, fmt.Errorf("unknown projection mode %d", mode)
	}

	ids := p.SelectDraws(cfg.MaxDraws, cfg.Seed)
	out := make([]ProjectedValue, 0, len(rows)*len(ids))

	for _, obs := range rows {
		for _, id := range ids {
			var (
				pv  ProjectedValue
				err error
			)
			if mode == ModeFitted {
				pv, err = p.FittedValue(id, obs)
			} else {
				pv, err = p.PredictedValue(id, obs, NoiseSource(cfg.Seed, id, obs.Row))
			}
			if err != nil {
				return nil, err
			}
			out = append(out, pv)
		}
	}

	return out, nil
}
