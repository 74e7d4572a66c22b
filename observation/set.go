package observation

import (
	"fmt"
	"iter"
	"slices"

	"github.com/arloliu/hierfit/errs"
)

// Set is an immutable, validated collection of observations indexed by group.
//
// Set uses value semantics and is safe for concurrent reads. Accessors that
// return slices return copies unless documented otherwise.
type Set struct {
	obs        []Observation
	groups     []string
	groupIndex map[string]int
	groupOf    []int
	members    [][]int
	distinct   []int
	rows       map[int]int
}

// NewSet validates obs and builds a Set.
//
// The input slice is copied. Observations whose Row is zero get Row = position+1,
// so a freshly loaded table gets the 1-based row numbers of its source order.
//
// Parameters:
//   - obs: The observations, in source order
//
// Returns:
//   - Set: The validated set
//   - error: errs.ErrInvalidObservation for a bad field or duplicate row,
//     errs.ErrInsufficientData when obs is empty
func NewSet(obs []Observation) (Set, error) {
	if len(obs) == 0 {
		return Set{}, &errs.InsufficientDataError{Reason: "no observations"}
	}

	s := Set{
		obs:        make([]Observation, len(obs)),
		groupIndex: make(map[string]int),
		groupOf:    make([]int, len(obs)),
		rows:       make(map[int]int, len(obs)),
	}
	copy(s.obs, obs)

	for i := range s.obs {
		o := &s.obs[i]
		if o.Row == 0 {
			o.Row = i + 1
		}
		if err := o.Validate(); err != nil {
			return Set{}, err
		}
		if prev, dup := s.rows[o.Row]; dup {
			return Set{}, fmt.Errorf("%w: row %d appears at positions %d and %d",
				errs.ErrInvalidObservation, o.Row, prev+1, i+1)
		}
		s.rows[o.Row] = i

		g, ok := s.groupIndex[o.Group]
		if !ok {
			g = len(s.groups)
			s.groupIndex[o.Group] = g
			s.groups = append(s.groups, o.Group)
			s.members = append(s.members, nil)
		}
		s.groupOf[i] = g
		s.members[g] = append(s.members[g], i)
	}

	s.distinct = make([]int, len(s.groups))
	for g, idx := range s.members {
		seen := make(map[float64]struct{}, len(idx))
		for _, i := range idx {
			seen[s.obs[i].Response] = struct{}{}
		}
		s.distinct[g] = len(seen)
	}

	return s, nil
}

// Len returns the number of observations.
func (s Set) Len() int { return len(s.obs) }

// At returns observation i in set order.
func (s Set) At(i int) Observation { return s.obs[i] }

// All iterates observations in set order with their positions.
func (s Set) All() iter.Seq2[int, Observation] {
	return func(yield func(int, Observation) bool) {
		for i, o := range s.obs {
			if !yield(i, o) {
				return
			}
		}
	}
}

// Observations returns a copy of the observations in set order.
func (s Set) Observations() []Observation { return slices.Clone(s.obs) }

// ByRow looks up an observation by its row identifier.
func (s Set) ByRow(row int) (Observation, bool) {
	i, ok := s.rows[row]
	if !ok {
		return Observation{}, false
	}

	return s.obs[i], true
}

// NumGroups returns the number of groups.
func (s Set) NumGroups() int { return len(s.groups) }

// Groups returns the group labels in first-appearance order.
func (s Set) Groups() []string { return slices.Clone(s.groups) }

// GroupIndex returns the position of a group label.
func (s Set) GroupIndex(name string) (int, bool) {
	g, ok := s.groupIndex[name]
	return g, ok
}

// GroupOf returns the group position of observation i.
func (s Set) GroupOf(i int) int { return s.groupOf[i] }

// GroupSize returns the number of observations in group g.
func (s Set) GroupSize(g int) int { return len(s.members[g]) }

// DistinctResponses returns the number of distinct response values in group g.
func (s Set) DistinctResponses(g int) int { return s.distinct[g] }

// Group iterates the observations of group g in set order.
func (s Set) Group(g int) iter.Seq[Observation] {
	return func(yield func(Observation) bool) {
		for _, i := range s.members[g] {
			if !yield(s.obs[i]) {
				return
			}
		}
	}
}

// Columns returns copies of the predictor and response columns in set order.
func (s Set) Columns() (predictors, responses []float64) {
	predictors = make([]float64, len(s.obs))
	responses = make([]float64, len(s.obs))
	for i, o := range s.obs {
		predictors[i] = o.Predictor
		responses[i] = o.Response
	}

	return predictors, responses
}
