package model

import "fmt"

// Layout is the parameter-ownership map of a model fitted to a set of groups.
//
// It assigns every sampled quantity a column: the population component of each
// parameter, the group standard deviation sd_<p> of each grouped parameter, the
// group-level effect <p>[<group>] of each grouped parameter in each group, and
// sigma. Columns are ordered population, sd, group effects, sigma.
//
// The same indices address the sampler's unconstrained vector, where sd and sigma
// columns hold logs and group columns hold standardized effects.
type Layout struct {
	model      *Model
	groups     []string
	groupIndex map[string]int
	population []int
	sd         []int
	group      [][]int
	sigma      int
	names      []string
	columns    map[string]int
	positive   []bool
}

// NewLayout builds the layout of m for the given groups.
func NewLayout(m *Model, groups []string) *Layout {
	l := &Layout{
		model:      m,
		groups:     append([]string(nil), groups...),
		groupIndex: make(map[string]int, len(groups)),
		population: make([]int, m.NumParams()),
		sd:         make([]int, m.NumParams()),
		group:      make([][]int, m.NumParams()),
	}
	for g, name := range groups {
		l.groupIndex[name] = g
	}

	add := func(name string, positive bool) int {
		l.names = append(l.names, name)
		l.positive = append(l.positive, positive)
		return len(l.names) - 1
	}

	for p, param := range m.params {
		l.population[p] = add(param.Name, false)
	}
	for p, param := range m.params {
		l.sd[p] = -1
		if param.Group {
			l.sd[p] = add(SDTarget(param.Name), true)
		}
	}
	for p, param := range m.params {
		if !param.Group {
			continue
		}
		l.group[p] = make([]int, len(groups))
		for g, gname := range groups {
			l.group[p][g] = add(GroupColumn(param.Name, gname), false)
		}
	}
	l.sigma = add(SigmaTarget, true)

	l.columns = make(map[string]int, len(l.names))
	for i, n := range l.names {
		l.columns[n] = i
	}

	return l
}

// GroupColumn returns the column name of the group-level effect of param in group.
func GroupColumn(param, group string) string {
	return fmt.Sprintf("%s[%s]", param, group)
}

// Model returns the model the layout was built for.
func (l *Layout) Model() *Model { return l.model }

// Dim returns the number of columns.
func (l *Layout) Dim() int { return len(l.names) }

// Names returns the column names. The slice must not be modified.
func (l *Layout) Names() []string { return l.names }

// Name returns the name of column i.
func (l *Layout) Name(i int) string { return l.names[i] }

// Column returns the index of a named column.
func (l *Layout) Column(name string) (int, bool) {
	i, ok := l.columns[name]
	return i, ok
}

// Positive reports whether column i is constrained to (0, inf).
func (l *Layout) Positive(i int) bool { return l.positive[i] }

// Groups returns the group names in layout order. The slice must not be modified.
func (l *Layout) Groups() []string { return l.groups }

// GroupIndex returns the position of a group, or false if the group was not part
// of the fit.
func (l *Layout) GroupIndex(name string) (int, bool) {
	g, ok := l.groupIndex[name]
	return g, ok
}

// Population returns the column of parameter p's population component.
func (l *Layout) Population(p int) int { return l.population[p] }

// SD returns the column of parameter p's group standard deviation, or -1.
func (l *Layout) SD(p int) int { return l.sd[p] }

// Group returns the column of parameter p's effect in group g, or -1 when p has
// no group-level effect.
func (l *Layout) Group(p, g int) int {
	if l.group[p] == nil {
		return -1
	}

	return l.group[p][g]
}

// Sigma returns the column of the residual standard deviation.
func (l *Layout) Sigma() int { return l.sigma }

// ParamValues assembles the mean-function parameter vector for group g from a
// row of constrained column values. A negative g selects population values only.
func (l *Layout) ParamValues(values []float64, g int, dst []float64) {
	for p := range l.population {
		v := values[l.population[p]]
		if g >= 0 && l.group[p] != nil {
			v += values[l.group[p][g]]
		}
		dst[p] = v
	}
}
