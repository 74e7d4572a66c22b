package observation

// FilterMinDistinct returns the observations whose group has at least minDistinct
// distinct response values, preserving order. Rows are not renumbered, so rows
// left at zero keep positions relative to the filtered slice once passed to
// NewSet; set Row explicitly to keep source row numbers across filtering.
func FilterMinDistinct(obs []Observation, minDistinct int) []Observation {
	distinct := make(map[string]map[float64]struct{})
	for _, o := range obs {
		seen, ok := distinct[o.Group]
		if !ok {
			seen = make(map[float64]struct{})
			distinct[o.Group] = seen
		}
		seen[o.Response] = struct{}{}
	}

	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if len(distinct[o.Group]) >= minDistinct {
			out = append(out, o)
		}
	}

	return out
}

// NumberRows returns a copy of obs with every zero Row set to position+1.
// Call it before filtering to keep source row numbers.
func NumberRows(obs []Observation) []Observation {
	out := make([]Observation, len(obs))
	copy(out, obs)
	for i := range out {
		if out[i].Row == 0 {
			out[i].Row = i + 1
		}
	}

	return out
}
