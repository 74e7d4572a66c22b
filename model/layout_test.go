package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	s := treeSpec()
	s.Parameters[1].Group = false
	m, err := s.Compile()
	require.NoError(t, err)

	l := NewLayout(m, []string{"north", "south", "west"})
	require.Equal(t, []string{"a", "b", "sd_a", "a[north]", "a[south]", "a[west]", "sigma"}, l.Names())
	require.Equal(t, 7, l.Dim())
	require.Same(t, m, l.Model())

	require.Equal(t, 0, l.Population(0))
	require.Equal(t, 1, l.Population(1))
	require.Equal(t, 2, l.SD(0))
	require.Equal(t, -1, l.SD(1))
	require.Equal(t, 4, l.Group(0, 1))
	require.Equal(t, -1, l.Group(1, 1))
	require.Equal(t, 6, l.Sigma())

	require.True(t, l.Positive(l.SD(0)))
	require.True(t, l.Positive(l.Sigma()))
	require.False(t, l.Positive(l.Group(0, 0)))

	i, ok := l.Column("a[west]")
	require.True(t, ok)
	require.Equal(t, 5, i)
	require.Equal(t, "a[west]", l.Name(i))
	_, ok = l.Column("b[west]")
	require.False(t, ok)

	g, ok := l.GroupIndex("south")
	require.True(t, ok)
	require.Equal(t, 1, g)
	_, ok = l.GroupIndex("east")
	require.False(t, ok)
	require.Equal(t, []string{"north", "south", "west"}, l.Groups())
}

func TestLayoutParamValues(t *testing.T) {
	m, err := treeSpec().Compile()
	require.NoError(t, err)

	l := NewLayout(m, []string{"g1", "g2"})
	// a b sd_a sd_b a[g1] a[g2] b[g1] b[g2] sigma
	values := []float64{3, -10, 0.2, 1, 0.1, -0.1, 0.5, -0.5, 5}
	require.Len(t, values, l.Dim())

	dst := make([]float64, 2)
	l.ParamValues(values, 0, dst)
	require.InDeltaSlice(t, []float64{3.1, -9.5}, dst, 1e-12)

	l.ParamValues(values, 1, dst)
	require.InDeltaSlice(t, []float64{2.9, -10.5}, dst, 1e-12)

	l.ParamValues(values, -1, dst)
	require.Equal(t, []float64{3, -10}, dst)
}
