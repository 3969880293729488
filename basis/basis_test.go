package basis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/gyre/group"
)

func mustSpace(t *testing.T, order int) *group.Space {
	t.Helper()
	sp, err := group.Rot2D(order)
	require.NoError(t, err)
	return sp
}

func TestBasisDimensions(t *testing.T) {
	cases := []struct {
		name     string
		order    int
		in, out  group.Kind
		size     int
		expected int
	}{
		{"trivial pair C8 5x5", 8, group.Trivial, group.Trivial, 5, 6},
		{"degenerate group 5x5", 1, group.Trivial, group.Trivial, 5, 25},
		{"regular pair C4 3x3", 4, group.Regular, group.Regular, 3, 36},
		{"trivial to regular C4 3x3", 4, group.Trivial, group.Regular, 3, 9},
		{"regular to trivial C4 3x3", 4, group.Regular, group.Trivial, 3, 9},
		{"trivial pair C4 1x1", 4, group.Trivial, group.Trivial, 1, 1},
		{"regular pair C4 1x1", 4, group.Regular, group.Regular, 1, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sp := mustSpace(t, tc.order)
			set, err := Build(reprOf(sp, tc.in), reprOf(sp, tc.out), tc.size)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, set.Dim())
		})
	}
}

func reprOf(sp *group.Space, k group.Kind) *group.Representation {
	if k == group.Regular {
		return sp.RegularRepr()
	}
	return sp.TrivialRepr()
}

// Every basis must be linearly independent: as a matrix of flattened
// elements its rank equals its dimension.
func TestBasisElementsIndependent(t *testing.T) {
	cases := []struct {
		order   int
		in, out group.Kind
		size    int
	}{
		{8, group.Trivial, group.Trivial, 5},
		{8, group.Trivial, group.Regular, 5},
		{8, group.Regular, group.Trivial, 5},
		{8, group.Regular, group.Regular, 5},
		{4, group.Regular, group.Regular, 3},
		{1, group.Trivial, group.Trivial, 5},
	}
	for _, tc := range cases {
		sp := mustSpace(t, tc.order)
		set, err := Build(reprOf(sp, tc.in), reprOf(sp, tc.out), tc.size)
		require.NoError(t, err)

		var svd mat.SVD
		require.True(t, svd.Factorize(set.Matrix(), mat.SVDNone))
		values := svd.Values(nil)
		rank := 0
		for _, s := range values {
			if s > 1e-6 {
				rank++
			}
		}
		assert.Equal(t, set.Dim(), rank,
			"C%d %v->%v %dx%d: rank %d of %d elements", tc.order, tc.in, tc.out, tc.size, rank, set.Dim())
	}
}

func TestBasisElementsUnitNorm(t *testing.T) {
	sp := mustSpace(t, 8)
	set, err := Build(sp.RegularRepr(), sp.RegularRepr(), 5)
	require.NoError(t, err)

	for i, el := range set.Elements() {
		assert.InDelta(t, 1.0, floats.Norm(el.Data, 2), 1e-9, "element %d", i)
	}
}

func TestBasisElementOrder(t *testing.T) {
	sp := mustSpace(t, 4)
	set, err := Build(sp.RegularRepr(), sp.RegularRepr(), 3)
	require.NoError(t, err)

	els := set.Elements()
	for i := 1; i < len(els); i++ {
		prev, cur := els[i-1], els[i]
		assert.LessOrEqual(t, prev.RadiusSq, cur.RadiusSq, "element %d", i)
		if prev.RadiusSq == cur.RadiusSq {
			assert.LessOrEqual(t, prev.Freq, cur.Freq, "element %d", i)
			if prev.Freq == cur.Freq && prev.Sin == cur.Sin {
				assert.Less(t, prev.Class, cur.Class, "element %d", i)
			}
		}
	}
}

// Structurally identical requests share one element payload, even across
// distinct Space instances.
func TestBasisCacheSharesData(t *testing.T) {
	a := mustSpace(t, 4)
	b := mustSpace(t, 4)

	s1, err := Build(a.TrivialRepr(), a.RegularRepr(), 3)
	require.NoError(t, err)
	s2, err := Build(b.TrivialRepr(), b.RegularRepr(), 3)
	require.NoError(t, err)

	assert.Same(t, &s1.Elements()[0].Data[0], &s2.Elements()[0].Data[0])
	assert.Same(t, s1.shared, s2.shared)

	// Each Set still reports the representations it was requested with.
	assert.Same(t, a.RegularRepr(), s1.Out())
	assert.Same(t, b.RegularRepr(), s2.Out())
}

func TestConstructIsDeterministic(t *testing.T) {
	sp := mustSpace(t, 8)
	d1 := construct(sp.TrivialRepr(), sp.RegularRepr(), 5)
	d2 := construct(sp.TrivialRepr(), sp.RegularRepr(), 5)

	require.Equal(t, len(d1.elements), len(d2.elements))
	for i := range d1.elements {
		assert.Equal(t, d1.elements[i].Data, d2.elements[i].Data, "element %d", i)
		assert.Equal(t, d1.elements[i].RadiusSq, d2.elements[i].RadiusSq)
		assert.Equal(t, d1.elements[i].Freq, d2.elements[i].Freq)
	}
}

func TestBuildErrors(t *testing.T) {
	sp := mustSpace(t, 4)

	_, err := Build(sp.TrivialRepr(), sp.RegularRepr(), 4)
	assert.ErrorIs(t, err, ErrEvenKernelSize)

	_, err = Build(sp.TrivialRepr(), sp.RegularRepr(), 0)
	assert.ErrorIs(t, err, ErrEvenKernelSize)

	other := mustSpace(t, 4)
	_, err = Build(sp.TrivialRepr(), other.RegularRepr(), 3)
	assert.ErrorIs(t, err, group.ErrSpaceMismatch)
}

// Rotating the sampling grid must agree with acting on the sub-channels:
// Sample(g)[i][j] == Sample(0)[i-g][j-g] with indices shifted only on
// regular axes. This is the kernel constraint itself, checked per element,
// and it holds for every group order because the basis is analytic.
func TestSampleSatisfiesKernelConstraint(t *testing.T) {
	kinds := []struct {
		name    string
		in, out group.Kind
	}{
		{"trivial to trivial", group.Trivial, group.Trivial},
		{"trivial to regular", group.Trivial, group.Regular},
		{"regular to trivial", group.Regular, group.Trivial},
		{"regular to regular", group.Regular, group.Regular},
	}
	for _, tc := range kinds {
		t.Run(tc.name, func(t *testing.T) {
			sp := mustSpace(t, 8)
			set, err := Build(reprOf(sp, tc.in), reprOf(sp, tc.out), 5)
			require.NoError(t, err)

			base := set.Sample(0)
			order := sp.Order()
			dout := set.Out().Dim()
			din := set.In().Dim()
			k2 := 5 * 5

			for _, g := range sp.Elements() {
				rotated := set.Sample(g)
				for e := range rotated {
					for i := 0; i < dout; i++ {
						si := i
						if tc.out == group.Regular {
							si = ((i - int(g)) % order + order) % order
						}
						for j := 0; j < din; j++ {
							sj := j
							if tc.in == group.Regular {
								sj = ((j - int(g)) % order + order) % order
							}
							for pos := 0; pos < k2; pos++ {
								got := rotated[e][(i*din+j)*k2+pos]
								want := base[e][(si*din+sj)*k2+pos]
								assert.InDelta(t, want, got, 1e-9,
									"g=%d element %d entry (%d,%d,%d)", g, e, i, j, pos)
							}
						}
					}
				}
			}
		})
	}
}

func TestSampleIdentityMatchesElements(t *testing.T) {
	sp := mustSpace(t, 8)
	set, err := Build(sp.TrivialRepr(), sp.RegularRepr(), 5)
	require.NoError(t, err)

	base := set.Sample(0)
	for i, el := range set.Elements() {
		require.Equal(t, len(el.Data), len(base[i]))
		for j := range el.Data {
			assert.InDelta(t, el.Data[j], base[i][j], 1e-12)
		}
	}
}
