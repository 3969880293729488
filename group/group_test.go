package group

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRot2DOrderValidation(t *testing.T) {
	for _, order := range []int{0, -1, -8} {
		_, err := Rot2D(order)
		assert.ErrorIs(t, err, ErrInvalidOrder, "order %d", order)
	}
	for _, order := range []int{1, 2, 4, 8, 12} {
		sp, err := Rot2D(order)
		require.NoError(t, err)
		assert.Equal(t, order, sp.Order())
		assert.Len(t, sp.Elements(), order)
	}
}

func TestComposeInverse(t *testing.T) {
	sp, err := Rot2D(8)
	require.NoError(t, err)

	for _, a := range sp.Elements() {
		for _, b := range sp.Elements() {
			got := sp.Compose(a, b)
			want := Element((int(a) + int(b)) % 8)
			assert.Equal(t, want, got)
		}
		assert.Equal(t, Element(0), sp.Compose(a, sp.Inverse(a)))
	}

	// Negative and out-of-range indices reduce modulo the order.
	assert.Equal(t, Element(5), sp.Compose(Element(-3), Element(0)))
	assert.Equal(t, Element(1), sp.Compose(Element(9), Element(0)))
}

func TestAngle(t *testing.T) {
	sp, err := Rot2D(4)
	require.NoError(t, err)

	want := []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}
	for g, w := range want {
		assert.InDelta(t, w, sp.Angle(Element(g)), 1e-12)
	}
}

func TestRepresentationDims(t *testing.T) {
	sp, err := Rot2D(6)
	require.NoError(t, err)

	assert.Equal(t, 1, sp.TrivialRepr().Dim())
	assert.Equal(t, 6, sp.RegularRepr().Dim())
	assert.Same(t, sp.TrivialRepr(), sp.TrivialRepr())
	assert.Same(t, sp.RegularRepr(), sp.RegularRepr())
}

func TestRegularMatrixIsHomomorphism(t *testing.T) {
	sp, err := Rot2D(5)
	require.NoError(t, err)
	reg := sp.RegularRepr()

	for _, a := range sp.Elements() {
		for _, b := range sp.Elements() {
			var prod mat.Dense
			prod.Mul(reg.Matrix(a), reg.Matrix(b))
			want := reg.Matrix(sp.Compose(a, b))
			assert.True(t, mat.EqualApprox(&prod, want, 1e-12),
				"rho(%d)*rho(%d) != rho(%d)", a, b, sp.Compose(a, b))
		}
	}
}

func TestTransformMatchesMatrix(t *testing.T) {
	sp, err := Rot2D(4)
	require.NoError(t, err)
	reg := sp.RegularRepr()

	src := []float32{1, 2, 3, 4}
	for _, g := range sp.Elements() {
		dst := make([]float32, 4)
		require.NoError(t, reg.Transform(g, dst, src))

		m := reg.Matrix(g)
		for i := 0; i < 4; i++ {
			var want float64
			for j := 0; j < 4; j++ {
				want += m.At(i, j) * float64(src[j])
			}
			assert.InDelta(t, want, float64(dst[i]), 1e-6, "g=%d i=%d", g, i)
		}
	}

	// One rotation step shifts every value up by one slot.
	dst := make([]float32, 4)
	require.NoError(t, reg.Transform(1, dst, src))
	assert.Equal(t, []float32{4, 1, 2, 3}, dst)

	err = reg.Transform(1, make([]float32, 3), src)
	assert.ErrorIs(t, err, ErrFiberSize)
}

func TestFieldTypeLayout(t *testing.T) {
	sp, err := Rot2D(8)
	require.NoError(t, err)

	ft, err := NewFieldType(sp, []*Representation{
		sp.TrivialRepr(), sp.RegularRepr(), sp.TrivialRepr(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1+8+1, ft.Size())
	blocks := ft.Blocks()
	require.Len(t, blocks, 3)
	assert.Equal(t, 0, blocks[0].Offset)
	assert.Equal(t, 1, blocks[1].Offset)
	assert.Equal(t, 9, blocks[2].Offset)
	assert.Equal(t, "C8[trivial,regular,trivial]", ft.String())
}

func TestFieldTypeHelpers(t *testing.T) {
	sp, err := Rot2D(8)
	require.NoError(t, err)

	in, err := Trivials(sp, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, in.Size())
	assert.Equal(t, "C8[3*trivial]", in.String())

	out, err := Regulars(sp, 10)
	require.NoError(t, err)
	assert.Equal(t, 80, out.Size())
	assert.Equal(t, "C8[10*regular]", out.String())
}

func TestFieldTypeEqual(t *testing.T) {
	sp, err := Rot2D(4)
	require.NoError(t, err)

	a, err := Trivials(sp, 2)
	require.NoError(t, err)
	b, err := NewFieldType(sp, []*Representation{sp.TrivialRepr(), sp.TrivialRepr()})
	require.NoError(t, err)
	c, err := Regulars(sp, 2)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))

	// Same structure over a distinct Space instance is a different type.
	sp2, err := Rot2D(4)
	require.NoError(t, err)
	d, err := Trivials(sp2, 2)
	require.NoError(t, err)
	assert.False(t, a.Equal(d))
}

func TestFieldTypeErrors(t *testing.T) {
	sp, err := Rot2D(4)
	require.NoError(t, err)
	other, err := Rot2D(4)
	require.NoError(t, err)

	_, err = NewFieldType(sp, nil)
	assert.ErrorIs(t, err, ErrEmptyFieldType)

	_, err = NewFieldType(sp, []*Representation{other.RegularRepr()})
	assert.ErrorIs(t, err, ErrSpaceMismatch)
}
