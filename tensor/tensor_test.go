package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndStrides(t *testing.T) {
	tn := New[float32](2, 3, 4)
	assert.Equal(t, 24, tn.Size())
	assert.Equal(t, []int{12, 4, 1}, tn.Strides)
	for _, v := range tn.Data {
		assert.Zero(t, v)
	}
}

func TestFromSlice(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	tn, err := FromSlice(data, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, float32(6), tn.At(1, 2))

	// The slice is shared, not copied.
	data[0] = 42
	assert.Equal(t, float32(42), tn.At(0, 0))

	_, err = FromSlice(data, 2, 2)
	assert.ErrorIs(t, err, ErrShape)
}

func TestCloneIsIndependent(t *testing.T) {
	tn, err := FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	cp := tn.Clone()
	tn.Set(99, 0, 0)
	assert.Equal(t, float64(1), cp.At(0, 0))
}

func TestReshapeView(t *testing.T) {
	tn, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)

	v, err := tn.Reshape(3, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(4), v.At(1, 1))

	// Views share data with the original.
	v.Set(9, 0, 0)
	assert.Equal(t, float32(9), tn.At(0, 0))

	_, err = tn.Reshape(4, 2)
	assert.ErrorIs(t, err, ErrShape)
}

func TestSliceOuter(t *testing.T) {
	tn, err := FromSlice([]float32{0, 1, 2, 3, 4, 5, 6, 7}, 4, 2)
	require.NoError(t, err)

	v, err := tn.SliceOuter(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, v.Shape)
	assert.Equal(t, float32(2), v.At(0, 0))
	assert.Equal(t, float32(5), v.At(1, 1))

	v.Set(-1, 0, 1)
	assert.Equal(t, float32(-1), tn.At(1, 1))

	_, err = tn.SliceOuter(3, 5)
	assert.ErrorIs(t, err, ErrShape)
}

func TestAddAndScale(t *testing.T) {
	a, err := FromSlice([]float32{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	b, err := FromSlice([]float32{10, 20, 30, 40}, 2, 2)
	require.NoError(t, err)

	sum, err := Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33, 44}, sum.Data)

	sum.Scale(0.5)
	assert.Equal(t, []float32{5.5, 11, 16.5, 22}, sum.Data)

	c := New[float32](3)
	_, err = Add(a, c)
	assert.ErrorIs(t, err, ErrShape)
}

func TestMatMulKnownValues(t *testing.T) {
	a, err := FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	b, err := FromSlice([]float64{5, 6, 7, 8}, 2, 2)
	require.NoError(t, err)

	prod, err := MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{19, 22, 43, 50}, prod.Data)

	_, err = MatMul(a, New[float64](3, 2))
	assert.ErrorIs(t, err, ErrShape)
}

// Cross the tile boundary and check against a naive triple loop.
func TestMatMulMatchesNaive(t *testing.T) {
	const m, k, n = 70, 65, 67
	a := New[float32](m, k)
	b := New[float32](k, n)
	for i := range a.Data {
		a.Data[i] = float32(i%13) - 6
	}
	for i := range b.Data {
		b.Data[i] = float32(i%7) - 3
	}

	got, err := MatMul(a, b)
	require.NoError(t, err)

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var want float64
			for l := 0; l < k; l++ {
				want += float64(a.Data[i*k+l]) * float64(b.Data[l*n+j])
			}
			assert.InDelta(t, want, float64(got.Data[i*n+j]), 1e-3, "at (%d,%d)", i, j)
		}
	}
}

func TestCrossCorrelate2D(t *testing.T) {
	input, err := FromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 1, 3, 3)
	require.NoError(t, err)
	kernel, err := FromSlice([]float32{1, 0, 0, 1}, 1, 1, 2, 2)
	require.NoError(t, err)

	out, err := CrossCorrelate2D(input, kernel, nil, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, out.Shape)
	assert.Equal(t, []float32{6, 8, 12, 14}, out.Data)

	withBias, err := CrossCorrelate2D(input, kernel, []float32{0.5}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{6.5, 8.5, 12.5, 14.5}, withBias.Data)
}

func TestCrossCorrelate2DPadding(t *testing.T) {
	input, err := FromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 1, 3, 3)
	require.NoError(t, err)
	ones := New[float32](1, 1, 3, 3)
	for i := range ones.Data {
		ones.Data[i] = 1
	}

	out, err := CrossCorrelate2D(input, ones, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 3, 3}, out.Shape)
	assert.Equal(t, float32(45), out.At(0, 0, 1, 1))
	assert.Equal(t, float32(12), out.At(0, 0, 0, 0))
	assert.Equal(t, float32(39), out.At(0, 0, 2, 1))
}

func TestCrossCorrelate2DStride(t *testing.T) {
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i + 1)
	}
	input, err := FromSlice(data, 1, 1, 4, 4)
	require.NoError(t, err)
	ones, err := FromSlice([]float32{1, 1, 1, 1}, 1, 1, 2, 2)
	require.NoError(t, err)

	out, err := CrossCorrelate2D(input, ones, nil, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, out.Shape)
	assert.Equal(t, []float32{14, 22, 46, 54}, out.Data)
}

func TestCrossCorrelate2DErrors(t *testing.T) {
	input := New[float32](1, 2, 5, 5)
	kernel := New[float32](4, 3, 3, 3)

	_, err := CrossCorrelate2D(input, kernel, nil, 1, 0)
	assert.ErrorIs(t, err, ErrShape)

	big := New[float32](4, 2, 7, 7)
	_, err = CrossCorrelate2D(input, big, nil, 1, 0)
	assert.ErrorIs(t, err, ErrKernelTooLarge)
}

func TestRotate90(t *testing.T) {
	tn, err := FromSlice([]float32{1, 2, 3, 4}, 1, 1, 2, 2)
	require.NoError(t, err)

	r, err := Rotate90(tn, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 1, 3}, r.Data)

	// Four quarter turns are the identity, negative turns go clockwise.
	full, err := Rotate90(tn, 4)
	require.NoError(t, err)
	assert.Equal(t, tn.Data, full.Data)

	cw, err := Rotate90(tn, -1)
	require.NoError(t, err)
	ccw3, err := Rotate90(tn, 3)
	require.NoError(t, err)
	assert.Equal(t, ccw3.Data, cw.Data)

	rect := New[float32](1, 1, 2, 3)
	_, err = Rotate90(rect, 1)
	assert.ErrorIs(t, err, ErrShape)
}

func TestMaxAbsDiff(t *testing.T) {
	a, err := FromSlice([]float32{1, 2, 3}, 3)
	require.NoError(t, err)
	b, err := FromSlice([]float32{1, 2.5, 2}, 3)
	require.NoError(t, err)

	d, err := MaxAbsDiff(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-6)
}
