package tensor

import (
	"fmt"
	"math"
)

// gemm tile edge, sized so three tiles of float64 stay inside L1.
const tileSize = 64

// Add returns the elementwise sum a+b as a new tensor.
func Add[T Numeric](a, b *Tensor[T]) (*Tensor[T], error) {
	if !sameShape(a.Shape, b.Shape) {
		return nil, fmt.Errorf("%w: add %v and %v", ErrShape, a.Shape, b.Shape)
	}
	out := a.Clone()
	for i, v := range b.Data {
		out.Data[i] += v
	}
	return out, nil
}

// Scale multiplies every element by s in place and returns the receiver.
func (t *Tensor[T]) Scale(s T) *Tensor[T] {
	for i := range t.Data {
		t.Data[i] *= s
	}
	return t
}

// MatMul computes the matrix product a*b for 2D tensors, accumulating in
// float64 and walking tiles to keep the working set cache resident.
func MatMul[T Numeric](a, b *Tensor[T]) (*Tensor[T], error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("%w: matmul needs 2D operands, got %v and %v", ErrRank, a.Shape, b.Shape)
	}
	m, k := a.Shape[0], a.Shape[1]
	k2, n := b.Shape[0], b.Shape[1]
	if k != k2 {
		return nil, fmt.Errorf("%w: matmul %v x %v", ErrShape, a.Shape, b.Shape)
	}
	out := New[T](m, n)
	for i0 := 0; i0 < m; i0 += tileSize {
		iMax := min(i0+tileSize, m)
		for l0 := 0; l0 < k; l0 += tileSize {
			lMax := min(l0+tileSize, k)
			for j0 := 0; j0 < n; j0 += tileSize {
				jMax := min(j0+tileSize, n)
				for i := i0; i < iMax; i++ {
					aRow := a.Data[i*k : (i+1)*k]
					oRow := out.Data[i*n : (i+1)*n]
					for l := l0; l < lMax; l++ {
						av := float64(aRow[l])
						if av == 0 {
							continue
						}
						bRow := b.Data[l*n : (l+1)*n]
						for j := j0; j < jMax; j++ {
							oRow[j] += T(av * float64(bRow[j]))
						}
					}
				}
			}
		}
	}
	return out, nil
}

// Rotate90 rotates the two spatial axes of a 4D tensor counterclockwise by
// the given number of quarter turns. The spatial extent must be square so
// the grid maps onto itself.
func Rotate90[T Numeric](t *Tensor[T], quarters int) (*Tensor[T], error) {
	if len(t.Shape) != 4 {
		return nil, fmt.Errorf("%w: rotate needs a 4D tensor, got %v", ErrRank, t.Shape)
	}
	h, w := t.Shape[2], t.Shape[3]
	if h != w {
		return nil, fmt.Errorf("%w: rotate needs square spatial dims, got %dx%d", ErrShape, h, w)
	}
	q := ((quarters % 4) + 4) % 4
	out := t.Clone()
	for ; q > 0; q-- {
		out = quarterTurn(out)
	}
	return out, nil
}

// quarterTurn applies one counterclockwise turn: out[i][j] = in[j][s-1-i].
func quarterTurn[T Numeric](t *Tensor[T]) *Tensor[T] {
	batch, ch, s := t.Shape[0], t.Shape[1], t.Shape[2]
	out := New[T](batch, ch, s, s)
	plane := s * s
	for bc := 0; bc < batch*ch; bc++ {
		src := t.Data[bc*plane : (bc+1)*plane]
		dst := out.Data[bc*plane : (bc+1)*plane]
		for i := 0; i < s; i++ {
			for j := 0; j < s; j++ {
				dst[i*s+j] = src[j*s+(s-1-i)]
			}
		}
	}
	return out
}

// MaxAbsDiff returns the largest absolute elementwise difference between two
// same-shaped tensors.
func MaxAbsDiff[T Numeric](a, b *Tensor[T]) (float64, error) {
	if !sameShape(a.Shape, b.Shape) {
		return 0, fmt.Errorf("%w: compare %v and %v", ErrShape, a.Shape, b.Shape)
	}
	var worst float64
	for i := range a.Data {
		d := math.Abs(float64(a.Data[i]) - float64(b.Data[i]))
		if d > worst {
			worst = d
		}
	}
	return worst, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
