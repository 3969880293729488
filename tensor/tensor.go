// Package tensor provides the dense numeric substrate the equivariant layers
// compute on: row-major N-dimensional arrays over float32 or float64, with
// the small set of kernels the layers need (elementwise ops, a tiled matrix
// multiply, 2D cross-correlation, quarter-turn rotation).
//
// Hot loops index Data directly; At and Set exist for tests and assembly
// code, not inner loops.
package tensor

import (
	"errors"
	"fmt"
)

// Numeric constrains tensor element types to the supported float widths.
type Numeric interface {
	~float32 | ~float64
}

var (
	// ErrShape reports a size or shape that does not match the data.
	ErrShape = errors.New("tensor: shape mismatch")
	// ErrRank reports an operation applied to a tensor of the wrong rank.
	ErrRank = errors.New("tensor: wrong rank")
)

// Tensor is a dense row-major N-dimensional array. Data is the flat backing
// slice; Strides[i] is the flat distance between consecutive indices along
// dimension i.
type Tensor[T Numeric] struct {
	Data    []T
	Shape   []int
	Strides []int
}

// New allocates a zero-filled tensor of the given shape.
func New[T Numeric](shape ...int) *Tensor[T] {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return &Tensor[T]{
		Data:    make([]T, size),
		Shape:   append([]int(nil), shape...),
		Strides: computeStrides(shape),
	}
}

// FromSlice wraps an existing slice as a tensor of the given shape. The
// slice is shared, not copied.
func FromSlice[T Numeric](data []T, shape ...int) (*Tensor[T], error) {
	size := 1
	for _, d := range shape {
		size *= d
	}
	if size != len(data) {
		return nil, fmt.Errorf("%w: %v needs %d elements, slice has %d", ErrShape, shape, size, len(data))
	}
	return &Tensor[T]{
		Data:    data,
		Shape:   append([]int(nil), shape...),
		Strides: computeStrides(shape),
	}, nil
}

// Size returns the total element count.
func (t *Tensor[T]) Size() int {
	size := 1
	for _, d := range t.Shape {
		size *= d
	}
	return size
}

// Clone returns a deep copy.
func (t *Tensor[T]) Clone() *Tensor[T] {
	return &Tensor[T]{
		Data:    append([]T(nil), t.Data...),
		Shape:   append([]int(nil), t.Shape...),
		Strides: append([]int(nil), t.Strides...),
	}
}

// Reshape returns a view with the same backing data and a new shape. The
// element count must be preserved.
func (t *Tensor[T]) Reshape(shape ...int) (*Tensor[T], error) {
	size := 1
	for _, d := range shape {
		size *= d
	}
	if size != t.Size() {
		return nil, fmt.Errorf("%w: cannot reshape %v to %v", ErrShape, t.Shape, shape)
	}
	return &Tensor[T]{
		Data:    t.Data,
		Shape:   append([]int(nil), shape...),
		Strides: computeStrides(shape),
	}, nil
}

// SliceOuter returns a view of rows [start, end) along the outermost
// dimension. The backing data is shared.
func (t *Tensor[T]) SliceOuter(start, end int) (*Tensor[T], error) {
	if len(t.Shape) == 0 {
		return nil, fmt.Errorf("%w: cannot slice a scalar", ErrRank)
	}
	if start < 0 || end > t.Shape[0] || start > end {
		return nil, fmt.Errorf("%w: slice [%d:%d) of outer dim %d", ErrShape, start, end, t.Shape[0])
	}
	shape := append([]int(nil), t.Shape...)
	shape[0] = end - start
	return &Tensor[T]{
		Data:    t.Data[start*t.Strides[0] : end*t.Strides[0] : end*t.Strides[0]],
		Shape:   shape,
		Strides: append([]int(nil), t.Strides...),
	}, nil
}

// At returns the element at the given multi-index.
func (t *Tensor[T]) At(idx ...int) T {
	return t.Data[t.flatIndex(idx)]
}

// Set writes the element at the given multi-index.
func (t *Tensor[T]) Set(v T, idx ...int) {
	t.Data[t.flatIndex(idx)] = v
}

func (t *Tensor[T]) flatIndex(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(t.Shape)))
	}
	flat := 0
	for i, x := range idx {
		flat += x * t.Strides[i]
	}
	return flat
}

func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}
