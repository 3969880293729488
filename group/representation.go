package group

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kind distinguishes the supported representation kinds. The set is closed:
// equivariant kernel construction needs to inspect both sides of every pair,
// so new kinds cannot be bolted on from outside the package.
type Kind int

const (
	// Trivial is the 1-dimensional representation that maps every rotation
	// to the identity. Channels of this kind are rotation invariant.
	Trivial Kind = iota
	// Regular is the N-dimensional representation in which a rotation by g
	// cyclically shifts the N sub-channels by g positions.
	Regular
)

func (k Kind) String() string {
	switch k {
	case Trivial:
		return "trivial"
	case Regular:
		return "regular"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrFiberSize reports a Transform call whose slices do not match the
// representation dimension.
var ErrFiberSize = errors.New("group: fiber length does not match representation dimension")

// Representation describes how one block of channels transforms under the
// group. Instances are owned by their Space, one per kind, so pointer
// equality is representation equality.
type Representation struct {
	space *Space
	kind  Kind
}

// Space returns the group this representation belongs to.
func (r *Representation) Space() *Space { return r.space }

// Kind returns the representation kind.
func (r *Representation) Kind() Kind { return r.kind }

// Dim returns the representation dimension: 1 for trivial, N for regular.
func (r *Representation) Dim() int {
	if r.kind == Trivial {
		return 1
	}
	return r.space.order
}

// Matrix returns the dense matrix of the group action for element g. For the
// regular representation the matrix permutes basis vectors: row i carries a 1
// in column (i-g) mod N. A fresh matrix is returned on every call.
func (r *Representation) Matrix(g Element) *mat.Dense {
	d := r.Dim()
	m := mat.NewDense(d, d, nil)
	if r.kind == Trivial {
		m.Set(0, 0, 1)
		return m
	}
	n := r.space.order
	shift := int(r.space.normalize(int(g)))
	for i := 0; i < d; i++ {
		m.Set(i, ((i-shift)%n+n)%n, 1)
	}
	return m
}

// Transform applies the action of g to a single fiber without materializing
// the matrix: dst[i] = src[(i-g) mod N] for the regular representation, a
// plain copy for the trivial one. dst and src must not alias.
func (r *Representation) Transform(g Element, dst, src []float32) error {
	d := r.Dim()
	if len(dst) != d || len(src) != d {
		return fmt.Errorf("%w: dim %d, got dst %d src %d", ErrFiberSize, d, len(dst), len(src))
	}
	if r.kind == Trivial {
		dst[0] = src[0]
		return nil
	}
	n := r.space.order
	shift := int(r.space.normalize(int(g)))
	for i := 0; i < n; i++ {
		dst[i] = src[((i-shift)%n+n)%n]
	}
	return nil
}
