// Package group implements the symmetry bookkeeping behind rotation
// equivariant convolution:
//
//   - Space: the cyclic rotation group C_N acting on the 2D plane
//   - Representation: how a block of channels transforms under a rotation
//     (trivial or regular)
//   - FieldType: the ordered list of representation blocks that gives a
//     tensor's channel axis its geometric meaning
//
// A Space is built once with Rot2D and shared by pointer afterwards. Two
// Spaces of the same order are distinct symmetry contexts: field types and
// kernel bases never mix across them.
package group

import (
	"errors"
	"fmt"
	"math"
)

// Element identifies a rotation by index. For a group of order N, element g
// is the counterclockwise rotation by g*2*pi/N radians.
type Element int

// ErrInvalidOrder reports a group order below 1.
var ErrInvalidOrder = errors.New("group: order must be >= 1")

// Space is the cyclic rotation group C_N together with its composition
// table and cached representations. The zero value is not usable; construct
// with Rot2D.
type Space struct {
	order int
	table [][]Element

	trivial *Representation
	regular *Representation
}

// Rot2D returns the rotation group of the given order. Order 1 is the
// degenerate group containing only the identity. The composition table is
// filled here and immutable afterwards.
func Rot2D(order int) (*Space, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	sp := &Space{order: order}
	sp.table = make([][]Element, order)
	for a := 0; a < order; a++ {
		row := make([]Element, order)
		for b := 0; b < order; b++ {
			row[b] = Element((a + b) % order)
		}
		sp.table[a] = row
	}
	sp.trivial = &Representation{space: sp, kind: Trivial}
	sp.regular = &Representation{space: sp, kind: Regular}
	return sp, nil
}

// Order returns the number of group elements.
func (sp *Space) Order() int { return sp.order }

// Elements returns all group elements in index order.
func (sp *Space) Elements() []Element {
	out := make([]Element, sp.order)
	for i := range out {
		out[i] = Element(i)
	}
	return out
}

// Compose returns the element a*b, the rotation b followed by a, from the
// precomputed table. Inputs are reduced modulo the group order, so negative
// indices are accepted.
func (sp *Space) Compose(a, b Element) Element {
	return sp.table[sp.normalize(int(a))][sp.normalize(int(b))]
}

// Inverse returns the element g' with Compose(g, g') == 0.
func (sp *Space) Inverse(g Element) Element {
	return sp.normalize(-int(g))
}

// Angle returns the rotation angle of g in radians, in [0, 2*pi).
func (sp *Space) Angle(g Element) float64 {
	n := sp.normalize(int(g))
	return 2 * math.Pi * float64(n) / float64(sp.order)
}

// TrivialRepr returns the 1-dimensional trivial representation of this space.
// The same pointer is returned on every call.
func (sp *Space) TrivialRepr() *Representation { return sp.trivial }

// RegularRepr returns the N-dimensional regular representation of this space.
// The same pointer is returned on every call.
func (sp *Space) RegularRepr() *Representation { return sp.regular }

func (sp *Space) String() string {
	return fmt.Sprintf("C%d", sp.order)
}

func (sp *Space) normalize(i int) Element {
	m := i % sp.order
	if m < 0 {
		m += sp.order
	}
	return Element(m)
}
