package group

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyFieldType reports a field type built from zero blocks.
	ErrEmptyFieldType = errors.New("group: field type needs at least one representation block")
	// ErrSpaceMismatch reports representations or field types that belong to
	// different Space instances being combined.
	ErrSpaceMismatch = errors.New("group: mixed group spaces")
)

// Block is one representation block of a field type together with its channel
// offset. Channels [Offset, Offset+Repr.Dim()) of a tensor tagged with the
// field type transform as Repr.
type Block struct {
	Offset int
	Repr   *Representation
}

// FieldType is an ordered sequence of representation blocks describing how a
// tensor's channel axis decomposes under the group action. It is immutable
// after construction and safe to share between layers.
type FieldType struct {
	space  *Space
	blocks []Block
	size   int
}

// NewFieldType builds a field type over sp from an ordered list of
// representations. Every representation must belong to sp.
func NewFieldType(sp *Space, reprs []*Representation) (*FieldType, error) {
	if len(reprs) == 0 {
		return nil, ErrEmptyFieldType
	}
	ft := &FieldType{space: sp, blocks: make([]Block, 0, len(reprs))}
	for i, r := range reprs {
		if r.space != sp {
			return nil, fmt.Errorf("%w: block %d built for %s", ErrSpaceMismatch, i, r.space)
		}
		ft.blocks = append(ft.blocks, Block{Offset: ft.size, Repr: r})
		ft.size += r.Dim()
	}
	return ft, nil
}

// Trivials returns a field type of n trivial blocks, the natural type for
// plain n-channel input images.
func Trivials(sp *Space, n int) (*FieldType, error) {
	reprs := make([]*Representation, n)
	for i := range reprs {
		reprs[i] = sp.TrivialRepr()
	}
	return NewFieldType(sp, reprs)
}

// Regulars returns a field type of n regular blocks, n*N channels in total.
func Regulars(sp *Space, n int) (*FieldType, error) {
	reprs := make([]*Representation, n)
	for i := range reprs {
		reprs[i] = sp.RegularRepr()
	}
	return NewFieldType(sp, reprs)
}

// Space returns the group space the field type is defined over.
func (ft *FieldType) Space() *Space { return ft.space }

// Size returns the total channel count, the sum of all block dimensions.
func (ft *FieldType) Size() int { return ft.size }

// Blocks returns the representation blocks in channel order. The returned
// slice is shared; callers must treat it as read-only.
func (ft *FieldType) Blocks() []Block { return ft.blocks }

// Equal reports whether two field types are interchangeable: same Space
// instance and the same kind sequence. Field types over structurally
// identical but distinct Spaces are not equal.
func (ft *FieldType) Equal(other *FieldType) bool {
	if ft == other {
		return true
	}
	if ft == nil || other == nil {
		return false
	}
	if ft.space != other.space || len(ft.blocks) != len(other.blocks) {
		return false
	}
	for i := range ft.blocks {
		if ft.blocks[i].Repr.kind != other.blocks[i].Repr.kind {
			return false
		}
	}
	return true
}

// String renders the type compactly, e.g. "C8[3*trivial]" or
// "C4[trivial,2*regular]".
func (ft *FieldType) String() string {
	var parts []string
	i := 0
	for i < len(ft.blocks) {
		k := ft.blocks[i].Repr.kind
		j := i
		for j < len(ft.blocks) && ft.blocks[j].Repr.kind == k {
			j++
		}
		if j-i > 1 {
			parts = append(parts, fmt.Sprintf("%d*%s", j-i, k))
		} else {
			parts = append(parts, k.String())
		}
		i = j
	}
	return fmt.Sprintf("%s[%s]", ft.space, strings.Join(parts, ","))
}
