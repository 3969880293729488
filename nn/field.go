package nn

import (
	"fmt"
	"math/rand"

	"github.com/openfluke/gyre/group"
	"github.com/openfluke/gyre/tensor"
)

// Field is a feature tensor together with the field type giving its channel
// axis a geometric meaning. Data is laid out [batch, channels, height,
// width] with channels matching the type's size.
type Field struct {
	Data *tensor.Tensor[float32]
	Type *group.FieldType
}

// NewField wraps a 4D tensor as a typed field, checking that the channel
// axis matches the type.
func NewField(data *tensor.Tensor[float32], ft *group.FieldType) (*Field, error) {
	if len(data.Shape) != 4 {
		return nil, fmt.Errorf("%w: field data must be 4D, got shape %v", tensor.ErrRank, data.Shape)
	}
	if data.Shape[1] != ft.Size() {
		return nil, fmt.Errorf("%w: type %s has %d channels, data has %d",
			ErrFieldTypeMismatch, ft, ft.Size(), data.Shape[1])
	}
	return &Field{Data: data, Type: ft}, nil
}

// NewRandomField returns a field filled with uniform values in [-1, 1),
// deterministic for a given seed.
func NewRandomField(ft *group.FieldType, batch, height, width int, seed int64) *Field {
	r := rand.New(rand.NewSource(seed))
	data := tensor.New[float32](batch, ft.Size(), height, width)
	for i := range data.Data {
		data.Data[i] = r.Float32()*2 - 1
	}
	return &Field{Data: data, Type: ft}
}

// Transform applies the group action of g to the field: the spatial grid is
// rotated and each channel block is acted on by its representation. The
// spatial extent must be square, and the group order must divide 4 so the
// rotation maps the grid onto itself; other orders return
// ErrInexactRotation.
func (f *Field) Transform(g group.Element) (*Field, error) {
	sp := f.Type.Space()
	order := sp.Order()
	if 4%order != 0 {
		return nil, fmt.Errorf("%w: order %d", ErrInexactRotation, order)
	}
	gn := int(f.Type.Space().Compose(g, 0))

	rotated, err := tensor.Rotate90(f.Data, gn*(4/order))
	if err != nil {
		return nil, err
	}

	// Fiber action: channel c of the output reads channel perm[c] of the
	// rotated tensor.
	channels := f.Type.Size()
	perm := make([]int, channels)
	for _, blk := range f.Type.Blocks() {
		d := blk.Repr.Dim()
		for i := 0; i < d; i++ {
			src := i
			if blk.Repr.Kind() == group.Regular {
				src = ((i-gn)%order + order) % order
			}
			perm[blk.Offset+i] = blk.Offset + src
		}
	}

	batch := rotated.Shape[0]
	plane := rotated.Shape[2] * rotated.Shape[3]
	out := tensor.New[float32](rotated.Shape[0], channels, rotated.Shape[2], rotated.Shape[3])
	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			dst := out.Data[(b*channels+c)*plane : (b*channels+c+1)*plane]
			src := rotated.Data[(b*channels+perm[c])*plane : (b*channels+perm[c]+1)*plane]
			copy(dst, src)
		}
	}
	return &Field{Data: out, Type: f.Type}, nil
}
