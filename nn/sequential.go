package nn

import (
	"fmt"

	"github.com/openfluke/gyre/group"
)

// Layer is any typed map between feature fields. Implementations declare
// their input and output field types so pipelines can be checked when they
// are assembled rather than when data flows.
type Layer interface {
	InType() *group.FieldType
	OutType() *group.FieldType
	Forward(x *Field) (*Field, error)
}

// Sequential chains layers, verifying at construction that each layer's
// output type matches the next layer's input type.
type Sequential struct {
	layers []Layer
}

// NewSequential builds a pipeline from the given layers.
func NewSequential(layers ...Layer) (*Sequential, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: empty pipeline", ErrConfiguration)
	}
	for i := 1; i < len(layers); i++ {
		prev, cur := layers[i-1].OutType(), layers[i].InType()
		if !prev.Equal(cur) {
			return nil, fmt.Errorf("%w: layer %d produces %s, layer %d expects %s",
				ErrFieldTypeMismatch, i-1, prev, i, cur)
		}
	}
	return &Sequential{layers: layers}, nil
}

// InType returns the input type of the first layer.
func (s *Sequential) InType() *group.FieldType { return s.layers[0].InType() }

// OutType returns the output type of the last layer.
func (s *Sequential) OutType() *group.FieldType { return s.layers[len(s.layers)-1].OutType() }

// Layers returns the pipeline's layers in order. The slice is shared.
func (s *Sequential) Layers() []Layer { return s.layers }

// Forward runs the field through every layer in order.
func (s *Sequential) Forward(x *Field) (*Field, error) {
	cur := x
	for i, l := range s.layers {
		next, err := l.Forward(cur)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}
