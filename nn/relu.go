package nn

import (
	"fmt"

	"github.com/openfluke/gyre/group"
)

// ReLU applies max(0, x) elementwise. Pointwise nonlinearities commute with
// the trivial action and with the channel permutations of the regular
// representation, so the field type passes through unchanged.
type ReLU struct {
	ft *group.FieldType
}

// NewReLU builds a rectifier for fields of the given type.
func NewReLU(ft *group.FieldType) (*ReLU, error) {
	if ft == nil {
		return nil, fmt.Errorf("%w: nil field type", ErrConfiguration)
	}
	return &ReLU{ft: ft}, nil
}

// InType returns the expected input field type.
func (r *ReLU) InType() *group.FieldType { return r.ft }

// OutType returns the produced field type, identical to the input type.
func (r *ReLU) OutType() *group.FieldType { return r.ft }

// Forward rectifies into a fresh tensor, leaving the input untouched.
func (r *ReLU) Forward(x *Field) (*Field, error) {
	if x == nil || x.Data == nil {
		return nil, fmt.Errorf("%w: nil input field", ErrFieldTypeMismatch)
	}
	if !x.Type.Equal(r.ft) {
		return nil, fmt.Errorf("%w: layer expects %s, field is %s", ErrFieldTypeMismatch, r.ft, x.Type)
	}
	out := x.Data.Clone()
	for i, v := range out.Data {
		if v < 0 {
			out.Data[i] = 0
		}
	}
	return &Field{Data: out, Type: r.ft}, nil
}
