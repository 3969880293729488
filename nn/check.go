package nn

import (
	"fmt"

	"github.com/openfluke/gyre/tensor"
)

// CheckEquivariance measures how far a layer is from commuting with the
// group action: it feeds a random square field through the layer, transforms
// input and output by every group element, and returns the largest absolute
// discrepancy between forward-then-transform and transform-then-forward.
//
// The group order must divide 4 so the transforms are exact on the grid
// (larger orders resample pixels and would report interpolation error, not
// equivariance error). The comparison is exact only when the layer's output
// grid is rotation symmetric, which holds for stride 1; with larger strides
// the sampled positions themselves can break the symmetry.
func CheckEquivariance(l Layer, batch, size int, seed int64) (float64, error) {
	sp := l.InType().Space()
	if 4%sp.Order() != 0 {
		return 0, fmt.Errorf("%w: order %d", ErrInexactRotation, sp.Order())
	}

	x := NewRandomField(l.InType(), batch, size, size, seed)
	y, err := l.Forward(x)
	if err != nil {
		return 0, err
	}

	var worst float64
	for _, g := range sp.Elements() {
		if g == 0 {
			continue
		}
		xg, err := x.Transform(g)
		if err != nil {
			return 0, err
		}
		yg, err := l.Forward(xg)
		if err != nil {
			return 0, err
		}
		want, err := y.Transform(g)
		if err != nil {
			return 0, err
		}
		d, err := tensor.MaxAbsDiff(yg.Data, want.Data)
		if err != nil {
			return 0, err
		}
		if d > worst {
			worst = d
		}
	}
	return worst, nil
}
