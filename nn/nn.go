// Package nn provides rotation equivariant neural network layers for 2D
// feature fields.
//
// A Field pairs a [batch, channels, height, width] tensor with a
// group.FieldType describing how its channels transform under rotation. The
// layers preserve that structure:
//
//   - R2Conv: convolution whose kernel is expanded from learnable
//     coefficients over a steerable basis, equivariant for any coefficient
//     values
//   - ReLU: pointwise rectifier, commuting with trivial and regular actions
//   - Sequential: a type-checked layer pipeline
//
// Equivariance means Forward(Transform(g, x)) equals Transform(g,
// Forward(x)) for every group element g; CheckEquivariance measures the
// discrepancy numerically for groups whose rotations are exact on the grid.
//
// Example usage:
//
//	sp, _ := group.Rot2D(8)
//	in, _ := group.Trivials(sp, 3)
//	out, _ := group.Regulars(sp, 10)
//	conv, _ := nn.NewR2Conv(in, out, 5, nn.ConvConfig{})
//	relu, _ := nn.NewReLU(out)
//	model, _ := nn.NewSequential(conv, relu)
//
//	x := nn.NewRandomField(in, 16, 32, 32, 1)
//	y, _ := model.Forward(x)
//
// Models can also be declared in YAML (BuildModel) and persisted to JSON
// (SaveModel, LoadModel).
package nn
