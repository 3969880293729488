package tensor

import (
	"errors"
	"fmt"
)

// ErrKernelTooLarge reports a kernel that does not fit inside the padded
// input.
var ErrKernelTooLarge = errors.New("tensor: kernel larger than padded input")

// ConvOutputSize returns the spatial output extent of a cross-correlation
// with the given input extent, kernel size, stride and symmetric padding.
func ConvOutputSize(in, kernel, stride, padding int) int {
	return (in+2*padding-kernel)/stride + 1
}

// CrossCorrelate2D slides kernel over input without flipping it, the usual
// convolution layer forward pass.
//
// Shapes: input [B, Cin, H, W], kernel [Cout, Cin, K, K], bias nil or
// [Cout]. Output is [B, Cout, H', W'] with H' = (H+2P-K)/S + 1.
func CrossCorrelate2D[T Numeric](input, kernel *Tensor[T], bias []T, stride, padding int) (*Tensor[T], error) {
	if len(input.Shape) != 4 || len(kernel.Shape) != 4 {
		return nil, fmt.Errorf("%w: correlate needs 4D input and kernel, got %v and %v", ErrRank, input.Shape, kernel.Shape)
	}
	batch := input.Shape[0]
	outC := kernel.Shape[0]
	outH := ConvOutputSize(input.Shape[2], kernel.Shape[2], stride, padding)
	outW := ConvOutputSize(input.Shape[3], kernel.Shape[3], stride, padding)
	if outH < 1 || outW < 1 {
		return nil, fmt.Errorf("%w: input %dx%d, kernel %d, padding %d",
			ErrKernelTooLarge, input.Shape[2], input.Shape[3], kernel.Shape[2], padding)
	}
	out := New[T](batch, outC, outH, outW)
	if err := CrossCorrelate2DInto(out, input, kernel, bias, stride, padding); err != nil {
		return nil, err
	}
	return out, nil
}

// CrossCorrelate2DInto is CrossCorrelate2D writing into a preallocated
// output tensor. It lets callers run disjoint batch slices concurrently:
// views of the same underlying input and output produced by SliceOuter never
// touch overlapping output elements.
func CrossCorrelate2DInto[T Numeric](out, input, kernel *Tensor[T], bias []T, stride, padding int) error {
	if len(input.Shape) != 4 || len(kernel.Shape) != 4 || len(out.Shape) != 4 {
		return fmt.Errorf("%w: correlate needs 4D tensors", ErrRank)
	}
	batch, inC, inH, inW := input.Shape[0], input.Shape[1], input.Shape[2], input.Shape[3]
	outC, kC, kH, kW := kernel.Shape[0], kernel.Shape[1], kernel.Shape[2], kernel.Shape[3]
	if kC != inC {
		return fmt.Errorf("%w: kernel expects %d input channels, input has %d", ErrShape, kC, inC)
	}
	if bias != nil && len(bias) != outC {
		return fmt.Errorf("%w: bias length %d for %d output channels", ErrShape, len(bias), outC)
	}
	outH := ConvOutputSize(inH, kH, stride, padding)
	outW := ConvOutputSize(inW, kW, stride, padding)
	if outH < 1 || outW < 1 {
		return fmt.Errorf("%w: input %dx%d, kernel %dx%d, padding %d", ErrKernelTooLarge, inH, inW, kH, kW, padding)
	}
	if !sameShape(out.Shape, []int{batch, outC, outH, outW}) {
		return fmt.Errorf("%w: output shape %v, want %v", ErrShape, out.Shape, []int{batch, outC, outH, outW})
	}

	inPlane := inH * inW
	outPlane := outH * outW
	kPlane := kH * kW
	for b := 0; b < batch; b++ {
		inBatch := input.Data[b*inC*inPlane:]
		outBatch := out.Data[b*outC*outPlane:]
		for oc := 0; oc < outC; oc++ {
			var base float64
			if bias != nil {
				base = float64(bias[oc])
			}
			kOut := kernel.Data[oc*inC*kPlane:]
			dst := outBatch[oc*outPlane : (oc+1)*outPlane]
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					sum := base
					iy0 := oy*stride - padding
					ix0 := ox*stride - padding
					for ic := 0; ic < inC; ic++ {
						src := inBatch[ic*inPlane : (ic+1)*inPlane]
						kSrc := kOut[ic*kPlane : (ic+1)*kPlane]
						for ky := 0; ky < kH; ky++ {
							iy := iy0 + ky
							if iy < 0 || iy >= inH {
								continue
							}
							row := src[iy*inW : (iy+1)*inW]
							kRow := kSrc[ky*kW : (ky+1)*kW]
							for kx := 0; kx < kW; kx++ {
								ix := ix0 + kx
								if ix < 0 || ix >= inW {
									continue
								}
								sum += float64(row[ix]) * float64(kRow[kx])
							}
						}
					}
					dst[oy*outW+ox] = T(sum)
				}
			}
		}
	}
	return nil
}
