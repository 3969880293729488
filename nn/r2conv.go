package nn

import (
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/openfluke/gyre/basis"
	"github.com/openfluke/gyre/group"
	"github.com/openfluke/gyre/tensor"
)

// ConvConfig carries the optional knobs of an equivariant convolution.
// The zero value means stride 1, no padding, no bias, sequential forward
// and seed 0.
type ConvConfig struct {
	Stride  int
	Padding int
	Bias    bool
	Workers int
	Seed    int64
}

// R2Conv is a rotation equivariant 2D convolution. Its kernel is not stored
// directly: the layer holds one learnable coefficient per steerable basis
// element and expands the kernel from them on every forward pass, so any
// coefficient values yield an equivariant map.
type R2Conv struct {
	inType     *group.FieldType
	outType    *group.FieldType
	kernelSize int
	stride     int
	padding    int
	workers    int

	pairs     []convPair
	basisSize int
	coeffs    *tensor.Tensor[float32]
	bias      []float32
}

// convPair is the basis bound to one (output block, input block) pair,
// with its slot in the coefficient vector.
type convPair struct {
	inOff, outOff int
	din, dout     int
	dim           int
	coeffOff      int
	matrix        *tensor.Tensor[float32] // [dim, dout*din*k*k]
}

// NewR2Conv builds an equivariant convolution from inType to outType with an
// odd square kernel. Coefficients are He initialized from cfg.Seed; bias, if
// requested, starts at zero and requires every output block to be trivial.
func NewR2Conv(inType, outType *group.FieldType, kernelSize int, cfg ConvConfig) (*R2Conv, error) {
	if inType == nil || outType == nil {
		return nil, fmt.Errorf("%w: nil field type", ErrConfiguration)
	}
	if inType.Space() != outType.Space() {
		return nil, fmt.Errorf("%w: input over %s, output over %s",
			group.ErrSpaceMismatch, inType.Space(), outType.Space())
	}
	if cfg.Stride < 0 {
		return nil, fmt.Errorf("%w: stride %d", ErrConfiguration, cfg.Stride)
	}
	if cfg.Padding < 0 {
		return nil, fmt.Errorf("%w: padding %d", ErrConfiguration, cfg.Padding)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%w: workers %d", ErrConfiguration, cfg.Workers)
	}
	if cfg.Bias {
		for _, blk := range outType.Blocks() {
			if blk.Repr.Kind() != group.Trivial {
				return nil, fmt.Errorf("%w: output type %s", ErrInvalidBiasConfiguration, outType)
			}
		}
	}

	c := &R2Conv{
		inType:     inType,
		outType:    outType,
		kernelSize: kernelSize,
		stride:     max(cfg.Stride, 1),
		padding:    cfg.Padding,
		workers:    max(cfg.Workers, 1),
	}

	// One steerable basis per block pair; the cache collapses repeats.
	for _, outB := range outType.Blocks() {
		for _, inB := range inType.Blocks() {
			set, err := basis.Build(inB.Repr, outB.Repr, kernelSize)
			if err != nil {
				return nil, err
			}
			m, err := tensor.FromSlice(set.Flatten32(), set.Dim(), outB.Repr.Dim()*inB.Repr.Dim()*kernelSize*kernelSize)
			if err != nil {
				return nil, err
			}
			c.pairs = append(c.pairs, convPair{
				inOff:    inB.Offset,
				outOff:   outB.Offset,
				din:      inB.Repr.Dim(),
				dout:     outB.Repr.Dim(),
				dim:      set.Dim(),
				coeffOff: c.basisSize,
				matrix:   m,
			})
			c.basisSize += set.Dim()
		}
	}

	c.coeffs = tensor.New[float32](c.basisSize)
	r := rand.New(rand.NewSource(cfg.Seed))
	std := math.Sqrt(2 / float64(inType.Size()*kernelSize*kernelSize))
	for i := range c.coeffs.Data {
		c.coeffs.Data[i] = float32(r.NormFloat64() * std)
	}
	if cfg.Bias {
		c.bias = make([]float32, len(outType.Blocks()))
	}
	return c, nil
}

// InType returns the expected input field type.
func (c *R2Conv) InType() *group.FieldType { return c.inType }

// OutType returns the produced output field type.
func (c *R2Conv) OutType() *group.FieldType { return c.outType }

// KernelSize returns the spatial kernel extent.
func (c *R2Conv) KernelSize() int { return c.kernelSize }

// Stride returns the spatial stride.
func (c *R2Conv) Stride() int { return c.stride }

// Padding returns the symmetric zero padding.
func (c *R2Conv) Padding() int { return c.padding }

// BasisSize returns the total number of learnable coefficients.
func (c *R2Conv) BasisSize() int { return c.basisSize }

// Coefficients returns the live coefficient tensor. Callers may write to it
// between forward passes; the next ExpandedKernel reflects the new values.
func (c *R2Conv) Coefficients() *tensor.Tensor[float32] { return c.coeffs }

// BiasTerms returns the live per-block bias slice, nil when the layer was
// built without bias.
func (c *R2Conv) BiasTerms() []float32 { return c.bias }

// SetCoefficients replaces all coefficients.
func (c *R2Conv) SetCoefficients(v []float32) error {
	if len(v) != c.basisSize {
		return fmt.Errorf("%w: %d coefficients for basis size %d", ErrConfiguration, len(v), c.basisSize)
	}
	copy(c.coeffs.Data, v)
	return nil
}

// SetBias replaces the per-block bias terms.
func (c *R2Conv) SetBias(v []float32) error {
	if c.bias == nil {
		return fmt.Errorf("%w: layer has no bias", ErrConfiguration)
	}
	if len(v) != len(c.bias) {
		return fmt.Errorf("%w: %d bias terms for %d output blocks", ErrConfiguration, len(v), len(c.bias))
	}
	copy(c.bias, v)
	return nil
}

// ExpandedKernel contracts the current coefficients against the basis and
// returns the full [outChannels, inChannels, k, k] kernel.
func (c *R2Conv) ExpandedKernel() (*tensor.Tensor[float32], error) {
	cin := c.inType.Size()
	k2 := c.kernelSize * c.kernelSize
	w := tensor.New[float32](c.outType.Size(), cin, c.kernelSize, c.kernelSize)
	for _, p := range c.pairs {
		cvec, err := tensor.FromSlice(c.coeffs.Data[p.coeffOff:p.coeffOff+p.dim], 1, p.dim)
		if err != nil {
			return nil, err
		}
		prod, err := tensor.MatMul(cvec, p.matrix)
		if err != nil {
			return nil, err
		}
		for od := 0; od < p.dout; od++ {
			for id := 0; id < p.din; id++ {
				dst := ((p.outOff+od)*cin + p.inOff + id) * k2
				src := (od*p.din + id) * k2
				copy(w.Data[dst:dst+k2], prod.Data[src:src+k2])
			}
		}
	}
	return w, nil
}

// ChannelBias materializes the per-channel bias vector, nil when the layer
// has none.
func (c *R2Conv) ChannelBias() []float32 {
	if c.bias == nil {
		return nil
	}
	vec := make([]float32, c.outType.Size())
	for i, blk := range c.outType.Blocks() {
		vec[blk.Offset] = c.bias[i]
	}
	return vec
}

// Forward runs the convolution. The kernel is expanded from the current
// coefficients on every call; only the basis itself is precomputed. With
// more than one worker the batch is split into contiguous slices processed
// concurrently.
func (c *R2Conv) Forward(x *Field) (*Field, error) {
	if x == nil || x.Data == nil {
		return nil, fmt.Errorf("%w: nil input field", ErrFieldTypeMismatch)
	}
	if !x.Type.Equal(c.inType) {
		return nil, fmt.Errorf("%w: layer expects %s, field is %s", ErrFieldTypeMismatch, c.inType, x.Type)
	}
	if len(x.Data.Shape) != 4 {
		return nil, fmt.Errorf("%w: field data must be 4D, got %v", tensor.ErrRank, x.Data.Shape)
	}

	kernel, err := c.ExpandedKernel()
	if err != nil {
		return nil, err
	}
	bias := c.ChannelBias()

	batch := x.Data.Shape[0]
	workers := min(c.workers, batch)
	if workers <= 1 {
		out, err := tensor.CrossCorrelate2D(x.Data, kernel, bias, c.stride, c.padding)
		if err != nil {
			return nil, err
		}
		return &Field{Data: out, Type: c.outType}, nil
	}

	outH := tensor.ConvOutputSize(x.Data.Shape[2], c.kernelSize, c.stride, c.padding)
	outW := tensor.ConvOutputSize(x.Data.Shape[3], c.kernelSize, c.stride, c.padding)
	if outH < 1 || outW < 1 {
		return nil, fmt.Errorf("%w: input %dx%d, kernel %d, padding %d",
			ErrKernelTooLarge, x.Data.Shape[2], x.Data.Shape[3], c.kernelSize, c.padding)
	}
	out := tensor.New[float32](batch, c.outType.Size(), outH, outW)

	var g errgroup.Group
	chunk := (batch + workers - 1) / workers
	for start := 0; start < batch; start += chunk {
		end := min(start+chunk, batch)
		g.Go(func() error {
			src, err := x.Data.SliceOuter(start, end)
			if err != nil {
				return err
			}
			dst, err := out.SliceOuter(start, end)
			if err != nil {
				return err
			}
			return tensor.CrossCorrelate2DInto(dst, src, kernel, bias, c.stride, c.padding)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Field{Data: out, Type: c.outType}, nil
}
