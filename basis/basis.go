// Package basis constructs steerable kernel bases: for a pair of group
// representations it enumerates every kernel that commutes with rotation,
//
//	kernel(rotate(g, u)) = rho_out(g) * kernel(u) * rho_in(g)^-1
//
// sampled on an odd square grid. An equivariant convolution layer holds one
// learnable coefficient per basis element; the spanned space is exactly the
// kernels that keep the layer equivariant.
//
// The construction works ring by ring. Cells at one squared radius form a
// ring that rotations map onto itself, so the constraint decouples into an
// angular problem per ring: admissible angular harmonics, shifted per
// sub-channel for regular representations, and for a regular-to-regular pair
// replicated once per cyclic difference class of (output, input) sub-channel
// index. Harmonics are kept up to the ring's angular resolution, so a 1x1
// kernel carries only constants while larger grids resolve higher
// frequencies.
package basis

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/gyre/group"
)

var (
	// ErrEvenKernelSize reports a kernel size that is even or below 1. Odd
	// sizes keep the rotation center on a grid cell.
	ErrEvenKernelSize = errors.New("basis: kernel size must be odd and >= 1")
	// ErrUnsupportedRepresentation reports a representation kind the
	// constructor does not know how to pair.
	ErrUnsupportedRepresentation = errors.New("basis: unsupported representation kind")
)

// Element is one basis kernel: Data holds the sampled values flattened in
// [out sub-channel][in sub-channel][row][col] order and scaled to unit L2
// norm. The remaining fields identify where the element came from.
type Element struct {
	Data     []float64
	Shape    [4]int
	RadiusSq int  // squared radius of the ring
	Freq     int  // angular frequency of the harmonic
	Sin      bool // sine phase rather than cosine
	Class    int  // cyclic difference class, regular-regular pairs only

	normInv float64
}

// Set is a complete basis for one (input representation, output
// representation, kernel size) triple. Sets are immutable after construction
// and safe for concurrent use; element data is shared between all Sets built
// from structurally identical inputs, so callers must not write to it.
type Set struct {
	in, out    *group.Representation
	kernelSize int
	shared     *setData
}

type setData struct {
	elements []Element
	rings    []ring
}

type cacheKey struct {
	order      int
	inKind     group.Kind
	outKind    group.Kind
	kernelSize int
}

var cache = struct {
	sync.Mutex
	m map[cacheKey]*setData
}{m: make(map[cacheKey]*setData)}

// Build returns the steerable basis for the given representation pair and
// odd kernel size. Results are cached by structural key (group order,
// representation kinds, kernel size), so repeated layers share one basis.
func Build(in, out *group.Representation, kernelSize int) (*Set, error) {
	if kernelSize < 1 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrEvenKernelSize, kernelSize)
	}
	if in.Space() != out.Space() {
		return nil, fmt.Errorf("%w: input over %s, output over %s", group.ErrSpaceMismatch, in.Space(), out.Space())
	}
	if err := checkKind(in.Kind()); err != nil {
		return nil, err
	}
	if err := checkKind(out.Kind()); err != nil {
		return nil, err
	}

	key := cacheKey{
		order:      in.Space().Order(),
		inKind:     in.Kind(),
		outKind:    out.Kind(),
		kernelSize: kernelSize,
	}
	cache.Lock()
	shared, ok := cache.m[key]
	if !ok {
		shared = construct(in, out, kernelSize)
		cache.m[key] = shared
	}
	cache.Unlock()

	return &Set{in: in, out: out, kernelSize: kernelSize, shared: shared}, nil
}

func checkKind(k group.Kind) error {
	switch k {
	case group.Trivial, group.Regular:
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedRepresentation, k)
	}
}

// In returns the input representation the basis was built for.
func (s *Set) In() *group.Representation { return s.in }

// Out returns the output representation the basis was built for.
func (s *Set) Out() *group.Representation { return s.out }

// KernelSize returns the spatial kernel extent.
func (s *Set) KernelSize() int { return s.kernelSize }

// Dim returns the number of basis elements.
func (s *Set) Dim() int { return len(s.shared.elements) }

// Elements returns the basis elements in deterministic order: radius
// ascending, then frequency ascending with cosine before sine, then
// difference class ascending. The slice and element data are shared;
// callers must treat them as read-only.
func (s *Set) Elements() []Element { return s.shared.elements }

// Matrix lays the basis out as a dense matrix with one flattened element per
// row, convenient for rank and span checks.
func (s *Set) Matrix() *mat.Dense {
	els := s.shared.elements
	cols := len(els[0].Data)
	m := mat.NewDense(len(els), cols, nil)
	for i, el := range els {
		m.SetRow(i, el.Data)
	}
	return m
}

// Flatten32 concatenates all element data row-major as float32, the layout
// convolution layers contract coefficients against.
func (s *Set) Flatten32() []float32 {
	els := s.shared.elements
	out := make([]float32, 0, len(els)*len(els[0].Data))
	for _, el := range els {
		for _, v := range el.Data {
			out = append(out, float32(v))
		}
	}
	return out
}

// Sample evaluates every basis element at grid positions rotated by g, each
// scaled by the same factor as its stored counterpart. For a sound basis
// Sample(g) equals conjugating Sample(0) by the representation matrices of
// g, which is what the analytic form guarantees even for groups whose
// rotations do not map the grid onto itself.
func (s *Set) Sample(g group.Element) [][]float64 {
	offset := s.in.Space().Angle(g)
	out := make([][]float64, len(s.shared.elements))
	for i, el := range s.shared.elements {
		r := s.ringFor(el.RadiusSq)
		data := sampleElement(s.in, s.out, s.kernelSize, r, profile{freq: el.Freq, sin: el.Sin}, el.Class, offset)
		floats.Scale(el.normInv, data)
		out[i] = data
	}
	return out
}

func (s *Set) ringFor(radiusSq int) ring {
	for _, r := range s.shared.rings {
		if r.radiusSq == radiusSq {
			return r
		}
	}
	panic(fmt.Sprintf("basis: no ring with squared radius %d", radiusSq))
}

func construct(in, out *group.Representation, kernelSize int) *setData {
	order := in.Space().Order()
	shifted := in.Kind() == group.Regular || out.Kind() == group.Regular
	freqStep := 1
	if !shifted {
		freqStep = order
	}
	classes := 1
	if in.Kind() == group.Regular && out.Kind() == group.Regular {
		classes = order
	}

	data := &setData{rings: gridRings(kernelSize)}
	for _, r := range data.rings {
		nodes := sampleAngles(r, order, shifted)
		for _, p := range selectProfiles(nodes, freqStep) {
			for class := 0; class < classes; class++ {
				raw := sampleElement(in, out, kernelSize, r, p, class, 0)
				el := Element{
					Data:     raw,
					Shape:    [4]int{out.Dim(), in.Dim(), kernelSize, kernelSize},
					RadiusSq: r.radiusSq,
					Freq:     p.freq,
					Sin:      p.sin,
					Class:    class,
					normInv:  1,
				}
				if norm := floats.Norm(raw, 2); norm > 0 {
					el.normInv = 1 / norm
					floats.Scale(el.normInv, raw)
				}
				data.elements = append(data.elements, el)
			}
		}
	}
	return data
}

// sampleElement evaluates one (ring, harmonic, class) kernel on the grid.
// The harmonic argument at a cell is its angle minus the group angle of the
// sub-channel the value lands in; the center cell is fixed by every rotation
// and reads the harmonic at zero.
func sampleElement(in, out *group.Representation, kernelSize int, r ring, p profile, class int, angleOffset float64) []float64 {
	order := in.Space().Order()
	din, dout := in.Dim(), out.Dim()
	k2 := kernelSize * kernelSize
	data := make([]float64, dout*din*k2)

	alpha := func(i int) float64 { return in.Space().Angle(group.Element(i)) }
	at := func(theta, shift float64) float64 {
		if r.radiusSq == 0 {
			return p.eval(0)
		}
		return p.eval(theta - shift)
	}

	for _, px := range r.pixels {
		pos := px.row*kernelSize + px.col
		theta := px.angle + angleOffset
		switch {
		case in.Kind() == group.Trivial && out.Kind() == group.Trivial:
			data[pos] = at(theta, 0)
		case in.Kind() == group.Trivial && out.Kind() == group.Regular:
			for i := 0; i < dout; i++ {
				data[i*k2+pos] = at(theta, alpha(i))
			}
		case in.Kind() == group.Regular && out.Kind() == group.Trivial:
			for j := 0; j < din; j++ {
				data[j*k2+pos] = at(theta, alpha(j))
			}
		default: // regular to regular
			for j := 0; j < din; j++ {
				i := (j + class) % order
				data[(i*din+j)*k2+pos] = at(theta, alpha(j))
			}
		}
	}
	return data
}
