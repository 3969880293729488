package nn

import (
	"errors"

	"github.com/openfluke/gyre/tensor"
)

var (
	// ErrConfiguration reports an invalid layer parameter at construction
	// time, such as a negative stride or padding.
	ErrConfiguration = errors.New("nn: invalid layer configuration")

	// ErrInvalidBiasConfiguration reports a bias request on an output type
	// with non-trivial blocks. A bias shifts a channel uniformly, which only
	// commutes with the group action on rotation invariant channels.
	ErrInvalidBiasConfiguration = errors.New("nn: bias requires an all-trivial output type")

	// ErrFieldTypeMismatch reports a field whose type does not match what a
	// layer was built for, or adjacent layers whose types disagree.
	ErrFieldTypeMismatch = errors.New("nn: field type mismatch")

	// ErrKernelTooLarge reports an input whose padded spatial extent is
	// smaller than the kernel.
	ErrKernelTooLarge = tensor.ErrKernelTooLarge

	// ErrInexactRotation reports a grid transform request for a group whose
	// rotations do not map the pixel grid onto itself. Only orders 1, 2 and
	// 4 rotate a square grid exactly.
	ErrInexactRotation = errors.New("nn: group order does not rotate the grid exactly")

	// ErrUnknownLayerType reports a config or model file naming a layer type
	// with no registered builder.
	ErrUnknownLayerType = errors.New("nn: unknown layer type")
)
