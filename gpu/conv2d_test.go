package gpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() ConvSpec {
	return ConvSpec{
		Batch:       2,
		InChannels:  3,
		OutChannels: 4,
		InputHeight: 8,
		InputWidth:  8,
		KernelSize:  3,
		Stride:      1,
		Weights:     make([]float32, 4*3*3*3),
	}
}

func TestConvSpecOutputSize(t *testing.T) {
	s := validSpec()
	h, w := s.OutputSize()
	assert.Equal(t, 6, h)
	assert.Equal(t, 6, w)

	s.Padding = 1
	h, w = s.OutputSize()
	assert.Equal(t, 8, h)
	assert.Equal(t, 8, w)

	s.Stride = 2
	s.Padding = 0
	h, _ = s.OutputSize()
	assert.Equal(t, 3, h)
}

func TestConvSpecValidate(t *testing.T) {
	s := validSpec()
	inputLen := s.Batch * s.InChannels * s.InputHeight * s.InputWidth
	require.NoError(t, s.validate(inputLen))

	bad := s
	bad.Weights = bad.Weights[:10]
	assert.ErrorIs(t, bad.validate(inputLen), ErrInvalidSpec)

	bad = s
	bad.Bias = make([]float32, 2)
	assert.ErrorIs(t, bad.validate(inputLen), ErrInvalidSpec)

	bad = s
	bad.KernelSize = 11
	bad.Weights = make([]float32, 4*3*11*11)
	assert.ErrorIs(t, bad.validate(inputLen), ErrInvalidSpec)

	assert.ErrorIs(t, s.validate(inputLen-1), ErrInvalidSpec)
}

func TestConvSpecShader(t *testing.T) {
	s := validSpec()
	code := s.shader()
	assert.True(t, strings.Contains(code, "const BATCH: u32 = 2u"))
	assert.True(t, strings.Contains(code, "const OUT_H: u32 = 6u"))
	assert.True(t, strings.Contains(code, "@workgroup_size(256)"))
}
