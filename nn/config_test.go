package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/gyre/group"
)

const sampleConfig = `
order: 4
input:
  trivial: 3
layers:
  - type: r2conv
    out:
      regular: 4
    kernel_size: 3
    padding: 1
    seed: 7
  - type: relu
  - type: r2conv
    out:
      trivial: 2
    kernel_size: 3
    padding: 1
    bias: true
`

func TestParseAndBuildModel(t *testing.T) {
	cfg, err := ParseModelConfig([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Order)
	require.Len(t, cfg.Layers, 3)
	assert.Equal(t, 3, cfg.Layers[0].KernelSize)
	assert.True(t, cfg.Layers[2].Bias)

	model, err := BuildModel(cfg)
	require.NoError(t, err)
	assert.Equal(t, "C4[3*trivial]", model.InType().String())
	assert.Equal(t, "C4[2*trivial]", model.OutType().String())

	x := NewRandomField(model.InType(), 2, 8, 8, 1)
	y, err := model.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 8, 8}, y.Data.Shape)
}

func TestBuildModelUnknownLayer(t *testing.T) {
	cfg, err := ParseModelConfig([]byte(`
order: 2
input:
  trivial: 1
layers:
  - type: warp
`))
	require.NoError(t, err)
	_, err = BuildModel(cfg)
	assert.ErrorIs(t, err, ErrUnknownLayerType)
}

func TestParseModelConfigRejectsEmpty(t *testing.T) {
	_, err := ParseModelConfig([]byte("order: 4\ninput:\n  trivial: 1\n"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRegisterCustomLayer(t *testing.T) {
	RegisterLayer("identity", func(in *group.FieldType, _ LayerSpec) (Layer, error) {
		return NewReLU(in)
	})
	assert.Contains(t, ListLayerTypes(), "identity")

	cfg, err := ParseModelConfig([]byte(`
order: 2
input:
  regular: 1
layers:
  - type: identity
`))
	require.NoError(t, err)
	model, err := BuildModel(cfg)
	require.NoError(t, err)
	assert.Len(t, model.Layers(), 1)
}

func TestFieldSpecBuild(t *testing.T) {
	sp := mustSpace(t, 4)

	ft, err := FieldSpec{Trivial: 2, Regular: 3}.Build(sp)
	require.NoError(t, err)
	assert.Equal(t, 2+12, ft.Size())

	_, err = FieldSpec{Trivial: -1}.Build(sp)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = FieldSpec{}.Build(sp)
	assert.ErrorIs(t, err, group.ErrEmptyFieldType)
}
