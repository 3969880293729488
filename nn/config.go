package nn

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openfluke/gyre/group"
)

// FieldSpec describes a field type as block counts: Trivial trivial blocks
// followed by Regular regular blocks.
type FieldSpec struct {
	Trivial int `yaml:"trivial,omitempty" json:"trivial,omitempty"`
	Regular int `yaml:"regular,omitempty" json:"regular,omitempty"`
}

// Build materializes the spec over a group space.
func (fs FieldSpec) Build(sp *group.Space) (*group.FieldType, error) {
	if fs.Trivial < 0 || fs.Regular < 0 {
		return nil, fmt.Errorf("%w: negative block count in field spec", ErrConfiguration)
	}
	reprs := make([]*group.Representation, 0, fs.Trivial+fs.Regular)
	for i := 0; i < fs.Trivial; i++ {
		reprs = append(reprs, sp.TrivialRepr())
	}
	for i := 0; i < fs.Regular; i++ {
		reprs = append(reprs, sp.RegularRepr())
	}
	return group.NewFieldType(sp, reprs)
}

// LayerSpec is one layer entry of a model config. Fields that a layer type
// does not use are ignored by its builder.
type LayerSpec struct {
	Type       string    `yaml:"type"`
	Out        FieldSpec `yaml:"out,omitempty"`
	KernelSize int       `yaml:"kernel_size,omitempty"`
	Stride     int       `yaml:"stride,omitempty"`
	Padding    int       `yaml:"padding,omitempty"`
	Bias       bool      `yaml:"bias,omitempty"`
	Workers    int       `yaml:"workers,omitempty"`
	Seed       int64     `yaml:"seed,omitempty"`
}

// ModelConfig is a declarative model description: the group order, the input
// field type and the layer stack.
type ModelConfig struct {
	Order  int         `yaml:"order"`
	Input  FieldSpec   `yaml:"input"`
	Layers []LayerSpec `yaml:"layers"`
}

// LoadModelConfig reads and parses a YAML model config.
func LoadModelConfig(path string) (*ModelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model config: %w", err)
	}
	return ParseModelConfig(raw)
}

// ParseModelConfig parses a YAML model config from memory.
func ParseModelConfig(raw []byte) (*ModelConfig, error) {
	var cfg ModelConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse model config: %w", err)
	}
	if len(cfg.Layers) == 0 {
		return nil, fmt.Errorf("%w: config has no layers", ErrConfiguration)
	}
	return &cfg, nil
}

// BuildModel assembles a Sequential from a config using the layer registry.
func BuildModel(cfg *ModelConfig) (*Sequential, error) {
	sp, err := group.Rot2D(cfg.Order)
	if err != nil {
		return nil, err
	}
	cur, err := cfg.Input.Build(sp)
	if err != nil {
		return nil, fmt.Errorf("input type: %w", err)
	}

	layers := make([]Layer, 0, len(cfg.Layers))
	for i, spec := range cfg.Layers {
		build, err := lookupBuilder(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layer, err := build(cur, spec)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, spec.Type, err)
		}
		layers = append(layers, layer)
		cur = layer.OutType()
	}
	return NewSequential(layers...)
}
