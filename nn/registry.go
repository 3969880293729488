package nn

import (
	"fmt"
	"sort"
	"sync"

	"github.com/openfluke/gyre/group"
)

// BuilderFunc constructs a layer from its config entry, given the field type
// flowing into it.
type BuilderFunc func(in *group.FieldType, spec LayerSpec) (Layer, error)

var (
	buildersMu sync.RWMutex
	builders   = make(map[string]BuilderFunc)
)

func init() {
	RegisterLayer("r2conv", buildR2Conv)
	RegisterLayer("relu", buildReLU)
}

// RegisterLayer makes a layer type available to config-driven model
// building. Registering an existing name replaces its builder.
func RegisterLayer(name string, fn BuilderFunc) {
	buildersMu.Lock()
	builders[name] = fn
	buildersMu.Unlock()
}

// ListLayerTypes returns the registered layer type names, sorted.
func ListLayerTypes() []string {
	buildersMu.RLock()
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	buildersMu.RUnlock()
	sort.Strings(names)
	return names
}

func lookupBuilder(name string) (BuilderFunc, error) {
	buildersMu.RLock()
	fn, ok := builders[name]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayerType, name)
	}
	return fn, nil
}

func buildR2Conv(in *group.FieldType, spec LayerSpec) (Layer, error) {
	out, err := spec.Out.Build(in.Space())
	if err != nil {
		return nil, err
	}
	return NewR2Conv(in, out, spec.KernelSize, ConvConfig{
		Stride:  spec.Stride,
		Padding: spec.Padding,
		Bias:    spec.Bias,
		Workers: spec.Workers,
		Seed:    spec.Seed,
	})
}

func buildReLU(in *group.FieldType, _ LayerSpec) (Layer, error) {
	return NewReLU(in)
}
