package nn

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/openfluke/gyre/group"
)

// modelFormat tags saved model files so loaders can reject foreign data.
const modelFormat = "gyre.model.v1"

// savedModel is the on-disk form of a Sequential: the group order, the block
// kind sequence of the model input, and one entry per layer.
type savedModel struct {
	Format string       `json:"format"`
	Order  int          `json:"order"`
	Input  []string     `json:"input"`
	Layers []savedLayer `json:"layers"`
}

type savedLayer struct {
	Type       string   `json:"type"`
	Out        []string `json:"out,omitempty"`
	KernelSize int      `json:"kernel_size,omitempty"`
	Stride     int      `json:"stride,omitempty"`
	Padding    int      `json:"padding,omitempty"`
	Bias       bool     `json:"bias,omitempty"`
	Coeffs     string   `json:"coeffs,omitempty"`
	BiasData   string   `json:"bias_data,omitempty"`
}

// SaveModel writes a pipeline of built-in layers to path as JSON with
// base64-packed little-endian float32 weights.
func SaveModel(path string, s *Sequential) error {
	file := savedModel{
		Format: modelFormat,
		Order:  s.InType().Space().Order(),
		Input:  kindNames(s.InType()),
	}
	for i, l := range s.Layers() {
		switch layer := l.(type) {
		case *R2Conv:
			entry := savedLayer{
				Type:       "r2conv",
				Out:        kindNames(layer.OutType()),
				KernelSize: layer.KernelSize(),
				Stride:     layer.Stride(),
				Padding:    layer.Padding(),
				Bias:       layer.BiasTerms() != nil,
				Coeffs:     encodeFloats(layer.Coefficients().Data),
			}
			if b := layer.BiasTerms(); b != nil {
				entry.BiasData = encodeFloats(b)
			}
			file.Layers = append(file.Layers, entry)
		case *ReLU:
			file.Layers = append(file.Layers, savedLayer{Type: "relu"})
		default:
			return fmt.Errorf("%w: cannot serialize %T at layer %d", ErrUnknownLayerType, l, i)
		}
	}

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// LoadModel reads a model saved by SaveModel and rebuilds it, including a
// fresh group space and field types.
func LoadModel(path string) (*Sequential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var file savedModel
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if file.Format != modelFormat {
		return nil, fmt.Errorf("%w: format %q, want %q", ErrConfiguration, file.Format, modelFormat)
	}

	sp, err := group.Rot2D(file.Order)
	if err != nil {
		return nil, err
	}
	cur, err := typeFromKinds(sp, file.Input)
	if err != nil {
		return nil, fmt.Errorf("input type: %w", err)
	}

	layers := make([]Layer, 0, len(file.Layers))
	for i, entry := range file.Layers {
		switch entry.Type {
		case "r2conv":
			out, err := typeFromKinds(sp, entry.Out)
			if err != nil {
				return nil, fmt.Errorf("layer %d: %w", i, err)
			}
			conv, err := NewR2Conv(cur, out, entry.KernelSize, ConvConfig{
				Stride:  entry.Stride,
				Padding: entry.Padding,
				Bias:    entry.Bias,
			})
			if err != nil {
				return nil, fmt.Errorf("layer %d: %w", i, err)
			}
			coeffs, err := decodeFloats(entry.Coeffs)
			if err != nil {
				return nil, fmt.Errorf("layer %d coefficients: %w", i, err)
			}
			if err := conv.SetCoefficients(coeffs); err != nil {
				return nil, fmt.Errorf("layer %d: %w", i, err)
			}
			if entry.Bias {
				b, err := decodeFloats(entry.BiasData)
				if err != nil {
					return nil, fmt.Errorf("layer %d bias: %w", i, err)
				}
				if err := conv.SetBias(b); err != nil {
					return nil, fmt.Errorf("layer %d: %w", i, err)
				}
			}
			layers = append(layers, conv)
			cur = out
		case "relu":
			relu, err := NewReLU(cur)
			if err != nil {
				return nil, fmt.Errorf("layer %d: %w", i, err)
			}
			layers = append(layers, relu)
		default:
			return nil, fmt.Errorf("%w: %q at layer %d", ErrUnknownLayerType, entry.Type, i)
		}
	}
	return NewSequential(layers...)
}

func kindNames(ft *group.FieldType) []string {
	names := make([]string, 0, len(ft.Blocks()))
	for _, blk := range ft.Blocks() {
		names = append(names, blk.Repr.Kind().String())
	}
	return names
}

func typeFromKinds(sp *group.Space, names []string) (*group.FieldType, error) {
	reprs := make([]*group.Representation, 0, len(names))
	for _, name := range names {
		switch name {
		case group.Trivial.String():
			reprs = append(reprs, sp.TrivialRepr())
		case group.Regular.String():
			reprs = append(reprs, sp.RegularRepr())
		default:
			return nil, fmt.Errorf("%w: representation kind %q", ErrConfiguration, name)
		}
	}
	return group.NewFieldType(sp, reprs)
}

func encodeFloats(v []float32) string {
	raw := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func decodeFloats(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: weight payload length %d", ErrConfiguration, len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}
