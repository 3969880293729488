package gpu

import (
	"errors"
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// ErrInvalidSpec reports a convolution spec whose dimensions or payloads do
// not line up.
var ErrInvalidSpec = errors.New("gpu: invalid convolution spec")

// ConvSpec describes one batched 2D cross-correlation with a fully
// materialized kernel. Equivariant layers expand their steerable
// coefficients into Weights before handing the work over, so the shader
// itself is ordinary convolution.
type ConvSpec struct {
	Batch       int
	InChannels  int
	OutChannels int
	InputHeight int
	InputWidth  int
	KernelSize  int
	Stride      int
	Padding     int

	Weights []float32 // [OutChannels * InChannels * KernelSize * KernelSize]
	Bias    []float32 // [OutChannels], nil for no bias
}

// OutputSize returns the spatial output extent.
func (s ConvSpec) OutputSize() (int, int) {
	stride := max(s.Stride, 1)
	h := (s.InputHeight+2*s.Padding-s.KernelSize)/stride + 1
	w := (s.InputWidth+2*s.Padding-s.KernelSize)/stride + 1
	return h, w
}

func (s ConvSpec) validate(inputLen int) error {
	if s.Batch < 1 || s.InChannels < 1 || s.OutChannels < 1 || s.KernelSize < 1 {
		return fmt.Errorf("%w: non-positive dimension", ErrInvalidSpec)
	}
	if s.Padding < 0 || s.Stride < 0 {
		return fmt.Errorf("%w: negative stride or padding", ErrInvalidSpec)
	}
	outH, outW := s.OutputSize()
	if outH < 1 || outW < 1 {
		return fmt.Errorf("%w: kernel %d does not fit input %dx%d with padding %d",
			ErrInvalidSpec, s.KernelSize, s.InputHeight, s.InputWidth, s.Padding)
	}
	if want := s.OutChannels * s.InChannels * s.KernelSize * s.KernelSize; len(s.Weights) != want {
		return fmt.Errorf("%w: %d weights, want %d", ErrInvalidSpec, len(s.Weights), want)
	}
	if s.Bias != nil && len(s.Bias) != s.OutChannels {
		return fmt.Errorf("%w: %d bias terms for %d output channels", ErrInvalidSpec, len(s.Bias), s.OutChannels)
	}
	if want := s.Batch * s.InChannels * s.InputHeight * s.InputWidth; inputLen != want {
		return fmt.Errorf("%w: input length %d, want %d", ErrInvalidSpec, inputLen, want)
	}
	return nil
}

// shader generates WGSL with the spec baked in as constants, one invocation
// per output element over [batch, channels, height, width] layout.
func (s ConvSpec) shader() string {
	outH, outW := s.OutputSize()
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> input : array<f32>;
		@group(0) @binding(1) var<storage, read> weights : array<f32>;
		@group(0) @binding(2) var<storage, read> bias : array<f32>;
		@group(0) @binding(3) var<storage, read_write> output : array<f32>;

		const BATCH: u32 = %du;
		const IN_CH: u32 = %du;
		const OUT_CH: u32 = %du;
		const IN_H: u32 = %du;
		const IN_W: u32 = %du;
		const K: u32 = %du;
		const STRIDE: u32 = %du;
		const PADDING: u32 = %du;
		const OUT_H: u32 = %du;
		const OUT_W: u32 = %du;

		@compute @workgroup_size(256)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let idx = gid.x;
			let total = BATCH * OUT_CH * OUT_H * OUT_W;
			if (idx >= total) { return; }

			let out_w = idx %% OUT_W;
			let out_h = (idx / OUT_W) %% OUT_H;
			let out_c = (idx / (OUT_W * OUT_H)) %% OUT_CH;
			let b = idx / (OUT_W * OUT_H * OUT_CH);

			var sum: f32 = bias[out_c];

			for (var kh: u32 = 0u; kh < K; kh++) {
				let in_h_signed = i32(out_h * STRIDE + kh) - i32(PADDING);
				if (in_h_signed < 0 || u32(in_h_signed) >= IN_H) { continue; }
				let in_h = u32(in_h_signed);
				for (var kw: u32 = 0u; kw < K; kw++) {
					let in_w_signed = i32(out_w * STRIDE + kw) - i32(PADDING);
					if (in_w_signed < 0 || u32(in_w_signed) >= IN_W) { continue; }
					let in_w = u32(in_w_signed);
					for (var in_c: u32 = 0u; in_c < IN_CH; in_c++) {
						let i_idx = ((b * IN_CH + in_c) * IN_H + in_h) * IN_W + in_w;
						let w_idx = ((out_c * IN_CH + in_c) * K + kh) * K + kw;
						sum += input[i_idx] * weights[w_idx];
					}
				}
			}

			output[idx] = sum;
		}
	`, s.Batch, s.InChannels, s.OutChannels, s.InputHeight, s.InputWidth,
		s.KernelSize, max(s.Stride, 1), s.Padding, outH, outW)
}

// Correlate runs the cross-correlation on the GPU and returns the output in
// [batch, channels, height, width] order. All device resources are created
// and released within the call.
func Correlate(spec ConvSpec, input []float32) ([]float32, error) {
	if err := spec.validate(len(input)); err != nil {
		return nil, err
	}
	c, err := GetContext()
	if err != nil {
		return nil, err
	}

	outH, outW := spec.OutputSize()
	outputSize := spec.Batch * spec.OutChannels * outH * outW

	inputBuf, err := NewFloatBuffer(input, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer inputBuf.Destroy()

	weightBuf, err := NewFloatBuffer(spec.Weights, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer weightBuf.Destroy()

	bias := spec.Bias
	if bias == nil {
		bias = make([]float32, spec.OutChannels)
	}
	biasBuf, err := NewFloatBuffer(bias, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer biasBuf.Destroy()

	outputBuf, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ConvOut",
		Size:  uint64(outputSize * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create output buffer: %v", err)
	}
	defer outputBuf.Destroy()

	module, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ConvShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: spec.shader()},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compile shader: %v", err)
	}
	defer module.Release()

	pipeline, err := c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "ConvPipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "main"},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create pipeline: %v", err)
	}
	defer pipeline.Release()

	bindGroup, err := c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ConvBind",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: inputBuf, Size: inputBuf.GetSize()},
			{Binding: 1, Buffer: weightBuf, Size: weightBuf.GetSize()},
			{Binding: 2, Buffer: biasBuf, Size: biasBuf.GetSize()},
			{Binding: 3, Buffer: outputBuf, Size: outputBuf.GetSize()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %v", err)
	}
	defer bindGroup.Release()

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %v", err)
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(uint32((outputSize+255)/256), 1, 1)
	pass.End()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: finish command: %v", err)
	}
	c.Queue.Submit(cmd)

	return ReadBuffer(outputBuf, outputSize)
}
