package main

import (
	"encoding/json"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfluke/gyre/gpu"
	"github.com/openfluke/gyre/nn"
	"github.com/openfluke/gyre/tensor"
)

const benchFallback = `
order: 8
input:
  trivial: 3
layers:
  - type: r2conv
    out:
      regular: 10
    kernel_size: 5
  - type: relu
`

var (
	benchBatch int
	benchSize  int
	benchIters int
	benchGPU   bool
	benchOut   string
)

type layerTiming struct {
	Index       int     `json:"index"`
	InChannels  int     `json:"in_channels"`
	OutChannels int     `json:"out_channels"`
	KernelSize  int     `json:"kernel_size"`
	AvgMillis   float64 `json:"avg_ms"`
}

type benchReport struct {
	RunID        string        `json:"run_id"`
	Timestamp    time.Time     `json:"timestamp"`
	Config       string        `json:"config"`
	Order        int           `json:"order"`
	Batch        int           `json:"batch"`
	Size         int           `json:"size"`
	Iterations   int           `json:"iterations"`
	AvgForwardMS float64       `json:"avg_forward_ms"`
	ImagesPerSec float64       `json:"images_per_sec"`
	GPUAdapter   string        `json:"gpu_adapter,omitempty"`
	GPULayers    []layerTiming `json:"gpu_layers,omitempty"`
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time forward passes and emit a JSON report",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, cfg, err := loadModel(benchFallback)
		if err != nil {
			return err
		}

		report := benchReport{
			RunID:      uuid.NewString(),
			Timestamp:  time.Now().UTC(),
			Config:     cfgPath,
			Order:      cfg.Order,
			Batch:      benchBatch,
			Size:       benchSize,
			Iterations: benchIters,
		}
		if report.Config == "" {
			report.Config = "builtin"
		}
		logger.Debug("bench starting", zap.String("run_id", report.RunID))

		field := nn.NewRandomField(model.InType(), benchBatch, benchSize, benchSize, 1)
		if _, err := model.Forward(field); err != nil {
			return err
		}
		start := time.Now()
		for i := 0; i < benchIters; i++ {
			if _, err := model.Forward(field); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)
		report.AvgForwardMS = float64(elapsed.Microseconds()) / 1000 / float64(benchIters)
		report.ImagesPerSec = float64(benchBatch*benchIters) / elapsed.Seconds()

		if benchGPU {
			if err := benchGPULayers(model, &report); err != nil {
				return err
			}
		}

		raw, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		raw = append(raw, '\n')
		if benchOut == "" {
			_, err = os.Stdout.Write(raw)
			return err
		}
		if err := os.WriteFile(benchOut, raw, 0o644); err != nil {
			return err
		}
		logger.Info("report written", zap.String("path", benchOut))
		return nil
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchBatch, "batch", 8, "batch size")
	benchCmd.Flags().IntVar(&benchSize, "size", 32, "spatial extent of the input")
	benchCmd.Flags().IntVar(&benchIters, "iters", 10, "timed iterations")
	benchCmd.Flags().BoolVar(&benchGPU, "gpu", false, "also time each conv layer on the GPU")
	benchCmd.Flags().StringVarP(&benchOut, "out", "o", "", "write the JSON report to a file")
}

// benchGPULayers times every convolution layer of the model individually on
// the WebGPU shader, feeding each one random data of the shape it would see
// inside the model.
func benchGPULayers(model *nn.Sequential, report *benchReport) error {
	if err := gpu.EnsureGPU(); err != nil {
		return err
	}
	ctx, err := gpu.GetContext()
	if err != nil {
		return err
	}
	report.GPUAdapter = ctx.AdapterLabel()

	rng := rand.New(rand.NewSource(2))
	size := benchSize
	for i, layer := range model.Layers() {
		conv, ok := layer.(*nn.R2Conv)
		if !ok {
			continue
		}
		kernel, err := conv.ExpandedKernel()
		if err != nil {
			return err
		}
		spec := gpu.ConvSpec{
			Batch:       benchBatch,
			InChannels:  conv.InType().Size(),
			OutChannels: conv.OutType().Size(),
			InputHeight: size,
			InputWidth:  size,
			KernelSize:  conv.KernelSize(),
			Stride:      conv.Stride(),
			Padding:     conv.Padding(),
			Weights:     kernel.Data,
			Bias:        conv.ChannelBias(),
		}
		input := make([]float32, benchBatch*spec.InChannels*size*size)
		for j := range input {
			input[j] = rng.Float32()*2 - 1
		}
		if _, err := gpu.Correlate(spec, input); err != nil {
			return err
		}
		start := time.Now()
		for it := 0; it < benchIters; it++ {
			if _, err := gpu.Correlate(spec, input); err != nil {
				return err
			}
		}
		avg := float64(time.Since(start).Microseconds()) / 1000 / float64(benchIters)
		report.GPULayers = append(report.GPULayers, layerTiming{
			Index:       i,
			InChannels:  spec.InChannels,
			OutChannels: spec.OutChannels,
			KernelSize:  conv.KernelSize(),
			AvgMillis:   avg,
		})
		size = tensor.ConvOutputSize(size, conv.KernelSize(), conv.Stride(), conv.Padding())
	}
	return nil
}
