package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfluke/gyre/nn"
)

const describeFallback = `
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

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the layer and basis structure of a model",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, cfg, err := loadModel(describeFallback)
		if err != nil {
			return err
		}
		logger.Debug("model built",
			zap.Int("order", cfg.Order),
			zap.Int("layers", len(model.Layers())))

		fmt.Printf("group:  C%d\n", cfg.Order)
		fmt.Printf("input:  %s (%d channels)\n", model.InType(), model.InType().Size())
		fmt.Printf("output: %s (%d channels)\n", model.OutType(), model.OutType().Size())
		fmt.Println("layers:")
		params := 0
		for i, layer := range model.Layers() {
			switch l := layer.(type) {
			case *nn.R2Conv:
				n := l.Coefficients().Size() + len(l.BiasTerms())
				params += n
				fmt.Printf("  %2d  r2conv  %s -> %s  k=%d s=%d p=%d  basis=%d  params=%d\n",
					i, l.InType(), l.OutType(),
					l.KernelSize(), l.Stride(), l.Padding(), l.BasisSize(), n)
			case *nn.ReLU:
				fmt.Printf("  %2d  relu    %s\n", i, l.InType())
			default:
				fmt.Printf("  %2d  %T  %s -> %s\n", i, layer, layer.InType(), layer.OutType())
			}
		}
		fmt.Printf("trainable parameters: %d\n", params)
		return nil
	},
}
