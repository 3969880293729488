// Command gyre inspects and exercises rotation equivariant convolution
// models: describe prints a model's layer and basis structure, verify
// measures its equivariance error, bench times forward passes on CPU and
// optionally GPU.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openfluke/gyre/nn"
)

var (
	logger  *zap.Logger
	verbose bool
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:           "gyre",
	Short:         "Work with rotation equivariant convolution models",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadModel builds the model from --config, or from the given fallback YAML
// when no config file was passed.
func loadModel(fallback string) (*nn.Sequential, *nn.ModelConfig, error) {
	var (
		cfg *nn.ModelConfig
		err error
	)
	if cfgPath != "" {
		cfg, err = nn.LoadModelConfig(cfgPath)
	} else {
		logger.Debug("no config given, using built-in model")
		cfg, err = nn.ParseModelConfig([]byte(fallback))
	}
	if err != nil {
		return nil, nil, err
	}
	model, err := nn.BuildModel(cfg)
	if err != nil {
		return nil, nil, err
	}
	return model, cfg, nil
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML model config path")
	rootCmd.AddCommand(describeCmd, verifyCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
