package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/emotion-service/internal/config"
	"github.com/SyedDaiam9101/emotion-service/internal/inference"
	"github.com/SyedDaiam9101/emotion-service/internal/logging"
)

const (
	serviceName = "emotion-service"
	// Version is the application version.
	Version = "1.0.0"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Facial emotion classification over gRPC and HTTP",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to config file (optional)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("model", "emotion.onnx", "Path to ONNX model file")
	pf.String("onnx-library", "", "Path to the onnxruntime shared library")
	pf.String("input-name", inference.DefaultInputName, "Model input tensor name")
	pf.String("output-name", inference.DefaultOutputName, "Model output tensor name")
	pf.Int("intra-op-threads", 0, "ONNX intra-op thread count (0 = runtime default)")
	pf.Bool("use-mock-inference", false, "Use mock inference engine (for testing)")

	root.AddCommand(newServeCmd(), newClassifyCmd())
	return root
}

// loadRuntime reads configuration and builds the logger shared by all commands.
func loadRuntime(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

// loadModel constructs the process-wide model handle.
func loadModel(cfg *config.Config, logger *zap.Logger) (inference.Model, error) {
	if cfg.UseMockInference {
		logger.Info("using mock inference engine")
		return inference.NewMock(), nil
	}

	logger.Info("loading ONNX model", zap.String("path", cfg.Model))
	model, err := inference.New(cfg.Model, inference.Options{
		SharedLibrary:  cfg.ONNXLibrary,
		InputName:      cfg.InputName,
		OutputName:     cfg.OutputName,
		IntraOpThreads: cfg.IntraOpThreads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ONNX model: %w", err)
	}
	logger.Info("ONNX model loaded successfully")
	return model, nil
}
