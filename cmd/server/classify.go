package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/SyedDaiam9101/emotion-service/internal/emotion"
	"github.com/SyedDaiam9101/emotion-service/internal/handler"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <image>",
		Short: "Classify a face image locally, or against a running server with --addr",
		Args:  cobra.ExactArgs(1),
		RunE:  runClassify,
	}
	cmd.Flags().String("addr", "", "gRPC address of a running server (default: run locally)")
	cmd.Flags().Duration("timeout", 10*time.Second, "Remote call timeout")
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr != "" {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return classifyRemote(cmd, addr, timeout, data)
	}

	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	model, err := loadModel(cfg, logger)
	if err != nil {
		return err
	}
	defer model.Close()

	label, err := emotion.NewPredictor(model, emotion.WithLogger(logger)).Predict(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("%s: %w", emotion.CodeOf(err), err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), label)
	return nil
}

func classifyRemote(cmd *cobra.Command, addr string, timeout time.Duration, data []byte) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := handler.NewEmotionClient(conn).GetEmotion(ctx, wrapperspb.Bytes(data))
	if err != nil {
		if reason := handler.ReasonOf(err); reason != "" {
			return fmt.Errorf("%s: %w", reason, err)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.GetValue())
	return nil
}
