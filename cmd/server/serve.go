package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/SyedDaiam9101/emotion-service/internal/cache"
	"github.com/SyedDaiam9101/emotion-service/internal/emotion"
	"github.com/SyedDaiam9101/emotion-service/internal/handler"
	"github.com/SyedDaiam9101/emotion-service/internal/httpapi"
	"github.com/SyedDaiam9101/emotion-service/internal/metrics"
	"github.com/SyedDaiam9101/emotion-service/internal/middleware"
	"github.com/SyedDaiam9101/emotion-service/internal/tracing"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and HTTP servers",
		RunE:  runServe,
	}

	f := cmd.Flags()
	f.Int("port", 50051, "gRPC server port")
	f.Int("http-port", 8080, "HTTP API, metrics and health port")
	f.String("redis", "", "Redis address for the label cache (empty disables caching)")
	f.Duration("cache-ttl", 10*time.Minute, "Label cache TTL")
	f.Bool("otel-enabled", false, "Enable OpenTelemetry tracing")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting service",
		zap.String("service", serviceName),
		zap.Int("port", cfg.Port),
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("model", cfg.Model),
		zap.String("redis", cfg.Redis),
		zap.Bool("otel", cfg.OTELEnabled))

	// Initialize OpenTelemetry tracer
	var tracerShutdown func(context.Context) error
	if cfg.OTELEnabled {
		tracerShutdown, err = tracing.Init(serviceName, Version, nil)
		if err != nil {
			logger.Warn("failed to initialize tracer", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracing enabled", zap.String("exporter", "stdout"))
		}
	}

	// The model is loaded once; without it the process cannot serve.
	model, err := loadModel(cfg, logger)
	if err != nil {
		logger.Fatal("model load failed", zap.Error(err))
	}
	defer model.Close()

	opts := []emotion.Option{emotion.WithLogger(logger)}
	if cfg.Redis != "" {
		logger.Info("connecting to Redis", zap.String("addr", cfg.Redis))
		cacheClient, err := cache.New(cfg.Redis, cfg.CacheTTL)
		if err != nil {
			logger.Warn("failed to connect to Redis, continuing without cache", zap.Error(err))
		} else {
			defer cacheClient.Close()
			opts = append(opts, emotion.WithCache(cacheClient))
			logger.Info("Redis connected successfully")
		}
	}

	predictor := emotion.NewPredictor(model, opts...)

	healthServer := health.NewServer()
	healthy := func(ctx context.Context) bool {
		resp, err := healthServer.Check(ctx, &healthpb.HealthCheckRequest{})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpapi.NewRouter(predictor, healthy, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			middleware.UnaryRequestIDInterceptor(),
			middleware.UnaryMetricsInterceptor(),
		),
	}
	if cfg.OTELEnabled {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	grpcServer := grpc.NewServer(serverOpts...)

	handler.RegisterEmotionServer(grpcServer, handler.New(predictor, logger))
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	addr := fmt.Sprintf(":%d", cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	healthServer.SetServingStatus(handler.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	metrics.SetHealthy()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// done is closed once every in-flight HTTP and gRPC request has drained,
	// so the deferred model.Close cannot race a running inference.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sig := <-sigChan
		logger.Info("shutting down gracefully", zap.String("signal", sig.String()))

		healthServer.SetServingStatus(handler.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		metrics.SetUnhealthy()

		// Give load balancers time to observe the unhealthy status
		time.Sleep(5 * time.Second)

		grpcServer.GracefulStop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)

		if tracerShutdown != nil {
			tracerShutdown(ctx)
		}
	}()

	logger.Info("gRPC server listening", zap.String("addr", addr))

	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	<-done

	logger.Info("server shutdown complete")
	return nil
}
