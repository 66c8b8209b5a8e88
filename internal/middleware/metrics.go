// internal/middleware/metrics.go
package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/SyedDaiam9101/emotion-service/internal/metrics"
)

// UnaryMetricsInterceptor records Prometheus histogram metrics for gRPC unary calls.
// It measures the duration of each call and records it with method and status code labels.
func UnaryMetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		duration := time.Since(start).Seconds()

		code := "OK"
		if err != nil {
			if st, ok := status.FromError(err); ok {
				code = st.Code().String()
			} else {
				code = "Unknown"
			}
		}

		metrics.RecordGRPCLatency(info.FullMethod, code, duration)

		return resp, err
	}
}

// GinMetrics records the HTTP latency histogram, labelled by route template.
func GinMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPLatency(route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
