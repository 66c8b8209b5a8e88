// internal/middleware/request_id.go
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	// RequestIDHeader is the metadata key (and HTTP header) for the request ID
	RequestIDHeader = "x-request-id"
)

// requestIDKey is the context key for storing the request ID
type requestIDKey struct{}

// UnaryRequestIDInterceptor extracts x-request-id from incoming metadata or generates
// a new UUID if not present. It injects the request ID into the context and adds it
// to outgoing metadata.
func UnaryRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := extractRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx = WithRequestID(ctx, requestID)

		// The header may already be sent; that is not worth failing the call over.
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		return handler(ctx, req)
	}
}

// GinRequestID does the same for HTTP: it reuses the X-Request-ID header or
// generates one, echoes it in the response and stores it in the request context.
func GinRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), requestID))
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// extractRequestID extracts the request ID from incoming metadata
func extractRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(RequestIDHeader)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// WithRequestID returns a copy of ctx carrying requestID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
