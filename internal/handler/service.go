// internal/handler/service.go
package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "emotion.v1.Emotion"

// GetEmotionMethod is the full method path of the predict call.
const GetEmotionMethod = "/" + ServiceName + "/GetEmotion"

// EmotionServer is the server API for the emotion service.
// Requests carry the face bytes; responses carry the label.
type EmotionServer interface {
	GetEmotion(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
}

// RegisterEmotionServer registers srv on s.
func RegisterEmotionServer(s grpc.ServiceRegistrar, srv EmotionServer) {
	s.RegisterService(&emotionServiceDesc, srv)
}

func getEmotionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EmotionServer).GetEmotion(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetEmotionMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EmotionServer).GetEmotion(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var emotionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EmotionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetEmotion",
			Handler:    getEmotionHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "emotion/v1/emotion.proto",
}

// EmotionClient is the client API for the emotion service.
type EmotionClient interface {
	GetEmotion(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type emotionClient struct {
	cc grpc.ClientConnInterface
}

// NewEmotionClient creates a client bound to cc.
func NewEmotionClient(cc grpc.ClientConnInterface) EmotionClient {
	return &emotionClient{cc}
}

func (c *emotionClient) GetEmotion(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, GetEmotionMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
