// internal/handler/errors.go
package handler

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/SyedDaiam9101/emotion-service/internal/emotion"
)

// ErrorDomain is the ErrorInfo domain attached to every failure.
const ErrorDomain = "emotion"

// grpcCode maps an emotion error code to a gRPC status code
func grpcCode(code emotion.Code) codes.Code {
	switch code {
	case emotion.CodeOK:
		return codes.OK
	case emotion.CodeInvalidArguments, emotion.CodeInvalidImage:
		return codes.InvalidArgument
	case emotion.CodeModelNotLoaded:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// grpcError maps pipeline errors to gRPC status errors carrying an ErrorInfo
// detail whose Reason is the stable emotion code.
func grpcError(err error) error {
	if err == nil {
		return nil
	}

	code := emotion.CodeOf(err)
	st := status.New(grpcCode(code), code.Message()+": "+err.Error())

	withDetails, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(code),
		Domain: ErrorDomain,
	})
	if detailErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}

// ReasonOf extracts the emotion code from a status error produced by this
// package, or "" if none is attached.
func ReasonOf(err error) emotion.Code {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return emotion.Code(info.GetReason())
		}
	}
	return ""
}
