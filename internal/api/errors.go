package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/drv/internal/failure"
)

var errSignedOut = grpcstatus.Error(codes.Unauthenticated, "not signed in")

// toStatus maps an engine failure to a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return grpcstatus.Error(codes.Canceled, err.Error())
	}
	switch failure.KindOf(err) {
	case failure.Rejected:
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case failure.Invalid:
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	default:
		return grpcstatus.Error(codes.Unavailable, err.Error())
	}
}
