package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/condfield/internal/types"
)

// Error mapping:
// Missing fields map to NOT_FOUND.
// Malformed requests and rejected configurations map to INVALID_ARGUMENT.
// Context timeouts map to DEADLINE_EXCEEDED.
// Store failures map to UNAVAILABLE.
// Auth errors are mapped in the auth package interceptor.

var invalidArgument = []error{
	types.ErrEmptyFieldID,
	types.ErrFieldIDTooLong,
	types.ErrNotConditional,
	types.ErrMalformedConditions,
	types.ErrSnapshotTooLarge,
	types.ErrPathTooDeep,
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, types.ErrFieldNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}
	return status.Error(codes.Unavailable, err.Error())
}
