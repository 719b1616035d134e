package oc

import (
	"context"
	"errors"

	"github.com/containerd/errdefs"
	"go.opencensus.io/trace"
)

// toStatusCode maps an error to a span status code based on the errdefs
// class it wraps, so callers classify errors once and tracing picks the
// classification up for free.
func toStatusCode(err error) uint32 {
	switch {
	case checkErrors(err, context.Canceled):
		return trace.StatusCodeCancelled
	case checkErrors(err, errdefs.ErrInvalidArgument):
		return trace.StatusCodeInvalidArgument
	case checkErrors(err, context.DeadlineExceeded):
		return trace.StatusCodeDeadlineExceeded
	case checkErrors(err, errdefs.ErrNotFound):
		return trace.StatusCodeNotFound
	case checkErrors(err, errdefs.ErrAlreadyExists):
		return trace.StatusCodeAlreadyExists
	case checkErrors(err, errdefs.ErrPermissionDenied):
		return trace.StatusCodePermissionDenied
	case checkErrors(err, errdefs.ErrResourceExhausted):
		return trace.StatusCodeResourceExhausted
	case checkErrors(err, errdefs.ErrFailedPrecondition):
		return trace.StatusCodeFailedPrecondition
	case checkErrors(err, errdefs.ErrAborted):
		return trace.StatusCodeAborted
	case checkErrors(err, errdefs.ErrOutOfRange):
		return trace.StatusCodeOutOfRange
	case checkErrors(err, errdefs.ErrNotImplemented):
		return trace.StatusCodeUnimplemented
	case checkErrors(err, errdefs.ErrInternal):
		return trace.StatusCodeInternal
	case checkErrors(err, errdefs.ErrUnavailable):
		return trace.StatusCodeUnavailable
	case checkErrors(err, errdefs.ErrDataLoss):
		return trace.StatusCodeDataLoss
	case checkErrors(err, errdefs.ErrUnauthenticated):
		return trace.StatusCodeUnauthenticated
	default:
		return trace.StatusCodeUnknown
	}
}

func checkErrors(err error, errs ...error) bool {
	for _, e := range errs {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}
