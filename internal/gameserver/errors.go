package gameserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

// toStatus maps the engine's error taxonomy onto gRPC status codes.
//
// Postcondition: Returns nil for nil; otherwise a status error whose message is err's text.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, gameerr.ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, gameerr.ErrAuthorization):
		return codes.PermissionDenied
	case errors.Is(err, gameerr.ErrInsufficientResource):
		return codes.ResourceExhausted
	case errors.Is(err, gameerr.ErrState):
		return codes.FailedPrecondition
	case errors.Is(err, gameerr.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, gameerr.ErrPersistence):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// FromStatus maps a status error from the Arena service back onto the
// gameerr sentinels so clients can branch with errors.Is.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.InvalidArgument:
		sentinel = gameerr.ErrValidation
	case codes.PermissionDenied:
		sentinel = gameerr.ErrAuthorization
	case codes.ResourceExhausted:
		sentinel = gameerr.ErrInsufficientResource
	case codes.FailedPrecondition:
		sentinel = gameerr.ErrState
	case codes.NotFound:
		sentinel = gameerr.ErrNotFound
	case codes.Unavailable:
		sentinel = gameerr.ErrPersistence
	default:
		return err
	}
	return &remoteError{sentinel: sentinel, msg: st.Message()}
}

type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.sentinel }
