package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorDomain tags ErrorInfo details attached to rejected calls.
const errorDomain = "stratego.online"

// errInvalidRequest marks malformed request payloads.
var errInvalidRequest = errors.New("invalid request")

// errorCode maps an engine error onto a gRPC code.
func errorCode(err error) codes.Code {
	if _, ok := rules.ReasonOf(err); ok {
		return codes.FailedPrecondition
	}
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return codes.NotFound
	case errors.Is(err, game.ErrNotParticipant):
		return codes.PermissionDenied
	case errors.Is(err, game.ErrGameFull),
		errors.Is(err, game.ErrOwnGame),
		errors.Is(err, game.ErrAIGame):
		return codes.FailedPrecondition
	case errors.Is(err, game.ErrInvalidPlayer),
		errors.Is(err, ai.ErrUnknownDifficulty),
		errors.Is(err, errInvalidRequest):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// errorReason returns the machine-readable code reported to clients.
func errorReason(err error) string {
	if reason, ok := rules.ReasonOf(err); ok {
		return string(reason)
	}
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return "GAME_NOT_FOUND"
	case errors.Is(err, game.ErrNotParticipant):
		return "NOT_PARTICIPANT"
	case errors.Is(err, game.ErrGameFull):
		return "GAME_NOT_JOINABLE"
	case errors.Is(err, game.ErrOwnGame):
		return "OWN_GAME"
	case errors.Is(err, game.ErrAIGame):
		return "AI_GAME"
	case errors.Is(err, game.ErrInvalidPlayer):
		return "INVALID_PLAYER"
	case errors.Is(err, ai.ErrUnknownDifficulty):
		return "UNKNOWN_DIFFICULTY"
	case errors.Is(err, errInvalidRequest):
		return "INVALID_REQUEST"
	default:
		return "INTERNAL"
	}
}

// toStatus converts an engine error into a gRPC status carrying an ErrorInfo detail.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := errorCode(err)
	msg := err.Error()
	if code == codes.Internal {
		msg = "internal error"
	}
	st := status.New(code, msg)
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: errorReason(err),
		Domain: errorDomain,
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// httpStatus maps an engine error onto an HTTP status code.
func httpStatus(err error) int {
	switch errorCode(err) {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{errInvalidRequest}, args...)...)
}
