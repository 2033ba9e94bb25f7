// Package apierr turns action failures into what HTTP and WebSocket clients
// see.
package apierr

import (
	"errors"
	"net/http"

	"github.com/kstielfps/VATImposter/internal/game"
)

// Body is the error object sent to clients.
type Body struct {
	Kind    game.Kind `json:"kind"`
	Message string    `json:"message"`
}

// Envelope wraps Body for REST responses.
type Envelope struct {
	Error Body `json:"error"`
}

var statusByKind = map[game.Kind]int{
	game.KindUnauthorized:       http.StatusForbidden,
	game.KindInvalidPhase:       http.StatusConflict,
	game.KindNotYourTurn:        http.StatusConflict,
	game.KindValidation:         http.StatusBadRequest,
	game.KindNotFound:           http.StatusNotFound,
	game.KindConflict:           http.StatusConflict,
	game.KindPreconditionFailed: http.StatusPreconditionFailed,
	game.KindRoomGone:           http.StatusGone,
	game.KindInternal:           http.StatusInternalServerError,
}

// Status returns the HTTP status for err.
func Status(err error) int {
	if s, ok := statusByKind[game.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// From builds the client body. Internal causes are only exposed in debug
// mode.
func From(err error, debug bool) Body {
	kind := game.KindOf(err)
	var gerr *game.Error
	if !errors.As(err, &gerr) {
		gerr = game.Internal(err)
	}
	msg := gerr.Msg
	if kind == game.KindInternal && debug && gerr.Cause != nil {
		msg = gerr.Cause.Error()
	}
	return Body{Kind: kind, Message: msg}
}
