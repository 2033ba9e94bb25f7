package game

import (
	"errors"
	"fmt"
)

// Kind classifies a failed action. Every kind except KindInternal is a
// caller-visible rejection.
type Kind string

const (
	KindUnauthorized       Kind = "unauthorized"
	KindInvalidPhase       Kind = "invalid_phase"
	KindNotYourTurn        Kind = "not_your_turn"
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindPreconditionFailed Kind = "precondition_failed"
	KindRoomGone           Kind = "room_gone"
	KindInternal           Kind = "internal"
)

// Error is the structured failure returned by every action.
type Error struct {
	Kind Kind
	Msg  string
	// Cause is only set for KindInternal.
	Cause error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func InvalidPhase(format string, args ...any) *Error {
	return newError(KindInvalidPhase, format, args...)
}

func NotYourTurn(format string, args ...any) *Error {
	return newError(KindNotYourTurn, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func PreconditionFailed(format string, args ...any) *Error {
	return newError(KindPreconditionFailed, format, args...)
}

func RoomGone(format string, args ...any) *Error {
	return newError(KindRoomGone, format, args...)
}

// Internal wraps an infrastructure failure behind a generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal error", Cause: cause}
}

// KindOf returns the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
