// Package apperr holds the error taxonomy reported to websocket callers.
package apperr

import "errors"

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindCapacity     Kind = "capacity"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches on Code so wrapped copies of a sentinel still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

var (
	ErrRoomNotFound    = New(KindNotFound, "room_not_found", "room not found")
	ErrUnauthorized    = New(KindUnauthorized, "unauthorized", "not authorized")
	ErrRoomFull        = New(KindCapacity, "room_full", "room is full")
	ErrTooManyRooms    = New(KindCapacity, "too_many_rooms", "operator room limit reached")
	ErrRoundNotActive  = New(KindInvalidState, "round_not_active", "round is not active")
	ErrPoolExhausted   = New(KindInvalidState, "pool_exhausted", "all numbers have been drawn")
	ErrRoundInProgress = New(KindInvalidState, "round_in_progress", "round already in progress")
	ErrAlreadyInRoom   = New(KindValidation, "already_in_room", "connection already joined a room")
	ErrNameTaken       = New(KindValidation, "name_taken", "name already used in this room")
	ErrInternal        = New(KindInternal, "internal", "internal error")
)

// KindOf classifies any error; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Public returns err as an *Error safe to show to a client.
func Public(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal
}
