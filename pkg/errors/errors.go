package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error so callers can decide how to
// render it and whether the failed step may be retried.
type Kind string

const (
	KindInvalidDate         Kind = "invalid_date"
	KindInvalidSlot         Kind = "invalid_slot"
	KindSlotTaken           Kind = "slot_taken"
	KindInvalidTransition   Kind = "invalid_transition"
	KindForbiddenTransition Kind = "forbidden_transition"
	KindPersistence         Kind = "persistence"
	KindNotFound            Kind = "not_found"
	KindBadRequest          Kind = "bad_request"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindInternal            Kind = "internal"
)

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal if err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Retryable reports whether the error is transient. Only persistence
// failures qualify; business-rule violations are terminal.
func Retryable(err error) bool {
	return IsKind(err, KindPersistence)
}

// Error constructors
func InvalidDate(message string) *AppError {
	return &AppError{Kind: KindInvalidDate, Message: message}
}

func InvalidSlot(slot string) *AppError {
	return &AppError{
		Kind:    KindInvalidSlot,
		Message: fmt.Sprintf("slot %q is not bookable for this doctor on the requested date", slot),
	}
}

func SlotTaken(slot string) *AppError {
	return &AppError{
		Kind:    KindSlotTaken,
		Message: fmt.Sprintf("slot %q is already booked", slot),
	}
}

func InvalidTransition(state, action string) *AppError {
	return &AppError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("action %q is not permitted from state %q", action, state),
	}
}

// ConcurrentTransition reports that the appointment moved to another
// state between transition evaluation and the write.
func ConcurrentTransition(state string) *AppError {
	return &AppError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("appointment changed concurrently and is now in state %q", state),
	}
}

func ForbiddenTransition(action string) *AppError {
	return &AppError{
		Kind:    KindForbiddenTransition,
		Message: fmt.Sprintf("actor is not allowed to perform %q on this appointment", action),
	}
}

func Persistence(err error) *AppError {
	return &AppError{Kind: KindPersistence, Message: "storage operation failed", Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Kind: KindBadRequest, Message: message, Err: err}
}

func Unauthorized(err error) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: "unauthorized", Err: err}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: err}
}
