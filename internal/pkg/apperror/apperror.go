package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error for the request boundary.
type Kind string

const (
	KindUnauthenticated     Kind = "unauthenticated"
	KindAuthorizationDenied Kind = "authorization_denied"
	KindEntitlementDenied   Kind = "entitlement_denied"
	KindSelfActionForbidden Kind = "self_action_forbidden"
	KindInvalidTransition   Kind = "invalid_transition"
	KindNotFound            Kind = "not_found"
	KindUnknownFeature      Kind = "unknown_feature"
	KindValidation          Kind = "validation"
	KindRecordingFailed     Kind = "recording_failed"
	KindPersistenceFailure  Kind = "persistence_failure"
)

// Error is the typed error carried through the core. Details are safe to show
// to the caller unless the kind is internal.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated}
	ErrAuthorizationDenied = &Error{Kind: KindAuthorizationDenied}
	ErrEntitlementDenied   = &Error{Kind: KindEntitlementDenied}
	ErrSelfActionForbidden = &Error{Kind: KindSelfActionForbidden}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUnknownFeature      = &Error{Kind: KindUnknownFeature}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrRecordingFailed     = &Error{Kind: KindRecordingFailed}
	ErrPersistenceFailure  = &Error{Kind: KindPersistenceFailure}
)

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// With attaches a caller-visible detail and returns the error.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can compare against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err. Errors that were never classified are
// treated as persistence failures because they come from below the core.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistenceFailure
}

// IsInternal reports whether a kind must be hidden from the caller.
func IsInternal(kind Kind) bool {
	return kind == KindRecordingFailed || kind == KindPersistenceFailure
}

// HTTPStatus maps a kind to the response status used by the route layer.
func HTTPStatus(kind Kind) int {
	switch kind {
	case "":
		return fiber.StatusOK
	case KindUnauthenticated:
		return fiber.StatusUnauthorized
	case KindAuthorizationDenied, KindEntitlementDenied, KindSelfActionForbidden:
		return fiber.StatusForbidden
	case KindValidation, KindUnknownFeature:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInvalidTransition:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
