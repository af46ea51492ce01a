package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies an error for translation at the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAlreadyConsumed
	KindDuplicateName
	KindDuplicateKey
	KindMissingCredential
	KindInvalidCredential
	KindIPNotAllowed
	KindForbidden
	KindDependencyUnavailable
	KindRateLimited
)

// Sentinel errors. Match with errors.Is; any *Error of the same Kind matches.
var (
	ErrValidation            = New(KindValidation, "invalid request")
	ErrNotFound              = New(KindNotFound, "not found")
	ErrAlreadyConsumed       = New(KindAlreadyConsumed, "card already used")
	ErrDuplicateName         = New(KindDuplicateName, "a platform with this name already exists")
	ErrDuplicateKey          = New(KindDuplicateKey, "duplicate key")
	ErrMissingCredential     = New(KindMissingCredential, "API key not provided")
	ErrInvalidCredential     = New(KindInvalidCredential, "invalid API key or inactive platform")
	ErrIPNotAllowed          = New(KindIPNotAllowed, "access not allowed from this IP")
	ErrForbidden             = New(KindForbidden, "access denied")
	ErrDependencyUnavailable = New(KindDependencyUnavailable, "dependency unavailable")
	ErrRateLimited           = New(KindRateLimited, "rate limit exceeded")
)

// Error is an application error with a message that is safe to return to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind that keeps err as its cause.
// The cause is logged server-side but never exposed through Message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// PublicMessage returns the message to show a caller. Internal faults get a
// generic message.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal server error"
}

// HTTPStatus maps err to a status code. NotFound maps to 400 here; routes that
// report missing entities as 404 override it.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindAlreadyConsumed, KindDuplicateName, KindDuplicateKey:
		return http.StatusBadRequest
	case KindMissingCredential, KindInvalidCredential:
		return http.StatusUnauthorized
	case KindIPNotAllowed, KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
