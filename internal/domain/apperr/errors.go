// Package apperr defines the failure kinds shared by the identity core and the
// transports that expose it.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Each kind maps to one stable transport status.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindInvalidCredentials
	KindStoreUnavailable
	KindUpstream
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindUpstream:
		return "upstream"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified failure. Message is safe to show to callers; Err is the
// internal cause and is only meant for logs.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind. A target that carries a Message only matches errors with the same message,
// so ErrTokenInvalid is also ErrUnauthenticated but not the other way round.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

var (
	ErrInternal           = &Error{Kind: KindInternal}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrStoreUnavailable   = &Error{Kind: KindStoreUnavailable}

	ErrLoginRequired   = &Error{Kind: KindUnauthenticated, Message: "you need to login"}
	ErrTokenInvalid    = &Error{Kind: KindUnauthenticated, Message: "token is not valid"}
	ErrEmailInUse      = &Error{Kind: KindConflict, Message: "email already in use"}
	ErrUsernameInUse   = &Error{Kind: KindConflict, Message: "username already in use"}
	ErrAccountNotFound = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrAdminRequired   = &Error{Kind: KindForbidden, Message: "admin access required"}
	ErrNotAccountOwner = &Error{Kind: KindForbidden, Message: "you can only modify your own account"}
	ErrUploadFailed    = &Error{Kind: KindUpstream, Message: "upload failed"}
	ErrMediaDisabled   = &Error{Kind: KindUnavailable, Message: "media uploads are not configured"}
)

// Validation reports malformed input on field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// StoreUnavailable wraps a collaborator failure.
func StoreUnavailable(err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: "store unavailable", Err: err}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
