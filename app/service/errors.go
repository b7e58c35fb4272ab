package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindService Kind = iota
	KindValidation
	KindAuth
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	default:
		return "service"
	}
}

// Error is the only error type UserAuthService returns. Message is safe to
// show to clients; Err holds the internal cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	sentinel *Error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether e was derived from the sentinel target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.root() == t
}

func (e *Error) root() *Error {
	if e.sentinel != nil {
		return e.sentinel
	}
	return e
}

func (e *Error) wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: cause, sentinel: e.root()}
}

func (e *Error) withMessagef(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Message: fmt.Sprintf(format, args...), sentinel: e.root()}
}

var (
	ErrMissingFields        = &Error{Kind: KindValidation, Message: "Please provide all required fields"}
	ErrInvalidEmail         = &Error{Kind: KindValidation, Message: "Please provide a valid email"}
	ErrPasswordTooShort     = &Error{Kind: KindValidation, Message: "Password is too short"}
	ErrUserExists           = &Error{Kind: KindValidation, Message: "User already exists"}
	ErrInvalidVerification  = &Error{Kind: KindValidation, Message: "Invalid or expired verification token"}
	ErrEmailAlreadyVerified = &Error{Kind: KindValidation, Message: "Email is already verified"}
	ErrInvalidResetToken    = &Error{Kind: KindValidation, Message: "Invalid or expired reset token"}
	ErrInvalidCredentials   = &Error{Kind: KindAuth, Message: "Invalid credentials"}
	ErrEmailNotVerified     = &Error{Kind: KindAuth, Message: "Please verify your email first"}
	ErrInvalidRefreshToken  = &Error{Kind: KindAuth, Message: "Invalid refresh token"}
	ErrInvalidAccessToken   = &Error{Kind: KindAuth, Message: "Not authorized"}
	ErrIncorrectPassword    = &Error{Kind: KindAuth, Message: "Current password is incorrect"}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrEmailDelivery        = &Error{Kind: KindService, Message: "Email could not be sent"}
	ErrInternal             = &Error{Kind: KindService, Message: "Something went wrong"}
)

// KindOf reports the kind of err. Anything that is not an *Error is a
// service failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindService
}

// PublicMessage returns the message a client may see for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}

func internal(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrInternal.wrap(err)
}
