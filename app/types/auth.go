package types

import (
	"errors"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidEmail  = errors.New("invalid email")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// emptyPassword is checked without trimming: whitespace is a valid password.
func emptyPassword(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return true
		}
	}
	return false
}

func NewRegisterRequestFromContext(ctx echo.Context) (*RegisterRequest, error) {
	var body RegisterRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RegisterRequest) Validate() error {
	if blank(r.GetFirstName(), r.GetLastName(), r.GetEmail()) || emptyPassword(r.GetPassword()) {
		return ErrMissingFields
	}
	if !IsValidEmail(r.GetEmail()) {
		return ErrInvalidEmail
	}

	return nil
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *LoginRequest) Validate() error {
	if blank(r.GetEmail()) || emptyPassword(r.GetPassword()) {
		return ErrMissingFields
	}

	return nil
}

func NewVerifyEmailRequestFromContext(ctx echo.Context) (*VerifyEmailRequest, error) {
	return &VerifyEmailRequest{Token: ctx.Param("token")}, nil
}

func (r *VerifyEmailRequest) Validate() error {
	if blank(r.GetToken()) {
		return ErrMissingFields
	}

	return nil
}

func NewRefreshTokenRequestFromContext(ctx echo.Context) (*RefreshTokenRequest, error) {
	var body RefreshTokenRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RefreshTokenRequest) Validate() error {
	if blank(r.GetRefreshToken()) {
		return ErrMissingFields
	}

	return nil
}

func NewRequestPasswordResetRequestFromContext(ctx echo.Context) (*RequestPasswordResetRequest, error) {
	var body RequestPasswordResetRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RequestPasswordResetRequest) Validate() error {
	if blank(r.GetEmail()) {
		return ErrMissingFields
	}
	if !IsValidEmail(r.GetEmail()) {
		return ErrInvalidEmail
	}

	return nil
}

// NewResetPasswordRequestFromContext reads the token from the path and the
// new password from the body.
func NewResetPasswordRequestFromContext(ctx echo.Context) (*ResetPasswordRequest, error) {
	var body ResetPasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Token = ctx.Param("token")

	return &body, nil
}

func (r *ResetPasswordRequest) Validate() error {
	if blank(r.GetToken()) || emptyPassword(r.GetPassword()) {
		return ErrMissingFields
	}

	return nil
}

func NewChangePasswordRequestFromContext(ctx echo.Context) (*ChangePasswordRequest, error) {
	var body ChangePasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ChangePasswordRequest) Validate() error {
	if emptyPassword(r.GetCurrentPassword(), r.GetNewPassword()) {
		return ErrMissingFields
	}

	return nil
}

func (r *ValidateTokenRequest) Validate() error {
	if blank(r.GetAccessToken()) {
		return ErrMissingFields
	}

	return nil
}
