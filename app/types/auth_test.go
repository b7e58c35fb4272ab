package types

import (
	"errors"
	"testing"
)

func TestRegisterRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"valid", RegisterRequest{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "secret1"}, nil},
		{"whitespace password", RegisterRequest{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: "      "}, nil},
		{"empty password", RegisterRequest{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}, ErrMissingFields},
		{"blank first name", RegisterRequest{FirstName: "  ", LastName: "Doe", Email: "jane@example.com", Password: "secret1"}, ErrMissingFields},
		{"blank email", RegisterRequest{FirstName: "Jane", LastName: "Doe", Email: " ", Password: "secret1"}, ErrMissingFields},
		{"invalid email", RegisterRequest{FirstName: "Jane", LastName: "Doe", Email: "jane", Password: "secret1"}, ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPasswordFieldsAreNotTrimmed(t *testing.T) {
	spaces := "      "

	if err := (&LoginRequest{Email: "jane@example.com", Password: spaces}).Validate(); err != nil {
		t.Errorf("login: unexpected error %v", err)
	}
	if err := (&ResetPasswordRequest{Token: "tok", Password: spaces}).Validate(); err != nil {
		t.Errorf("reset: unexpected error %v", err)
	}
	if err := (&ChangePasswordRequest{CurrentPassword: spaces, NewPassword: spaces}).Validate(); err != nil {
		t.Errorf("change: unexpected error %v", err)
	}

	if err := (&ResetPasswordRequest{Token: " ", Password: "secret1"}).Validate(); !errors.Is(err, ErrMissingFields) {
		t.Errorf("reset with blank token: got %v", err)
	}
	if err := (&ChangePasswordRequest{CurrentPassword: "secret1"}).Validate(); !errors.Is(err, ErrMissingFields) {
		t.Errorf("change without new password: got %v", err)
	}
}
