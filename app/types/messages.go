package types

import "time"

// Request and response messages shared by the HTTP and gRPC surfaces.
// Getters are nil-safe so handlers can read optional messages directly.

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (r *RegisterRequest) GetFirstName() string {
	if r == nil {
		return ""
	}
	return r.FirstName
}

func (r *RegisterRequest) GetLastName() string {
	if r == nil {
		return ""
	}
	return r.LastName
}

func (r *RegisterRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

func (r *RegisterRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

func (r *LoginRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

func (r *VerifyEmailRequest) GetToken() string {
	if r == nil {
		return ""
	}
	return r.Token
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *RefreshTokenRequest) GetRefreshToken() string {
	if r == nil {
		return ""
	}
	return r.RefreshToken
}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

func (r *RequestPasswordResetRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r *ResetPasswordRequest) GetToken() string {
	if r == nil {
		return ""
	}
	return r.Token
}

func (r *ResetPasswordRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r *ChangePasswordRequest) GetCurrentPassword() string {
	if r == nil {
		return ""
	}
	return r.CurrentPassword
}

func (r *ChangePasswordRequest) GetNewPassword() string {
	if r == nil {
		return ""
	}
	return r.NewPassword
}

// ValidateTokenRequest is only served over gRPC.
type ValidateTokenRequest struct {
	AccessToken string `json:"accessToken"`
}

func (r *ValidateTokenRequest) GetAccessToken() string {
	if r == nil {
		return ""
	}
	return r.AccessToken
}

type Empty struct{}

type TokenResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (r *TokenResponse) GetToken() string {
	if r == nil {
		return ""
	}
	return r.Token
}

func (r *TokenResponse) GetRefreshToken() string {
	if r == nil {
		return ""
	}
	return r.RefreshToken
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (r *MessageResponse) GetMessage() string {
	if r == nil {
		return ""
	}
	return r.Message
}

type UserProfile struct {
	ID              uint64    `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
}

type UserResponse struct {
	Success bool         `json:"success"`
	User    *UserProfile `json:"user"`
}

func (r *UserResponse) GetUser() *UserProfile {
	if r == nil {
		return nil
	}
	return r.User
}

type ValidateTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserID uint64 `json:"userId,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
