package entity

import (
	"errors"
	"time"
)

var ErrEmptyPassword = errors.New("password must not be empty")

// PendingToken is the stored half of a single-use token: the digest of the
// plaintext that was mailed out and the instant it stops being accepted.
// A user either holds both values or neither.
type PendingToken struct {
	Hash      string
	ExpiresAt time.Time
}

// ValidAt reports whether the token is still usable at t.
func (p *PendingToken) ValidAt(t time.Time) bool {
	return p != nil && p.Hash != "" && t.Before(p.ExpiresAt)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

type User struct {
	ID                uint64
	FirstName         string
	LastName          string
	Email             string
	PasswordHash      string
	IsEmailVerified   bool
	EmailVerification *PendingToken
	PasswordReset     *PendingToken
	RefreshTokenHash  string
	Abandoned         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SetPassword hashes plaintext once and stores the result. It is the only way
// a password hash is written to a user.
func (u *User) SetPassword(hasher PasswordHasher, plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}

	hash, err := hasher.Hash(plaintext)
	if err != nil {
		return err
	}

	u.PasswordHash = hash
	return nil
}

func (u *User) MarkEmailVerified() {
	u.IsEmailVerified = true
	u.EmailVerification = nil
}
