package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-userauth/app/entity"
	"github.com/vibast-solutions/ms-go-userauth/app/notification"
	"github.com/vibast-solutions/ms-go-userauth/app/repository"
)

// memoryUserRepository mirrors the SQL repository semantics closely enough
// for flow tests: default reads omit the password hash, and Update leaves the
// hash and refresh digest alone.
type memoryUserRepository struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*entity.User

	deleteErr error
	markErr   error
	updateErr error
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: map[uint64]*entity.User{}}
}

func cloneUser(u *entity.User, withPassword bool) *entity.User {
	c := *u
	if u.EmailVerification != nil {
		v := *u.EmailVerification
		c.EmailVerification = &v
	}
	if u.PasswordReset != nil {
		r := *u.PasswordReset
		c.PasswordReset = &r
	}
	if !withPassword {
		c.PasswordHash = ""
	}
	return &c
}

func (r *memoryUserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = cloneUser(user, true)
	return nil
}

func (r *memoryUserRepository) find(match func(u *entity.User) bool, withPassword bool) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u, withPassword)
		}
	}
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id uint64) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id }, false), nil
}

func (r *memoryUserRepository) FindByIDWithPassword(_ context.Context, id uint64) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id }, true), nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email }, false), nil
}

func (r *memoryUserRepository) FindByEmailWithPassword(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email }, true), nil
}

func (r *memoryUserRepository) FindByVerificationTokenHash(_ context.Context, hash string, now time.Time) (*entity.User, error) {
	return r.find(func(u *entity.User) bool {
		return u.EmailVerification != nil && u.EmailVerification.Hash == hash && u.EmailVerification.ValidAt(now)
	}, false), nil
}

func (r *memoryUserRepository) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*entity.User, error) {
	return r.find(func(u *entity.User) bool {
		return u.PasswordReset != nil && u.PasswordReset.Hash == hash && u.PasswordReset.ValidAt(now)
	}, false), nil
}

func (r *memoryUserRepository) FindByRefreshTokenHash(_ context.Context, hash string) (*entity.User, error) {
	if hash == "" {
		return nil, nil
	}
	return r.find(func(u *entity.User) bool { return u.RefreshTokenHash == hash }, false), nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.users[user.ID]
	if !ok {
		return nil
	}
	next := cloneUser(user, true)
	next.PasswordHash = stored.PasswordHash
	next.RefreshTokenHash = stored.RefreshTokenHash
	next.Abandoned = stored.Abandoned
	r.users[user.ID] = next
	return nil
}

func (r *memoryUserRepository) UpdatePassword(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.PasswordHash == "" {
		return entity.ErrEmptyPassword
	}
	stored, ok := r.users[user.ID]
	if !ok {
		return nil
	}
	stored.PasswordHash = user.PasswordHash
	stored.PasswordReset = nil
	if user.PasswordReset != nil {
		p := *user.PasswordReset
		stored.PasswordReset = &p
	}
	stored.RefreshTokenHash = user.RefreshTokenHash
	return nil
}

func (r *memoryUserRepository) SetRefreshTokenHash(_ context.Context, userID uint64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[userID]; ok {
		u.RefreshTokenHash = hash
	}
	return nil
}

func (r *memoryUserRepository) RotateRefreshTokenHash(_ context.Context, userID uint64, oldHash, newHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || u.RefreshTokenHash != oldHash {
		return false, nil
	}
	u.RefreshTokenHash = newHash
	return true, nil
}

func (r *memoryUserRepository) Delete(_ context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.users, userID)
	return nil
}

func (r *memoryUserRepository) MarkAbandoned(_ context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.markErr != nil {
		return r.markErr
	}
	if u, ok := r.users[userID]; ok {
		u.Abandoned = true
	}
	return nil
}

func (r *memoryUserRepository) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, u := range r.users {
		expired := !u.IsEmailVerified && u.EmailVerification != nil && u.EmailVerification.ExpiresAt.Before(cutoff)
		if u.Abandoned || expired {
			delete(r.users, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryUserRepository) stored(email string) *entity.User {
	return r.find(func(u *entity.User) bool { return u.Email == email }, true)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, msg notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *recordingDispatcher) last() (notification.Message, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.sent) == 0 {
		return notification.Message{}, false
	}
	return d.sent[len(d.sent)-1], true
}

// tokenAfter returns the path segment following marker in the last message.
func (d *recordingDispatcher) tokenAfter(marker string) (string, error) {
	msg, ok := d.last()
	if !ok {
		return "", errors.New("no message sent")
	}
	idx := strings.Index(msg.Text, marker)
	if idx < 0 {
		return "", errors.New("marker not found in message")
	}
	rest := msg.Text[idx+len(marker):]
	if end := strings.IndexAny(rest, " \n"); end >= 0 {
		rest = rest[:end]
	}
	return rest, nil
}
