package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-userauth/app/entity"
	"github.com/vibast-solutions/ms-go-userauth/app/notification"
	"github.com/vibast-solutions/ms-go-userauth/app/repository"
	"github.com/vibast-solutions/ms-go-userauth/app/security"
	"github.com/vibast-solutions/ms-go-userauth/app/types"
	"github.com/vibast-solutions/ms-go-userauth/config"

	"github.com/sirupsen/logrus"
)

const (
	MessageVerificationSent = "Verification email sent"
	MessageEmailVerified    = "Email verified successfully"
	MessageResetRequested   = "If an account exists for that email, a reset link has been sent"
	MessagePasswordReset    = "Password has been reset"
	MessagePasswordChanged  = "Password changed successfully"
	MessageLoggedOut        = "Logged out successfully"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByIDWithPassword(ctx context.Context, id uint64) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*entity.User, error)
	FindByVerificationTokenHash(ctx context.Context, hash string, now time.Time) (*entity.User, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*entity.User, error)
	FindByRefreshTokenHash(ctx context.Context, hash string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	UpdatePassword(ctx context.Context, user *entity.User) error
	SetRefreshTokenHash(ctx context.Context, userID uint64, hash string) error
	RotateRefreshTokenHash(ctx context.Context, userID uint64, oldHash, newHash string) (bool, error)
	Delete(ctx context.Context, userID uint64) error
	MarkAbandoned(ctx context.Context, userID uint64) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// TxFunc runs fn against a repository bound to a single transaction.
type TxFunc func(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error

type UserAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.TokenResponse, error)
	Login(ctx context.Context, req *types.LoginRequest) (*types.TokenResponse, error)
	VerifyEmail(ctx context.Context, req *types.VerifyEmailRequest) (*types.MessageResponse, error)
	RefreshToken(ctx context.Context, req *types.RefreshTokenRequest) (*types.TokenResponse, error)
	ResendVerification(ctx context.Context, userID uint64) (*types.MessageResponse, error)
	RequestPasswordReset(ctx context.Context, req *types.RequestPasswordResetRequest) (*types.MessageResponse, error)
	ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) (*types.MessageResponse, error)
	ChangePassword(ctx context.Context, userID uint64, req *types.ChangePasswordRequest) (*types.MessageResponse, error)
	Logout(ctx context.Context, userID uint64) (*types.MessageResponse, error)
	Me(ctx context.Context, userID uint64) (*types.UserResponse, error)
	ValidateAccessToken(tokenString string) (*security.Claims, error)
	SetPassword(ctx context.Context, email, password string) error
	SweepStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type UserAuthServiceOption func(*userAuthService)

type userAuthService struct {
	userRepo     UserRepository
	inTx         TxFunc
	hasher       security.PasswordHasher
	issuer       *security.TokenIssuer
	verifyTokens *security.OneTimeTokenGenerator
	resetTokens  *security.OneTimeTokenGenerator
	dispatcher   notification.Dispatcher
	cfg          *config.Config
	now          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewUserAuthService(
	userRepo UserRepository,
	hasher security.PasswordHasher,
	issuer *security.TokenIssuer,
	dispatcher notification.Dispatcher,
	cfg *config.Config,
	opts ...UserAuthServiceOption,
) UserAuthService {
	svc := &userAuthService{
		userRepo:   userRepo,
		hasher:     hasher,
		issuer:     issuer,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
	svc.inTx = func(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
		return fn(ctx, svc.userRepo)
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.verifyTokens = security.NewOneTimeTokenGenerator(cfg.Tokens.VerificationTTL).WithClock(svc.now)
	svc.resetTokens = security.NewOneTimeTokenGenerator(cfg.Tokens.ResetTTL).WithClock(svc.now)
	return svc
}

// WithTx makes multi-step writes run inside a transaction.
func WithTx(fn TxFunc) UserAuthServiceOption {
	return func(s *userAuthService) {
		if fn != nil {
			s.inTx = fn
		}
	}
}

func WithClock(now func() time.Time) UserAuthServiceOption {
	return func(s *userAuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// InvalidRequest maps a request validation failure onto the public error.
func InvalidRequest(err error) error {
	if errors.Is(err, types.ErrInvalidEmail) {
		return ErrInvalidEmail.wrap(err)
	}
	return ErrMissingFields.wrap(err)
}

func (s *userAuthService) Register(ctx context.Context, req *types.RegisterRequest) (*types.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, InvalidRequest(err)
	}
	if err := s.checkPasswordLength(req.GetPassword()); err != nil {
		return nil, err
	}

	email := NormalizeEmail(req.GetEmail())
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal(err)
	}
	if existing != nil && !existing.Abandoned {
		return nil, ErrUserExists
	}

	verification, err := s.verifyTokens.Generate()
	if err != nil {
		return nil, internal(err)
	}

	now := s.now()
	user := &entity.User{
		FirstName:         strings.TrimSpace(req.GetFirstName()),
		LastName:          strings.TrimSpace(req.GetLastName()),
		Email:             email,
		EmailVerification: verification.Pending(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err = user.SetPassword(s.hasher, req.GetPassword()); err != nil {
		return nil, internal(err)
	}

	var pair *tokenPair
	err = s.inTx(ctx, func(ctx context.Context, repo UserRepository) error {
		// An abandoned registration gives its email back to the next sign-up.
		if existing != nil {
			if err := repo.Delete(ctx, existing.ID); err != nil {
				return err
			}
		}
		if err := repo.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return ErrUserExists
			}
			return err
		}

		var err error
		pair, err = s.issuePair(user.ID)
		if err != nil {
			return err
		}
		return repo.SetRefreshTokenHash(ctx, user.ID, pair.refreshHash())
	})
	if err != nil {
		return nil, internal(err)
	}

	if err = s.sendVerification(ctx, user, verification.Plaintext); err != nil {
		s.rollbackRegistration(ctx, user)
		return nil, ErrEmailDelivery.wrap(err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return pair.response(), nil
}

// rollbackRegistration removes a user whose verification email never went
// out. If the delete fails the record is flagged for the sweep command.
func (s *userAuthService) rollbackRegistration(ctx context.Context, user *entity.User) {
	ctx = context.WithoutCancel(ctx)
	fields := logrus.Fields{"user_id": user.ID, "email": user.Email}

	deleteErr := s.userRepo.Delete(ctx, user.ID)
	if deleteErr == nil {
		logrus.WithFields(fields).Warn("Registration rolled back after email failure")
		return
	}

	markErr := s.userRepo.MarkAbandoned(ctx, user.ID)
	if markErr == nil {
		logrus.WithError(deleteErr).WithFields(fields).Error("Registration rollback failed; user marked abandoned")
		return
	}

	logrus.WithError(errors.Join(deleteErr, markErr)).WithFields(fields).Error("Registration rollback failed; orphaned user left unverified")
}

func (s *userAuthService) Login(ctx context.Context, req *types.LoginRequest) (*types.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, InvalidRequest(err)
	}

	user, err := s.userRepo.FindByEmailWithPassword(ctx, NormalizeEmail(req.GetEmail()))
	if err != nil {
		return nil, internal(err)
	}
	if user == nil {
		// Spend the same hashing time as a real check.
		_, _ = s.hasher.Verify(req.GetPassword(), s.dummyPasswordHash())
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(req.GetPassword(), user.PasswordHash)
	if err != nil {
		return nil, internal(err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, internal(err)
	}
	if err = s.userRepo.SetRefreshTokenHash(ctx, user.ID, pair.refreshHash()); err != nil {
		return nil, internal(err)
	}

	return pair.response(), nil
}

func (s *userAuthService) VerifyEmail(ctx context.Context, req *types.VerifyEmailRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, ErrInvalidVerification.wrap(err)
	}

	user, err := s.userRepo.FindByVerificationTokenHash(ctx, security.HashToken(req.GetToken()), s.now())
	if err != nil {
		return nil, internal(err)
	}
	if user == nil {
		return nil, ErrInvalidVerification
	}

	user.MarkEmailVerified()
	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, internal(err)
	}

	logrus.WithField("user_id", user.ID).Info("Email verified")
	return &types.MessageResponse{Success: true, Message: MessageEmailVerified}, nil
}

func (s *userAuthService) RefreshToken(ctx context.Context, req *types.RefreshTokenRequest) (*types.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, ErrInvalidRefreshToken.wrap(err)
	}

	claims, err := s.issuer.ParseRefreshToken(req.GetRefreshToken())
	if err != nil {
		return nil, ErrInvalidRefreshToken.wrap(err)
	}

	currentHash := security.HashToken(req.GetRefreshToken())
	user, err := s.userRepo.FindByRefreshTokenHash(ctx, currentHash)
	if err != nil {
		return nil, internal(err)
	}
	if user == nil || user.ID != claims.UserID {
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, internal(err)
	}

	rotated, err := s.userRepo.RotateRefreshTokenHash(ctx, user.ID, currentHash, pair.refreshHash())
	if err != nil {
		return nil, internal(err)
	}
	if !rotated {
		return nil, ErrInvalidRefreshToken
	}

	return pair.response(), nil
}

func (s *userAuthService) ResendVerification(ctx context.Context, userID uint64) (*types.MessageResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsEmailVerified {
		return nil, ErrEmailAlreadyVerified
	}

	verification, err := s.verifyTokens.Generate()
	if err != nil {
		return nil, internal(err)
	}

	user.EmailVerification = verification.Pending()
	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, internal(err)
	}

	if err = s.sendVerification(ctx, user, verification.Plaintext); err != nil {
		return nil, ErrEmailDelivery.wrap(err)
	}

	return &types.MessageResponse{Success: true, Message: MessageVerificationSent}, nil
}

func (s *userAuthService) RequestPasswordReset(ctx context.Context, req *types.RequestPasswordResetRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, InvalidRequest(err)
	}

	generic := &types.MessageResponse{Success: true, Message: MessageResetRequested}

	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(req.GetEmail()))
	if err != nil {
		return nil, internal(err)
	}
	if user == nil {
		logrus.Debug("Password reset requested for unknown email")
		return generic, nil
	}

	reset, err := s.resetTokens.Generate()
	if err != nil {
		return nil, internal(err)
	}

	user.PasswordReset = reset.Pending()
	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, internal(err)
	}

	msg, err := notification.PasswordResetEmail(user.Email, user.FirstName, s.cfg.ResetPasswordURL(reset.Plaintext))
	if err == nil {
		err = s.dispatcher.Send(ctx, msg)
	}
	if err != nil {
		user.PasswordReset = nil
		if clearErr := s.userRepo.Update(context.WithoutCancel(ctx), user); clearErr != nil {
			logrus.WithError(clearErr).WithField("user_id", user.ID).Error("Failed to clear reset token after email failure")
		}
		return nil, ErrEmailDelivery.wrap(err)
	}

	return generic, nil
}

func (s *userAuthService) ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, InvalidRequest(err)
	}
	if err := s.checkPasswordLength(req.GetPassword()); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByResetTokenHash(ctx, security.HashToken(req.GetToken()), s.now())
	if err != nil {
		return nil, internal(err)
	}
	if user == nil {
		return nil, ErrInvalidResetToken
	}

	if err = user.SetPassword(s.hasher, req.GetPassword()); err != nil {
		return nil, internal(err)
	}
	user.PasswordReset = nil
	user.RefreshTokenHash = ""

	if err = s.userRepo.UpdatePassword(ctx, user); err != nil {
		return nil, internal(err)
	}

	logrus.WithField("user_id", user.ID).Info("Password reset")
	return &types.MessageResponse{Success: true, Message: MessagePasswordReset}, nil
}

func (s *userAuthService) ChangePassword(ctx context.Context, userID uint64, req *types.ChangePasswordRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, InvalidRequest(err)
	}
	if err := s.checkPasswordLength(req.GetNewPassword()); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByIDWithPassword(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	ok, err := s.hasher.Verify(req.GetCurrentPassword(), user.PasswordHash)
	if err != nil {
		return nil, internal(err)
	}
	if !ok {
		return nil, ErrIncorrectPassword
	}

	if err = user.SetPassword(s.hasher, req.GetNewPassword()); err != nil {
		return nil, internal(err)
	}
	if err = s.userRepo.UpdatePassword(ctx, user); err != nil {
		return nil, internal(err)
	}

	return &types.MessageResponse{Success: true, Message: MessagePasswordChanged}, nil
}

func (s *userAuthService) Logout(ctx context.Context, userID uint64) (*types.MessageResponse, error) {
	if err := s.userRepo.SetRefreshTokenHash(ctx, userID, ""); err != nil {
		return nil, internal(err)
	}
	return &types.MessageResponse{Success: true, Message: MessageLoggedOut}, nil
}

func (s *userAuthService) Me(ctx context.Context, userID uint64) (*types.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &types.UserResponse{
		Success: true,
		User: &types.UserProfile{
			ID:              user.ID,
			FirstName:       user.FirstName,
			LastName:        user.LastName,
			Email:           user.Email,
			IsEmailVerified: user.IsEmailVerified,
			CreatedAt:       user.CreatedAt,
		},
	}, nil
}

func (s *userAuthService) ValidateAccessToken(tokenString string) (*security.Claims, error) {
	claims, err := s.issuer.ParseAccessToken(tokenString)
	if err != nil {
		return nil, ErrInvalidAccessToken.wrap(err)
	}
	return claims, nil
}

// SetPassword overwrites a user's password out of band and ends their
// sessions. It backs the operator CLI.
func (s *userAuthService) SetPassword(ctx context.Context, email, password string) error {
	if err := s.checkPasswordLength(password); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return internal(err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err = user.SetPassword(s.hasher, password); err != nil {
		return internal(err)
	}
	user.PasswordReset = nil
	user.RefreshTokenHash = ""

	if err = s.userRepo.UpdatePassword(ctx, user); err != nil {
		return internal(err)
	}
	return nil
}

func (s *userAuthService) SweepStale(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.userRepo.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, internal(err)
	}
	return n, nil
}

func (s *userAuthService) checkPasswordLength(password string) error {
	if minLen := s.cfg.Password.MinLength; len(password) < minLen {
		return ErrPasswordTooShort.withMessagef("Password must be at least %d characters", minLen)
	}
	return nil
}

func (s *userAuthService) sendVerification(ctx context.Context, user *entity.User, plaintext string) error {
	msg, err := notification.VerificationEmail(user.Email, user.FirstName, s.cfg.VerificationURL(plaintext))
	if err != nil {
		return err
	}
	return s.dispatcher.Send(ctx, msg)
}

func (s *userAuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-equalizer")
		if err != nil {
			logrus.WithError(err).Warn("Failed to prepare dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

type tokenPair struct {
	access  string
	refresh string
}

func (p *tokenPair) refreshHash() string {
	return security.HashToken(p.refresh)
}

func (p *tokenPair) response() *types.TokenResponse {
	return &types.TokenResponse{Success: true, Token: p.access, RefreshToken: p.refresh}
}

func (s *userAuthService) issuePair(userID uint64) (*tokenPair, error) {
	access, err := s.issuer.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}
	return &tokenPair{access: access, refresh: refresh}, nil
}
