package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-userauth/app/service"
	"github.com/vibast-solutions/ms-go-userauth/app/types"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type AuthServer struct {
	userAuthService service.UserAuthService
}

func NewAuthServer(userAuthService service.UserAuthService) *AuthServer {
	return &AuthServer{userAuthService: userAuthService}
}

// CodeFor maps an error kind onto its gRPC status code.
func CodeFor(kind service.Kind) codes.Code {
	switch kind {
	case service.KindValidation:
		return codes.InvalidArgument
	case service.KindAuth:
		return codes.Unauthenticated
	case service.KindNotFound:
		return codes.NotFound
	default:
		return codes.Internal
	}
}

func toStatus(err error, fields logrus.Fields, msg string) error {
	kind := service.KindOf(err)
	entry := logrus.WithFields(fields)
	if kind == service.KindService {
		entry.WithError(err).Error(msg + " (grpc)")
	} else {
		entry.WithField("reason", service.PublicMessage(err)).Warn(msg + " (grpc)")
	}
	return status.Error(CodeFor(kind), service.PublicMessage(err))
}

func (s *AuthServer) Register(ctx context.Context, req *types.RegisterRequest) (*types.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.GetEmail()).Debug("Register validation failed (grpc)")
		return nil, toStatus(service.InvalidRequest(err), nil, "Register rejected")
	}

	res, err := s.userAuthService.Register(ctx, req)
	if err != nil {
		return nil, toStatus(err, logrus.Fields{"email": req.GetEmail()}, "Register failed")
	}

	return res, nil
}

func (s *AuthServer) Login(ctx context.Context, req *types.LoginRequest) (*types.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.GetEmail()).Debug("Login validation failed (grpc)")
		return nil, toStatus(service.InvalidRequest(err), nil, "Login rejected")
	}

	res, err := s.userAuthService.Login(ctx, req)
	if err != nil {
		return nil, toStatus(err, logrus.Fields{"email": req.GetEmail()}, "Login failed")
	}

	logrus.WithField("email", req.GetEmail()).Info("Login successful (grpc)")
	return res, nil
}

func (s *AuthServer) VerifyEmail(ctx context.Context, req *types.VerifyEmailRequest) (*types.MessageResponse, error) {
	res, err := s.userAuthService.VerifyEmail(ctx, req)
	if err != nil {
		return nil, toStatus(err, nil, "Verify email failed")
	}
	return res, nil
}

func (s *AuthServer) RefreshToken(ctx context.Context, req *types.RefreshTokenRequest) (*types.TokenResponse, error) {
	res, err := s.userAuthService.RefreshToken(ctx, req)
	if err != nil {
		return nil, toStatus(err, nil, "Refresh token failed")
	}
	return res, nil
}

func (s *AuthServer) ResendVerification(ctx context.Context, _ *types.Empty) (*types.MessageResponse, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, service.ErrInvalidAccessToken.Message)
	}

	res, err := s.userAuthService.ResendVerification(ctx, userID)
	if err != nil {
		return nil, toStatus(err, logrus.Fields{"user_id": userID}, "Resend verification failed")
	}
	return res, nil
}

func (s *AuthServer) RequestPasswordReset(ctx context.Context, req *types.RequestPasswordResetRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		logrus.Debug("Request password reset validation failed (grpc)")
		return nil, toStatus(service.InvalidRequest(err), nil, "Request password reset rejected")
	}

	res, err := s.userAuthService.RequestPasswordReset(ctx, req)
	if err != nil {
		return nil, toStatus(err, logrus.Fields{"email": req.GetEmail()}, "Request password reset failed")
	}
	return res, nil
}

func (s *AuthServer) ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		logrus.Debug("Reset password validation failed (grpc)")
		return nil, toStatus(service.InvalidRequest(err), nil, "Reset password rejected")
	}

	res, err := s.userAuthService.ResetPassword(ctx, req)
	if err != nil {
		return nil, toStatus(err, nil, "Reset password failed")
	}
	return res, nil
}

func (s *AuthServer) ChangePassword(ctx context.Context, req *types.ChangePasswordRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		logrus.Debug("Change password validation failed (grpc)")
		return nil, toStatus(service.InvalidRequest(err), nil, "Change password rejected")
	}

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, service.ErrInvalidAccessToken.Message)
	}

	res, err := s.userAuthService.ChangePassword(ctx, userID, req)
	if err != nil {
		return nil, toStatus(err, logrus.Fields{"user_id": userID}, "Change password failed")
	}
	return res, nil
}

func (s *AuthServer) Logout(ctx context.Context, _ *types.Empty) (*types.MessageResponse, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, service.ErrInvalidAccessToken.Message)
	}

	res, err := s.userAuthService.Logout(ctx, userID)
	if err != nil {
		return nil, toStatus(err, logrus.Fields{"user_id": userID}, "Logout failed")
	}
	return res, nil
}

// ValidateToken lets other services check an access token. An invalid token
// is a normal answer, not an error.
func (s *AuthServer) ValidateToken(_ context.Context, req *types.ValidateTokenRequest) (*types.ValidateTokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(service.InvalidRequest(err), nil, "Validate token rejected")
	}

	claims, err := s.userAuthService.ValidateAccessToken(req.GetAccessToken())
	if err != nil {
		logrus.Debug("Validate token failed (grpc)")
		return &types.ValidateTokenResponse{Valid: false}, nil
	}

	return &types.ValidateTokenResponse{Valid: true, UserID: claims.UserID}, nil
}
