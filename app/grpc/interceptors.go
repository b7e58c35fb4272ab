package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-userauth/app/security"
	"github.com/vibast-solutions/ms-go-userauth/app/service"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type userIDKey struct{}

// authenticatedMethods need a bearer access token in the authorization metadata.
var authenticatedMethods = map[string]bool{
	FullMethod("ResendVerification"): true,
	FullMethod("ChangePassword"):     true,
	FullMethod("Logout"):             true,
}

type accessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*security.Claims, error)
}

func UserIDFromContext(ctx context.Context) (uint64, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uint64)
	return userID, ok
}

// AuthFunc resolves the bearer token into a user ID on the context.
func AuthFunc(validator accessTokenValidator) auth.AuthFunc {
	return func(ctx context.Context) (context.Context, error) {
		token, err := auth.AuthFromMD(ctx, "bearer")
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, service.ErrInvalidAccessToken.Message)
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			logrus.Debug("Invalid or expired access token (grpc)")
			return nil, status.Error(codes.Unauthenticated, service.ErrInvalidAccessToken.Message)
		}

		return context.WithValue(ctx, userIDKey{}, claims.UserID), nil
	}
}

func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	return authenticatedMethods[c.FullMethod()]
}

// InterceptorLogger bridges go-grpc-middleware logging onto logrus.
func InterceptorLogger(l logrus.FieldLogger) logging.Logger {
	return logging.LoggerFunc(func(_ context.Context, lvl logging.Level, msg string, fields ...any) {
		f := make(logrus.Fields, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			f[key] = fields[i+1]
		}
		entry := l.WithFields(f)

		switch lvl {
		case logging.LevelDebug:
			entry.Debug(msg)
		case logging.LevelInfo:
			entry.Info(msg)
		case logging.LevelWarn:
			entry.Warn(msg)
		case logging.LevelError:
			entry.Error(msg)
		default:
			entry.Info(msg)
		}
	})
}

func recoverPanic(p any) error {
	logrus.WithField("panic", p).Error("Recovered from panic in gRPC handler")
	return status.Error(codes.Internal, service.ErrInternal.Message)
}

// NewServer builds the gRPC server with AuthService and the standard health
// service registered.
func NewServer(userAuthService service.UserAuthService, opts ...gogrpc.ServerOption) *gogrpc.Server {
	opts = append(opts,
		gogrpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(recoverPanic)),
			logging.UnaryServerInterceptor(InterceptorLogger(logrus.StandardLogger()),
				logging.WithLogOnEvents(logging.FinishCall),
			),
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(AuthFunc(userAuthService)),
				selector.MatchFunc(requiresAuth),
			),
		),
	)

	s := gogrpc.NewServer(opts...)
	RegisterAuthServiceServer(s, NewAuthServer(userAuthService))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)

	return s
}
