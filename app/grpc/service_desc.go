package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-userauth/app/types"

	gogrpc "google.golang.org/grpc"
)

const ServiceName = "userauth.v1.AuthService"

type AuthServiceServer interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.TokenResponse, error)
	Login(ctx context.Context, req *types.LoginRequest) (*types.TokenResponse, error)
	VerifyEmail(ctx context.Context, req *types.VerifyEmailRequest) (*types.MessageResponse, error)
	RefreshToken(ctx context.Context, req *types.RefreshTokenRequest) (*types.TokenResponse, error)
	ResendVerification(ctx context.Context, req *types.Empty) (*types.MessageResponse, error)
	RequestPasswordReset(ctx context.Context, req *types.RequestPasswordResetRequest) (*types.MessageResponse, error)
	ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) (*types.MessageResponse, error)
	ChangePassword(ctx context.Context, req *types.ChangePasswordRequest) (*types.MessageResponse, error)
	Logout(ctx context.Context, req *types.Empty) (*types.MessageResponse, error)
	ValidateToken(ctx context.Context, req *types.ValidateTokenRequest) (*types.ValidateTokenResponse, error)
}

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var AuthServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		unaryMethod("Register", AuthServiceServer.Register),
		unaryMethod("Login", AuthServiceServer.Login),
		unaryMethod("VerifyEmail", AuthServiceServer.VerifyEmail),
		unaryMethod("RefreshToken", AuthServiceServer.RefreshToken),
		unaryMethod("ResendVerification", AuthServiceServer.ResendVerification),
		unaryMethod("RequestPasswordReset", AuthServiceServer.RequestPasswordReset),
		unaryMethod("ResetPassword", AuthServiceServer.ResetPassword),
		unaryMethod("ChangePassword", AuthServiceServer.ChangePassword),
		unaryMethod("Logout", AuthServiceServer.Logout),
		unaryMethod("ValidateToken", AuthServiceServer.ValidateToken),
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "userauth/v1/auth",
}

func RegisterAuthServiceServer(s gogrpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

func unaryMethod[Req, Res any](name string, call func(AuthServiceServer, context.Context, *Req) (*Res, error)) gogrpc.MethodDesc {
	return gogrpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AuthServiceServer), ctx, in)
			}
			info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AuthServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AuthServiceClient calls AuthService with the JSON codec.
type AuthServiceClient struct {
	cc gogrpc.ClientConnInterface
}

func NewAuthServiceClient(cc gogrpc.ClientConnInterface) *AuthServiceClient {
	return &AuthServiceClient{cc: cc}
}

func invoke[Res any](ctx context.Context, cc gogrpc.ClientConnInterface, method string, in any, opts []gogrpc.CallOption) (*Res, error) {
	out := new(Res)
	opts = append([]gogrpc.CallOption{gogrpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthServiceClient) Register(ctx context.Context, in *types.RegisterRequest, opts ...gogrpc.CallOption) (*types.TokenResponse, error) {
	return invoke[types.TokenResponse](ctx, c.cc, "Register", in, opts)
}

func (c *AuthServiceClient) Login(ctx context.Context, in *types.LoginRequest, opts ...gogrpc.CallOption) (*types.TokenResponse, error) {
	return invoke[types.TokenResponse](ctx, c.cc, "Login", in, opts)
}

func (c *AuthServiceClient) VerifyEmail(ctx context.Context, in *types.VerifyEmailRequest, opts ...gogrpc.CallOption) (*types.MessageResponse, error) {
	return invoke[types.MessageResponse](ctx, c.cc, "VerifyEmail", in, opts)
}

func (c *AuthServiceClient) RefreshToken(ctx context.Context, in *types.RefreshTokenRequest, opts ...gogrpc.CallOption) (*types.TokenResponse, error) {
	return invoke[types.TokenResponse](ctx, c.cc, "RefreshToken", in, opts)
}

func (c *AuthServiceClient) ResendVerification(ctx context.Context, in *types.Empty, opts ...gogrpc.CallOption) (*types.MessageResponse, error) {
	return invoke[types.MessageResponse](ctx, c.cc, "ResendVerification", in, opts)
}

func (c *AuthServiceClient) RequestPasswordReset(ctx context.Context, in *types.RequestPasswordResetRequest, opts ...gogrpc.CallOption) (*types.MessageResponse, error) {
	return invoke[types.MessageResponse](ctx, c.cc, "RequestPasswordReset", in, opts)
}

func (c *AuthServiceClient) ResetPassword(ctx context.Context, in *types.ResetPasswordRequest, opts ...gogrpc.CallOption) (*types.MessageResponse, error) {
	return invoke[types.MessageResponse](ctx, c.cc, "ResetPassword", in, opts)
}

func (c *AuthServiceClient) ChangePassword(ctx context.Context, in *types.ChangePasswordRequest, opts ...gogrpc.CallOption) (*types.MessageResponse, error) {
	return invoke[types.MessageResponse](ctx, c.cc, "ChangePassword", in, opts)
}

func (c *AuthServiceClient) Logout(ctx context.Context, in *types.Empty, opts ...gogrpc.CallOption) (*types.MessageResponse, error) {
	return invoke[types.MessageResponse](ctx, c.cc, "Logout", in, opts)
}

func (c *AuthServiceClient) ValidateToken(ctx context.Context, in *types.ValidateTokenRequest, opts ...gogrpc.CallOption) (*types.ValidateTokenResponse, error) {
	return invoke[types.ValidateTokenResponse](ctx, c.cc, "ValidateToken", in, opts)
}
