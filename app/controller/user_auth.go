package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-userauth/app/service"
	"github.com/vibast-solutions/ms-go-userauth/app/types"
	"github.com/vibast-solutions/ms-go-userauth/config"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// TokenCookie carries the access token for browser clients.
const TokenCookie = "token"

type UserAuthController struct {
	userAuthService service.UserAuthService
	cfg             *config.Config
}

func NewUserAuthController(userAuthService service.UserAuthService, cfg *config.Config) *UserAuthController {
	return &UserAuthController{userAuthService: userAuthService, cfg: cfg}
}

func (c *UserAuthController) Register(ctx echo.Context) error {
	req, err := types.NewRegisterRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return invalidBody(ctx)
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.GetEmail()).Debug("Register validation failed")
		return writeError(ctx, service.InvalidRequest(err))
	}

	logrus.WithField("email", req.GetEmail()).Info("Register request received")
	result, err := c.userAuthService.Register(ctx.Request().Context(), req)
	if err != nil {
		logFailure(err, logrus.Fields{"email": req.GetEmail()}, "Register failed")
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, result)
}

func (c *UserAuthController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return invalidBody(ctx)
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.GetEmail()).Debug("Login validation failed")
		return writeError(ctx, service.InvalidRequest(err))
	}

	result, err := c.userAuthService.Login(ctx.Request().Context(), req)
	if err != nil {
		logFailure(err, logrus.Fields{"email": req.GetEmail()}, "Login failed")
		return writeError(ctx, err)
	}

	ctx.SetCookie(c.tokenCookie(result.GetToken(), c.cfg.CookieMaxAge()))

	logrus.WithField("email", req.GetEmail()).Info("Login successful")
	return ctx.JSON(http.StatusOK, result)
}

// VerifyEmail answers browsers following the mailed link with a redirect to
// the client login page and API clients with JSON.
func (c *UserAuthController) VerifyEmail(ctx echo.Context) error {
	req, err := types.NewVerifyEmailRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind verify email request")
		return invalidBody(ctx)
	}

	result, err := c.userAuthService.VerifyEmail(ctx.Request().Context(), req)
	if err != nil {
		logFailure(err, nil, "Verify email failed")
		return writeError(ctx, err)
	}

	if strings.Contains(ctx.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		return ctx.Redirect(http.StatusFound, c.cfg.LoginRedirectURL())
	}
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) RefreshToken(ctx echo.Context) error {
	req, err := types.NewRefreshTokenRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind refresh token request")
		return invalidBody(ctx)
	}

	result, err := c.userAuthService.RefreshToken(ctx.Request().Context(), req)
	if err != nil {
		logFailure(err, nil, "Refresh token failed")
		return writeError(ctx, err)
	}

	logrus.Debug("Refresh token successful")
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) ResendVerification(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Resend verification failed: missing user_id in context")
		return writeError(ctx, service.ErrInvalidAccessToken)
	}

	result, err := c.userAuthService.ResendVerification(ctx.Request().Context(), userID)
	if err != nil {
		logFailure(err, logrus.Fields{"user_id": userID}, "Resend verification failed")
		return writeError(ctx, err)
	}

	logrus.WithField("user_id", userID).Info("Verification email resent")
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) RequestPasswordReset(ctx echo.Context) error {
	req, err := types.NewRequestPasswordResetRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind request password reset")
		return invalidBody(ctx)
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Request password reset validation failed")
		return writeError(ctx, service.InvalidRequest(err))
	}

	result, err := c.userAuthService.RequestPasswordReset(ctx.Request().Context(), req)
	if err != nil {
		logFailure(err, logrus.Fields{"email": req.GetEmail()}, "Request password reset failed")
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) ResetPassword(ctx echo.Context) error {
	req, err := types.NewResetPasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind reset password request")
		return invalidBody(ctx)
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Reset password validation failed")
		return writeError(ctx, service.InvalidRequest(err))
	}

	result, err := c.userAuthService.ResetPassword(ctx.Request().Context(), req)
	if err != nil {
		logFailure(err, nil, "Reset password failed")
		return writeError(ctx, err)
	}

	logrus.Info("Password reset successful")
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) ChangePassword(ctx echo.Context) error {
	req, err := types.NewChangePasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind change password request")
		return invalidBody(ctx)
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Change password validation failed")
		return writeError(ctx, service.InvalidRequest(err))
	}

	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Change password failed: missing user_id in context")
		return writeError(ctx, service.ErrInvalidAccessToken)
	}

	result, err := c.userAuthService.ChangePassword(ctx.Request().Context(), userID, req)
	if err != nil {
		logFailure(err, logrus.Fields{"user_id": userID}, "Change password failed")
		return writeError(ctx, err)
	}

	logrus.WithField("user_id", userID).Info("Password changed")
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) Logout(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Logout failed: missing user_id in context")
		return writeError(ctx, service.ErrInvalidAccessToken)
	}

	result, err := c.userAuthService.Logout(ctx.Request().Context(), userID)
	if err != nil {
		logFailure(err, logrus.Fields{"user_id": userID}, "Logout failed")
		return writeError(ctx, err)
	}

	ctx.SetCookie(c.tokenCookie("", -1))

	logrus.WithField("user_id", userID).Info("Logout successful")
	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) Me(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Me failed: missing user_id in context")
		return writeError(ctx, service.ErrInvalidAccessToken)
	}

	result, err := c.userAuthService.Me(ctx.Request().Context(), userID)
	if err != nil {
		logFailure(err, logrus.Fields{"user_id": userID}, "Me failed")
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *UserAuthController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Success: true, Message: "ok"})
}

// tokenCookie builds the access token cookie. A negative maxAge expires it.
func (c *UserAuthController) tokenCookie(value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     TokenCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		return cookie
	}
	cookie.MaxAge = int(maxAge.Seconds())
	cookie.Expires = time.Now().Add(maxAge)
	return cookie
}
